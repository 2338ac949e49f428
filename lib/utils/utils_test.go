package utils_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-rod/screenrec/lib/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	var got []interface{}
	utils.Log(func(msg ...interface{}) { got = msg }).Println("a", 1)
	utils.LoggerQuiet.Println()

	assert.Equal(t, []interface{}{"a", 1}, got)
}

func TestE(t *testing.T) {
	utils.E(nil)

	assert.Panics(t, func() {
		utils.E(errors.New("err"))
	})
}

func TestOutputFile(t *testing.T) {
	dir := t.TempDir()

	p := filepath.Join(dir, "a", "b.txt")
	require.NoError(t, utils.OutputFile(p, "ok"))
	require.NoError(t, utils.OutputFile(filepath.Join(dir, "c.bin"), []byte{1, 2}))

	assert.FileExists(t, p)
	assert.Error(t, utils.OutputFile(filepath.Join(dir, "d"), 10))
}

func TestISOTime(t *testing.T) {
	loc := time.FixedZone("x", 8*3600)
	tm := time.Date(2020, 5, 13, 16, 5, 9, 123456789, loc)

	assert.Equal(t, "2020-05-13T08:05:09.123Z", utils.ISOTime(tm))
}

func TestHMS(t *testing.T) {
	assert.Equal(t, 3723, utils.HMS("01", "02", "03"))
	assert.Equal(t, 10, utils.HMS("00", "00", "10"))
	assert.Equal(t, 60, utils.HMS("xx", "01", ""))
	assert.Equal(t, 5, utils.HMS(" 0 ", "1x", " 5"))
	assert.Equal(t, 0, utils.HMS("-1", "", "+x"))
}

func TestRetry(t *testing.T) {
	count := 0

	err := utils.Retry(context.Background(), utils.CountSleeper(10), func() (bool, error) {
		if count > 5 {
			return true, io.EOF
		}
		count++
		return false, nil
	})

	assert.Equal(t, io.EOF, err)
}

func TestRetryCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go cancel()

	err := utils.Retry(ctx, utils.IntervalSleeper(time.Second), func() (bool, error) {
		return false, nil
	})

	assert.Equal(t, context.Canceled, err)
}

func TestCountSleeperErr(t *testing.T) {
	ctx := context.Background()
	s := utils.CountSleeper(5)
	for i := 0; i < 5; i++ {
		_ = s(ctx)
	}

	err := s(ctx)
	assert.ErrorIs(t, err, &utils.ErrMaxSleepCount{})
	assert.Equal(t, "max sleep count 5 exceeded", err.Error())
}

func TestIntervalSleeper(t *testing.T) {
	start := time.Now()
	assert.NoError(t, utils.IntervalSleeper(10*time.Millisecond)(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, utils.IntervalSleeper(time.Hour)(ctx))
	assert.Equal(t, context.Canceled, utils.IntervalSleeper(0)(ctx))
}

func TestEachSleepers(t *testing.T) {
	s := utils.EachSleepers(utils.IntervalSleeper(0), utils.CountSleeper(2))

	err := utils.Retry(context.Background(), s, func() (bool, error) {
		return false, nil
	})

	assert.ErrorIs(t, err, &utils.ErrMaxSleepCount{})
}

func TestAll(t *testing.T) {
	var n int32
	utils.All(func() { atomic.AddInt32(&n, 1) }, func() { atomic.AddInt32(&n, 1) })()

	assert.EqualValues(t, 2, n)
}

func TestPlainName(t *testing.T) {
	assert.NoError(t, utils.PlainName("input.webm"))

	for _, name := range []string{"", ".", "..", "a/b", `a\b`, "../x"} {
		assert.ErrorIs(t, utils.PlainName(name), utils.ErrNameNotPlain, name)
	}
}
