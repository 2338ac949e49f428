package preview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/screenrec/lib/utils"
	"github.com/stretchr/testify/assert"
)

func stubWindow(info func(ctx context.Context) error) *rodWindow {
	w := newRodWindow(&rod.Page{}, utils.LoggerQuiet)
	w.info = info
	w.timeout = 50 * time.Millisecond
	w.recheck = time.Hour
	return w
}

func TestRodWindowStalled(t *testing.T) {
	calls := 0
	w := stubWindow(func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	assert.False(t, w.Closed())
	assert.Less(t, time.Since(start), time.Second)

	// within the recheck interval the browser isn't asked again
	assert.False(t, w.Closed())
	assert.Equal(t, 1, calls)
}

func TestRodWindowGone(t *testing.T) {
	calls := 0
	w := stubWindow(func(context.Context) error {
		calls++
		return errors.New("target closed")
	})

	assert.True(t, w.Closed())
	assert.True(t, w.Closed())
	assert.Equal(t, 1, calls)
}

func TestRodWindowRecheck(t *testing.T) {
	var lock sync.Mutex
	gone := false
	w := stubWindow(func(context.Context) error {
		lock.Lock()
		defer lock.Unlock()
		if gone {
			return errors.New("target closed")
		}
		return nil
	})
	w.recheck = 0

	assert.False(t, w.Closed())

	lock.Lock()
	gone = true
	lock.Unlock()

	assert.True(t, w.Closed())
}
