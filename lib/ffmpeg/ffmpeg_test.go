package ffmpeg_test

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-rod/screenrec/lib/ffmpeg"
	"github.com/go-rod/screenrec/lib/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(
		m,
		// leakless keeps a connection to its guard process open for the whole process lifetime
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
}

func TestScanLines(t *testing.T) {
	s := bufio.NewScanner(strings.NewReader("a\nframe=1\rframe=2\r\nlast"))
	s.Split(ffmpeg.ScanLines)

	list := []string{}
	for s.Scan() {
		list = append(list, s.Text())
	}

	assert.Equal(t, []string{"a", "frame=1", "frame=2", "", "last"}, list)
}

func TestLoadMissingBinary(t *testing.T) {
	r := ffmpeg.New(filepath.Join(t.TempDir(), "no-such-ffmpeg")).Logger(utils.LoggerQuiet)
	defer func() { _ = r.Close() }()

	err := r.Load(context.Background())
	assert.ErrorIs(t, err, ffmpeg.ErrLoad)
	assert.False(t, r.Loaded())

	// the failure is remembered
	assert.Equal(t, err, r.Load(context.Background()))
	assert.Equal(t, err, r.LoadErr())
}

func TestLoadInterrupted(t *testing.T) {
	bin, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not found in PATH")
	}

	r := ffmpeg.New(bin).Logger(utils.LoggerQuiet)
	defer func() { _ = r.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Load(ctx), ffmpeg.ErrLoad)
	assert.False(t, r.Loaded())
	assert.NoError(t, r.LoadErr())

	require.NoError(t, r.Load(context.Background()))
	assert.True(t, r.Loaded())
}

func TestNotLoaded(t *testing.T) {
	r := ffmpeg.New("").Logger(utils.LoggerQuiet)
	defer func() { _ = r.Close() }()

	assert.ErrorIs(t, r.Exec(context.Background(), "-version"), ffmpeg.ErrNotLoaded)
	assert.ErrorIs(t, r.WriteFile("a", nil), ffmpeg.ErrNotLoaded)
	_, err := r.ReadFile("a")
	assert.ErrorIs(t, err, ffmpeg.ErrNotLoaded)
	assert.ErrorIs(t, r.DeleteFile("a"), ffmpeg.ErrNotLoaded)
}

func TestLoadOnce(t *testing.T) {
	requireFFmpeg(t)

	r := ffmpeg.New("").Logger(utils.LoggerQuiet)

	wg := sync.WaitGroup{}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Load(context.Background()))
		}()
	}
	wg.Wait()

	dir := r.Dir()
	assert.True(t, r.Loaded())
	assert.Contains(t, r.Version(), "ffmpeg version")
	assert.DirExists(t, dir)

	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, dir, r.Dir())

	require.NoError(t, r.Close())
	assert.NoDirExists(t, dir)
	assert.False(t, r.Loaded())
}

func TestFiles(t *testing.T) {
	requireFFmpeg(t)

	r := ffmpeg.New("").Logger(utils.LoggerQuiet)
	defer func() { _ = r.Close() }()
	require.NoError(t, r.Load(context.Background()))

	require.NoError(t, r.WriteFile("input.webm", []byte("data")))
	data, err := r.ReadFile("input.webm")
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	require.NoError(t, r.DeleteFile("input.webm"))
	_, err = r.ReadFile("input.webm")
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, r.WriteFile("../escape", nil), utils.ErrNameNotPlain)
}

func TestExecLogs(t *testing.T) {
	requireFFmpeg(t)

	r := ffmpeg.New("").Logger(utils.LoggerQuiet).Trace(true)
	defer func() { _ = r.Close() }()
	require.NoError(t, r.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	logs := r.Logs(ctx)

	lines := []string{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for l := range logs {
			lines = append(lines, l)
		}
	}()

	err := r.Exec(context.Background(),
		"-f", "lavfi", "-i", "testsrc=duration=1:size=64x64:rate=10",
		"-c:v", "mpeg4", "-y", "out.mp4",
	)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	assert.NotEmpty(t, lines)

	data, err := r.ReadFile("out.mp4")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestExecFailure(t *testing.T) {
	requireFFmpeg(t)

	r := ffmpeg.New("").Logger(utils.LoggerQuiet)
	defer func() { _ = r.Close() }()
	require.NoError(t, r.Load(context.Background()))

	err := r.Exec(context.Background(), "-i", "missing.webm", "-y", "out.mp4")
	assert.ErrorIs(t, err, ffmpeg.ErrExec)
	assert.Contains(t, err.Error(), "missing.webm")
}

func TestPipe(t *testing.T) {
	requireFFmpeg(t)

	out := &lockedBuffer{}
	p, err := ffmpeg.StartPipe("", []string{
		"-f", "s16le", "-ar", "8000", "-ac", "1", "-i", "pipe:0",
		"-f", "wav", "pipe:1",
	}, out, nil)
	require.NoError(t, err)

	_, err = p.Write(make([]byte, 16000))
	require.NoError(t, err)
	require.NoError(t, p.CloseInput())
	require.NoError(t, p.CloseInput())

	require.NoError(t, p.Wait())
	<-p.Done()
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("RIFF")))
}

type lockedBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Bytes()
}
