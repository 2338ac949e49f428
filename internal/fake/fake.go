// Package fake has in-memory stand-ins for the browser window, the capture stream, the recorder and
// the codec runtime, so a studio can be driven without Chrome or ffmpeg.
package fake

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/go-rod/screenrec/lib/capture"
	"github.com/go-rod/screenrec/lib/devices"
	"github.com/go-rod/screenrec/lib/media"
	"github.com/go-rod/screenrec/lib/preview"
)

// ErrRefused is returned by Opener when it's blocked
var ErrRefused = errors.New("refused")

// Track is a live video track
type Track struct {
	lock  sync.Mutex
	ended bool
}

// Kind interface
func (t *Track) Kind() capture.Kind { return capture.KindVideo }

// ReadyState interface
func (t *Track) ReadyState() capture.ReadyState {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.ended {
		return capture.ReadyStateEnded
	}
	return capture.ReadyStateLive
}

// Stop interface
func (t *Track) Stop() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.ended = true
}

// Source yields a stream of one Track, or Err
type Source struct {
	Err error
}

// GetDisplayMedia interface
func (s *Source) GetDisplayMedia(context.Context, capture.Constraints) (*capture.Stream, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return capture.NewStream(&Track{}), nil
}

// Window opened by Opener
type Window struct {
	Target string
	Mode   devices.Mode

	lock   sync.Mutex
	closed bool
	source *Source
}

// ID interface
func (w *Window) ID() string { return w.Target }

// Closed interface
func (w *Window) Closed() bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.closed
}

// Focus interface
func (w *Window) Focus() error { return nil }

// Close interface
func (w *Window) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.closed = true
	return nil
}

// Source interface
func (w *Window) Source() capture.DisplaySource { return w.source }

// Opener records every window it opens
type Opener struct {
	lock      sync.Mutex
	windows   []*Window
	block     bool
	sourceErr error
}

var _ preview.Opener = &Opener{}

// Block makes the following opens fail with ErrRefused
func (o *Opener) Block(block bool) {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.block = block
}

// SourceErr is returned by the sources of the following windows
func (o *Opener) SourceErr(err error) {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.sourceErr = err
}

// Windows opened so far
func (o *Opener) Windows() []*Window {
	o.lock.Lock()
	defer o.lock.Unlock()
	return append([]*Window{}, o.windows...)
}

// Open interface
func (o *Opener) Open(_ context.Context, target string, mode devices.Mode) (preview.Window, error) {
	o.lock.Lock()
	defer o.lock.Unlock()

	if o.block {
		return nil, ErrRefused
	}
	w := &Window{Target: target, Mode: mode, source: &Source{Err: o.sourceErr}}
	o.windows = append(o.windows, w)
	return w, nil
}

// Recorder emits what Push sends it, on stop it emits Tail then Stopped
type Recorder struct {
	Opts capture.RecorderOptions
	Tail [][]byte

	events chan capture.Event
	once   sync.Once
}

// Recorders is a factory that sends every created recorder to ch
func Recorders(ch chan<- *Recorder, tail ...[]byte) capture.RecorderFactory {
	return func(_ *capture.Stream, opts capture.RecorderOptions) (capture.Recorder, error) {
		r := &Recorder{Opts: opts, Tail: tail, events: make(chan capture.Event)}
		if ch != nil {
			ch <- r
		}
		return r, nil
	}
}

// Push a chunk, it blocks until the chunk is consumed
func (r *Recorder) Push(data []byte) {
	r.events <- capture.DataAvailable{Data: data}
}

// Start interface
func (r *Recorder) Start(time.Duration) error { return nil }

// Stop interface
func (r *Recorder) Stop() {
	r.once.Do(func() {
		go func() {
			for _, data := range r.Tail {
				r.events <- capture.DataAvailable{Data: data}
			}
			r.events <- capture.Stopped{}
			close(r.events)
		}()
	})
}

// Events interface
func (r *Recorder) Events() <-chan capture.Event { return r.events }

// MimeType interface
func (r *Recorder) MimeType() string {
	if r.Opts.MimeType == "" {
		return media.MIMEWebM
	}
	return r.Opts.MimeType
}

// Codec prefixes the input with "converted:" as the output, it never logs progress
type Codec struct {
	lock    sync.Mutex
	loadErr error
	execErr error
	loads   int
	loaded  bool
	files   map[string][]byte
}

// NewCodec that's not loaded yet
func NewCodec() *Codec {
	return &Codec{files: map[string][]byte{}}
}

// SetLoadErr makes Load fail with err
func (c *Codec) SetLoadErr(err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.loadErr = err
}

// SetExecErr makes Exec fail with err
func (c *Codec) SetExecErr(err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.execErr = err
}

// Loads is the count of Load calls
func (c *Codec) Loads() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.loads
}

// Files left in the work dir
func (c *Codec) Files() map[string][]byte {
	c.lock.Lock()
	defer c.lock.Unlock()

	files := map[string][]byte{}
	for k, v := range c.files {
		files[k] = v
	}
	return files
}

// Load interface
func (c *Codec) Load(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.loads++
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.loadErr != nil {
		return c.loadErr
	}
	c.loaded = true
	return nil
}

// Loaded interface
func (c *Codec) Loaded() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.loaded
}

// Exec interface, the args end with the output and the second one is the input
func (c *Codec) Exec(_ context.Context, args ...string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.execErr != nil {
		return c.execErr
	}
	c.files[args[len(args)-1]] = append([]byte("converted:"), c.files[args[1]]...)
	return nil
}

// WriteFile interface
func (c *Codec) WriteFile(name string, data []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.files[name] = data
	return nil
}

// ReadFile interface
func (c *Codec) ReadFile(name string) ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	data, has := c.files[name]
	if !has {
		return nil, os.ErrNotExist
	}
	return data, nil
}

// DeleteFile interface
func (c *Codec) DeleteFile(name string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.files, name)
	return nil
}

// Logs interface
func (c *Codec) Logs(ctx context.Context) <-chan string {
	ch := make(chan string)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}
