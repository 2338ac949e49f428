package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/screenrec/lib/media"
	"github.com/go-rod/screenrec/lib/metrics"
	"github.com/go-rod/screenrec/lib/settings"
	"github.com/go-rod/screenrec/lib/utils"
	"github.com/google/uuid"
	"github.com/ysmood/goob"
)

// State of the Controller
type State string

const (
	// StateIdle nothing is being captured
	StateIdle State = "idle"
	// StateCountingDown the countdown before the capture is running
	StateCountingDown State = "counting-down"
	// StateRecording the recorder is running
	StateRecording State = "recording"
)

// Status is published on every state change
type Status struct {
	State State `json:"state"`
	// Countdown is the number of seconds left while counting down
	Countdown int    `json:"countdown"`
	SessionID string `json:"sessionId,omitempty"`
}

// Session of a recording
type Session struct {
	ID       string
	Active   bool
	Settings settings.Settings
	Chunks   [][]byte
	Blob     *media.Blob
	Err      error

	StartedAt time.Time
	StoppedAt time.Time
}

// Duration of the session, zero while active
func (s *Session) Duration() time.Duration {
	if s.Active {
		return 0
	}
	return s.StoppedAt.Sub(s.StartedAt)
}

// Controller drives a recording: countdown, acquiring the stream, running the recorder and
// finalizing the session.
type Controller struct {
	ctx    context.Context
	cancel func()

	surface     func() DisplaySource
	newRecorder RecorderFactory
	sleeper     func() utils.Sleeper
	timeslice   time.Duration
	logger      utils.Logger

	lock      sync.Mutex
	status    Status
	session   *Session
	stream    *Stream
	recorder  Recorder
	collected chan struct{}

	event *goob.Observable
}

// New controller. The surface returns the source to capture, nil when there is none.
func New(surface func() DisplaySource, newRecorder RecorderFactory) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		ctx:         ctx,
		cancel:      cancel,
		surface:     surface,
		newRecorder: newRecorder,
		sleeper:     func() utils.Sleeper { return utils.IntervalSleeper(time.Second) },
		timeslice:   time.Second,
		logger:      utils.DefaultLogger,
		status:      Status{State: StateIdle},
		event:       goob.New(ctx),
	}
}

// Logger overrides the default logger
func (c *Controller) Logger(l utils.Logger) *Controller {
	c.logger = l
	return c
}

// Sleeper overrides the one second tick of the countdown
func (c *Controller) Sleeper(s func() utils.Sleeper) *Controller {
	c.sleeper = s
	return c
}

// Timeslice overrides how often the recorder emits data, default is one second
func (c *Controller) Timeslice(d time.Duration) *Controller {
	c.timeslice = d
	return c
}

// Status of the controller
func (c *Controller) Status() Status {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.status
}

// Session returns a copy of the current or the last finished session, nil after Clear
func (c *Controller) Session() *Session {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.session == nil {
		return nil
	}
	cp := *c.session
	cp.Chunks = append([][]byte{}, c.session.Chunks...)
	return &cp
}

// Result is the blob of the last finished session, false while recording or when there's none
func (c *Controller) Result() (*media.Blob, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.session == nil || c.session.Active {
		return nil, false
	}
	return c.session.Blob, true
}

// Subscribe to status changes until ctx is done
func (c *Controller) Subscribe(ctx context.Context) <-chan Status {
	ch := make(chan Status)
	s := c.event.Subscribe(ctx)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-s:
				if !ok {
					return
				}
				select {
				case ch <- e.(Status):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch
}

func (c *Controller) setStatus(s Status) {
	c.lock.Lock()
	c.status = s
	c.lock.Unlock()
	c.event.Publish(s)
}

func (c *Controller) idle() {
	metrics.RecordingActive.Set(0)
	c.setStatus(Status{State: StateIdle})
}

// Start counts down then starts recording the surface. Canceling ctx aborts the countdown, it has no
// effect once the recording has started. When it fails the controller goes back to idle.
func (c *Controller) Start(ctx context.Context, s settings.Settings) (*Session, error) {
	c.lock.Lock()
	if c.status.State != StateIdle {
		c.lock.Unlock()
		return nil, ErrBusy
	}
	var src DisplaySource
	if c.surface != nil {
		src = c.surface()
	}
	if src == nil {
		c.lock.Unlock()
		return nil, ErrNoSurface
	}
	c.status = Status{State: StateCountingDown, Countdown: s.Countdown}
	c.lock.Unlock()

	session, err := c.start(ctx, src, s)
	if err != nil {
		status := "error"
		switch {
		case errors.Is(err, ErrPermissionDenied):
			status = "denied"
		case errors.Is(err, ErrUnsupported):
			status = "unsupported"
		}
		metrics.RecordingsTotal.WithLabelValues(status).Inc()
		c.logger.Println("recording failed to start:", err)
		c.idle()
		return nil, err
	}

	return session, nil
}

func (c *Controller) start(ctx context.Context, src DisplaySource, s settings.Settings) (*Session, error) {
	sleep := c.sleeper()
	for left := s.Countdown; left > 0; left-- {
		c.setStatus(Status{State: StateCountingDown, Countdown: left})
		if err := sleep(ctx); err != nil {
			return nil, err
		}
	}

	stream, err := src.GetDisplayMedia(ctx, Constraints{
		Video: VideoConstraints{FrameRate: s.FrameRate},
		Audio: &AudioConstraints{EchoCancellation: true, NoiseSuppression: true},
	})
	if err != nil {
		return nil, err
	}

	rec, err := c.newRecorder(stream, RecorderOptions{
		MimeType:           media.MIMEWebMVP9,
		FrameRate:          s.FrameRate,
		VideoBitsPerSecond: s.VideoBitrate,
		AudioBitsPerSecond: s.AudioBitrate,
	})
	if err != nil {
		stream.Stop()
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	session := &Session{
		ID:        uuid.New().String(),
		Active:    true,
		Settings:  s,
		Chunks:    [][]byte{},
		StartedAt: time.Now(),
	}

	collected := make(chan struct{})
	go c.collect(rec, session, collected)

	if err := rec.Start(c.timeslice); err != nil {
		rec.Stop()
		<-collected
		stream.Stop()
		return nil, err
	}

	c.lock.Lock()
	c.session = session
	c.stream = stream
	c.recorder = rec
	c.collected = collected
	started := *session
	started.Chunks = [][]byte{}
	c.lock.Unlock()

	metrics.RecordingActive.Set(1)
	c.setStatus(Status{State: StateRecording, SessionID: session.ID})
	c.logger.Println("recording started:", session.ID)

	return &started, nil
}

// collect appends chunks in arrival order until the recorder stops
func (c *Controller) collect(rec Recorder, session *Session, done chan struct{}) {
	defer close(done)

	for e := range rec.Events() {
		switch e := e.(type) {
		case DataAvailable:
			if len(e.Data) == 0 {
				continue
			}
			c.lock.Lock()
			session.Chunks = append(session.Chunks, e.Data)
			c.lock.Unlock()
			metrics.RecordedBytes.Add(float64(len(e.Data)))

		case RecorderError:
			c.logger.Println("recorder error:", e.Err)
			c.lock.Lock()
			if session.Err == nil {
				session.Err = e.Err
			}
			c.lock.Unlock()

		case Stopped:
			return
		}
	}
}

// Stop the recording, wait for the remaining chunks, then finalize the session blob.
// Every track of the stream is stopped before it returns.
func (c *Controller) Stop(ctx context.Context) (*Session, error) {
	c.lock.Lock()
	if c.status.State != StateRecording || c.recorder == nil {
		c.lock.Unlock()
		return nil, ErrNotRecording
	}
	rec, stream, collected, session := c.recorder, c.stream, c.collected, c.session
	// claims the stop, a concurrent Stop gets ErrNotRecording
	c.recorder = nil
	c.lock.Unlock()

	rec.Stop()

	var err error
	select {
	case <-collected:
	case <-ctx.Done():
		err = ctx.Err()
	}

	stream.Stop()

	c.lock.Lock()
	session.Active = false
	session.StoppedAt = time.Now()
	session.Blob = media.NewBlob(session.Chunks, media.MIMEWebM)
	c.stream = nil
	c.collected = nil
	result := *session
	c.lock.Unlock()

	metrics.RecordingsTotal.WithLabelValues("ok").Inc()
	c.idle()
	c.logger.Println("recording stopped:", result.ID, result.Blob.Size(), "bytes")

	return &result, err
}

// Clear discards the finished session
func (c *Controller) Clear() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.status.State == StateRecording {
		return ErrBusy
	}
	c.session = nil
	return nil
}

// Close stops the recording if there is one and releases the subscribers
func (c *Controller) Close() error {
	if c.Status().State == StateRecording {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = c.Stop(ctx)
	}
	c.cancel()
	return nil
}
