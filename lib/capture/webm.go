package capture

import (
	"bytes"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/go-rod/screenrec/lib/ffmpeg"
	"github.com/go-rod/screenrec/lib/media"
	"github.com/go-rod/screenrec/lib/utils"
)

// WebMRecorder encodes the frames of a FrameTrack into vp9 webm with an ffmpeg process.
// The screencast only emits a frame when the page changes, so the latest frame is repeated
// at the requested frame rate to fill the time.
type WebMRecorder struct {
	bin    string
	track  FrameTrack
	opts   RecorderOptions
	logger utils.Logger

	out    *chunkBuffer
	events chan Event

	lock    sync.Mutex
	started bool
	stop    chan struct{}
	once    sync.Once
}

var _ Recorder = &WebMRecorder{}

// NewWebMRecorder returns a RecorderFactory that uses the ffmpeg bin
func NewWebMRecorder(bin string, logger utils.Logger) RecorderFactory {
	return func(stream *Stream, opts RecorderOptions) (Recorder, error) {
		t, ok := stream.VideoTrack().(FrameTrack)
		if !ok {
			return nil, errors.New("the stream has no video frames")
		}
		if opts.FrameRate <= 0 {
			opts.FrameRate = 30
		}
		if opts.MimeType == "" {
			opts.MimeType = media.MIMEWebMVP9
		}
		if logger == nil {
			logger = utils.DefaultLogger
		}

		return &WebMRecorder{
			bin:    bin,
			track:  t,
			opts:   opts,
			logger: logger,
			out:    &chunkBuffer{},
			events: make(chan Event),
			stop:   make(chan struct{}),
		}, nil
	}
}

// MimeType of the output
func (r *WebMRecorder) MimeType() string {
	return r.opts.MimeType
}

// Events of the recorder
func (r *WebMRecorder) Events() <-chan Event {
	return r.events
}

func (r *WebMRecorder) args() []string {
	args := []string{
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-framerate", strconv.Itoa(r.opts.FrameRate),
		"-i", "pipe:0",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-c:v", "libvpx-vp9",
		"-deadline", "realtime",
		"-cpu-used", "8",
		"-pix_fmt", "yuv420p",
	}
	if r.opts.VideoBitsPerSecond > 0 {
		args = append(args, "-b:v", strconv.Itoa(r.opts.VideoBitsPerSecond))
	}
	return append(args, "-f", "webm", "pipe:1")
}

// Start the encoder, a DataAvailable is emitted every timeslice when there is new data
func (r *WebMRecorder) Start(timeslice time.Duration) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.started {
		return errors.New("recorder already started")
	}
	select {
	case <-r.stop:
		return errors.New("recorder already stopped")
	default:
	}

	pipe, err := ffmpeg.StartPipe(r.bin, r.args(), r.out, nil)
	if err != nil {
		return err
	}
	r.started = true
	r.logger.Println("webm encoder started:", r.opts.FrameRate, "fps")

	if timeslice <= 0 {
		timeslice = time.Second
	}

	go r.run(pipe, timeslice)

	return nil
}

func (r *WebMRecorder) run(pipe *ffmpeg.Pipe, timeslice time.Duration) {
	defer close(r.events)

	frame := time.NewTicker(time.Second / time.Duration(r.opts.FrameRate))
	defer frame.Stop()
	flush := time.NewTicker(timeslice)
	defer flush.Stop()

	var failure error

loop:
	for {
		select {
		case <-r.stop:
			break loop

		case <-pipe.Done():
			failure = pipe.Wait()
			if failure == nil {
				failure = errors.New("encoder exited before the recorder stopped")
			}
			break loop

		case <-frame.C:
			data := r.track.Frame()
			if data == nil {
				continue
			}
			if _, err := pipe.Write(data); err != nil {
				failure = err
				break loop
			}

		case <-flush.C:
			if data := r.out.take(); len(data) > 0 {
				r.events <- DataAvailable{Data: data}
			}
		}
	}

	_ = pipe.CloseInput()
	if err := pipe.Wait(); err != nil && failure == nil {
		failure = err
	}

	if data := r.out.take(); len(data) > 0 {
		r.events <- DataAvailable{Data: data}
	}
	if failure != nil {
		r.events <- RecorderError{Err: failure}
	}
	r.events <- Stopped{}
}

// Stop the recorder, it's safe to call multiple times
func (r *WebMRecorder) Stop() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.once.Do(func() {
		close(r.stop)
		if !r.started {
			go func() {
				r.events <- Stopped{}
				close(r.events)
			}()
		}
	})
}

// chunkBuffer collects the encoder output between two flushes
type chunkBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *chunkBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *chunkBuffer) take() []byte {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.buf.Len() == 0 {
		return nil
	}
	data := make([]byte, b.buf.Len())
	copy(data, b.buf.Bytes())
	b.buf.Reset()
	return data
}
