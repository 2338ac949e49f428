// Package capture records a display surface into a webm session.
//
// A DisplaySource hands out a Stream of tracks, a Recorder turns the stream into chunks that are
// delivered as Events, and the Controller owns the Idle, CountingDown, Recording state machine
// around them.
package capture

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNoSurface is returned when there is nothing to capture, such as no preview window
	ErrNoSurface = errors.New("no surface to capture, open a preview first")
	// ErrPermissionDenied is returned when the surface refuses to be captured
	ErrPermissionDenied = errors.New("permission to capture the surface was denied")
	// ErrUnsupported is returned when the surface can't be captured at all
	ErrUnsupported = errors.New("capturing the surface is not supported")
	// ErrBusy is returned when a recording is already counting down or in progress
	ErrBusy = errors.New("a recording is already in progress")
	// ErrNotRecording is returned when there is no recording to stop
	ErrNotRecording = errors.New("not recording")
)

// Kind of a track
type Kind string

const (
	// KindVideo track
	KindVideo Kind = "video"
	// KindAudio track
	KindAudio Kind = "audio"
)

// ReadyState of a track
type ReadyState string

const (
	// ReadyStateLive track is producing media
	ReadyStateLive ReadyState = "live"
	// ReadyStateEnded track has been stopped, it never becomes live again
	ReadyStateEnded ReadyState = "ended"
)

// Track of a Stream
type Track interface {
	Kind() Kind
	ReadyState() ReadyState
	// Stop releases the underlying source, it must be safe to call more than once
	Stop()
}

// FrameTrack is a video track that exposes its latest encoded frame
type FrameTrack interface {
	Track
	// Frame returns the latest jpeg frame, nil before the first frame arrives
	Frame() []byte
}

// Stream is a set of tracks captured together
type Stream struct {
	tracks []Track
}

// NewStream from tracks
func NewStream(tracks ...Track) *Stream {
	return &Stream{tracks: tracks}
}

// Tracks of the stream
func (s *Stream) Tracks() []Track {
	return s.tracks
}

// VideoTrack returns the first video track, nil if there's none
func (s *Stream) VideoTrack() Track {
	for _, t := range s.tracks {
		if t.Kind() == KindVideo {
			return t
		}
	}
	return nil
}

// Stop every track
func (s *Stream) Stop() {
	for _, t := range s.tracks {
		t.Stop()
	}
}

// VideoConstraints of a display media request
type VideoConstraints struct {
	FrameRate int
}

// AudioConstraints of a display media request
type AudioConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
}

// Constraints of a display media request, nil Audio means no audio is requested
type Constraints struct {
	Video VideoConstraints
	Audio *AudioConstraints
}

// DisplaySource is the platform capture facility
type DisplaySource interface {
	// GetDisplayMedia returns ErrPermissionDenied or ErrUnsupported when the stream can't be acquired
	GetDisplayMedia(ctx context.Context, c Constraints) (*Stream, error)
}

// Event of a recorder
type Event interface {
	isEvent()
}

// DataAvailable carries a chunk of encoded media
type DataAvailable struct {
	Data []byte
}

// RecorderError is emitted when the recorder fails, the recorder stops afterwards
type RecorderError struct {
	Err error
}

// Stopped is the last event of a recorder
type Stopped struct{}

func (DataAvailable) isEvent() {}
func (RecorderError) isEvent() {}
func (Stopped) isEvent()       {}

// RecorderOptions for a Recorder
type RecorderOptions struct {
	MimeType           string
	FrameRate          int
	VideoBitsPerSecond int
	AudioBitsPerSecond int
}

// Recorder encodes a Stream. After Stop it emits the remaining data, then a Stopped event, then
// the Events channel is closed.
type Recorder interface {
	// Start emits a DataAvailable roughly every timeslice
	Start(timeslice time.Duration) error
	Stop()
	Events() <-chan Event
	MimeType() string
}

// RecorderFactory creates a Recorder for a stream
type RecorderFactory func(stream *Stream, opts RecorderOptions) (Recorder, error)

// trackState is the shared bookkeeping of a track
type trackState struct {
	lock  sync.Mutex
	state ReadyState
	once  sync.Once
}

func newTrackState() *trackState {
	return &trackState{state: ReadyStateLive}
}

func (t *trackState) ReadyState() ReadyState {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.state
}

// end runs fn once and marks the track ended
func (t *trackState) end(fn func()) {
	t.once.Do(func() {
		fn()
		t.lock.Lock()
		t.state = ReadyStateEnded
		t.lock.Unlock()
	})
}
