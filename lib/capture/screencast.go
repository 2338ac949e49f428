package capture

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/screenrec/lib/utils"
)

// Screencast captures a browser page through the CDP screencast
type Screencast struct {
	page    *rod.Page
	quality int
	logger  utils.Logger
}

var _ DisplaySource = &Screencast{}

// NewScreencast of the page
func NewScreencast(page *rod.Page) *Screencast {
	return &Screencast{
		page:    page,
		quality: 90,
		logger:  utils.DefaultLogger,
	}
}

// Quality of the jpeg frames, from 0 to 100
func (s *Screencast) Quality(q int) *Screencast {
	s.quality = q
	return s
}

// Logger overrides the default logger
func (s *Screencast) Logger(l utils.Logger) *Screencast {
	s.logger = l
	return s
}

// GetDisplayMedia starts the screencast and returns a stream with a single video track.
// A page has no audio output to capture, the audio constraints are only logged.
func (s *Screencast) GetDisplayMedia(ctx context.Context, c Constraints) (*Stream, error) {
	if c.Audio != nil {
		s.logger.Println("audio capture is not available for a page, recording video only",
			fmt.Sprintf("(echoCancellation: %v, noiseSuppression: %v)", c.Audio.EchoCancellation, c.Audio.NoiseSuppression))
	}

	listen, stop := context.WithCancel(context.Background())
	t := &screencastTrack{
		trackState: newTrackState(),
		page:       s.page,
		stop:       stop,
	}

	// subscribe before the screencast starts so the first frame isn't missed
	p := s.page.Context(listen)
	wait := p.EachEvent(func(e *proto.PageScreencastFrame) {
		err := proto.PageScreencastFrameAck{SessionID: e.SessionID}.Call(p)
		if err != nil && listen.Err() == nil {
			s.logger.Println("screencast frame ack:", err)
		}
		t.set(e.Data)
	})
	go wait()

	everyNthFrame := 1
	err := proto.PageStartScreencast{
		Format:        proto.PageStartScreencastFormatJpeg,
		Quality:       &s.quality,
		EveryNthFrame: &everyNthFrame,
	}.Call(s.page.Context(ctx))
	if err != nil {
		stop()
		return nil, classify(err)
	}

	return NewStream(t), nil
}

// classify maps a CDP failure to the capture errors
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission") || strings.Contains(msg, "not allowed") {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %v", ErrUnsupported, err)
}

type screencastTrack struct {
	*trackState

	page *rod.Page
	stop func()

	lock   sync.Mutex
	latest []byte
}

var _ FrameTrack = &screencastTrack{}

func (t *screencastTrack) Kind() Kind {
	return KindVideo
}

func (t *screencastTrack) set(frame []byte) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.latest = frame
}

func (t *screencastTrack) Frame() []byte {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.latest
}

func (t *screencastTrack) Stop() {
	t.end(func() {
		t.stop()
		// the page may be closed already
		_ = proto.PageStopScreencast{}.Call(t.page)
	})
}
