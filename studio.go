// Package screenrec records a browser window that shows a URL or user-authored HTML, then converts
// the recording into other containers.
//
// The Studio is the controlling side: it accepts user intents, coordinates the preview window, the
// capture controller and the transcoder, and publishes a Snapshot of its state after every change.
package screenrec

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/screenrec/lib/capture"
	"github.com/go-rod/screenrec/lib/media"
	"github.com/go-rod/screenrec/lib/preview"
	"github.com/go-rod/screenrec/lib/settings"
	"github.com/go-rod/screenrec/lib/transcode"
	"github.com/go-rod/screenrec/lib/utils"
	"github.com/ysmood/goob"
)

// Codec is the runtime the studio converts recordings with, *ffmpeg.Runtime implements it
type Codec interface {
	transcode.Codec
	Load(ctx context.Context) error
}

// Snapshot of the studio state
type Snapshot struct {
	PreviewOpen   bool              `json:"previewOpen"`
	CountingDown  bool              `json:"countingDown"`
	Countdown     int               `json:"countdown"`
	Recording     bool              `json:"recording"`
	HasRecording  bool              `json:"hasRecording"`
	RecordingSize int               `json:"recordingSize"`
	Converting    bool              `json:"converting"`
	Progress      int               `json:"progress"`
	Stage         string            `json:"stage"`
	CodecReady    bool              `json:"codecReady"`
	Message       string            `json:"message"`
	Error         string            `json:"error"`
	ErrorCode     string            `json:"errorCode"`
	Settings      settings.Settings `json:"settings"`
}

// Studio is the controlling view of a recording session
type Studio struct {
	ctx           context.Context
	ctxCancel     func()
	timeoutCancel func()

	*core
}

// core is shared by the context clones of a studio
type core struct {
	ctx    context.Context
	cancel func()

	preview   *preview.Manager
	capture   *capture.Controller
	codec     Codec
	converter *transcode.Converter
	logger    utils.Logger
	dir       string
	now       func() time.Time

	lock        sync.Mutex
	snapshot    Snapshot
	cancelStart func()
	codecErr    error

	event *goob.Observable
}

// New studio. The recordings are captured from the windows of pm and encoded by newRecorder.
func New(pm *preview.Manager, codec Codec, newRecorder capture.RecorderFactory) *Studio {
	ctx, cancel := context.WithCancel(context.Background())

	c := &core{
		ctx:       ctx,
		cancel:    cancel,
		preview:   pm,
		codec:     codec,
		converter: transcode.New(codec),
		logger:    utils.DefaultLogger,
		dir:       ".",
		now:       time.Now,
		snapshot:  Snapshot{Settings: settings.Default()},
		event:     goob.New(ctx),
	}

	c.capture = capture.New(func() capture.DisplaySource {
		if w := pm.Current(); w != nil {
			return w.Source()
		}
		return nil
	}, newRecorder)

	s := &Studio{
		ctx:       context.Background(),
		ctxCancel: func() {},
		core:      c,
	}

	go s.watch()

	return s
}

// Logger overrides the default logger
func (s *Studio) Logger(l utils.Logger) *Studio {
	s.logger = l
	s.capture.Logger(l)
	s.converter.Logger(l)
	return s
}

// Dir to save the downloads
func (s *Studio) Dir(dir string) *Studio {
	s.dir = dir
	return s
}

// Capture controller of the studio
func (s *Studio) Capture() *capture.Controller {
	return s.capture
}

// Preview manager of the studio
func (s *Studio) Preview() *preview.Manager {
	return s.preview
}

// watch publishes a snapshot on every capture status change, such as each tick of the countdown
func (s *Studio) watch() {
	for range s.capture.Subscribe(s.core.ctx) {
		s.event.Publish(s.Snapshot())
	}
}

// Snapshot of the current state
func (s *Studio) Snapshot() Snapshot {
	s.lock.Lock()
	snap := s.snapshot
	s.lock.Unlock()

	st := s.capture.Status()
	snap.CountingDown = st.State == capture.StateCountingDown
	snap.Countdown = st.Countdown
	snap.Recording = st.State == capture.StateRecording
	snap.PreviewOpen = s.preview.IsOpen()
	snap.CodecReady = s.codec.Loaded()
	return snap
}

// Subscribe to the snapshots until ctx is done
func (s *Studio) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot)
	sub := s.event.Subscribe(ctx)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-sub:
				if !ok {
					return
				}
				select {
				case ch <- e.(Snapshot):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch
}

func (s *Studio) update(fn func(*Snapshot)) {
	s.lock.Lock()
	fn(&s.snapshot)
	s.lock.Unlock()

	s.event.Publish(s.Snapshot())
}

func (s *Studio) inform(msg string) {
	s.update(func(snap *Snapshot) {
		snap.Message = msg
	})
}

// fail records err in the snapshot until it's dismissed
func (s *Studio) fail(code string, err error, details interface{}) *Error {
	e := &Error{Err: err, Code: code, Details: details}
	s.logger.Println(e)
	s.update(func(snap *Snapshot) {
		snap.Message = ""
		snap.Error = e.Message()
		snap.ErrorCode = code
	})
	return e
}

// OpenPreview opens a window for the payload, the prior window is closed first
func (s *Studio) OpenPreview(p preview.Payload) error {
	if s.capture.Status().State != capture.StateIdle {
		return s.fail(ErrCodePreview, capture.ErrBusy, "stop the recording before opening another preview")
	}

	_, err := s.preview.Open(s.ctx, p)
	if err != nil {
		details := interface{}(nil)
		if errors.Is(err, preview.ErrPopupBlocked) {
			details = "Failed to open preview window. Please allow pop-ups for this site."
		}
		return s.fail(ErrCodePreview, err, details)
	}

	s.update(func(snap *Snapshot) {
		snap.Error = ""
		snap.ErrorCode = ""
		snap.Message = "Preview window opened. Click the record button when ready."
	})
	return nil
}

// ClosePreview closes the window, a running recording is stopped first
func (s *Studio) ClosePreview() error {
	var err error
	if s.capture.Status().State != capture.StateIdle {
		_, err = s.StopRecording()
	}

	s.preview.Close()
	s.inform("")
	return err
}

// StartRecording counts down then starts recording the preview window.
// It blocks until the recording has started, StopRecording during the countdown cancels it.
func (s *Studio) StartRecording() (*capture.Session, error) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	s.lock.Lock()
	s.cancelStart = cancel
	conf := s.snapshot.Settings
	s.lock.Unlock()

	defer func() {
		s.lock.Lock()
		s.cancelStart = nil
		s.lock.Unlock()
	}()

	s.update(func(snap *Snapshot) {
		snap.Message = ""
		snap.Error = ""
		snap.ErrorCode = ""
	})

	s.preview.Focus(ctx)

	session, err := s.capture.Start(ctx, conf)
	if err != nil {
		if errors.Is(err, context.Canceled) && s.ctx.Err() == nil {
			s.inform("Countdown canceled")
			return nil, err
		}
		return nil, s.fail(ErrCodeCapture, err, captureHint(err))
	}

	s.update(func(snap *Snapshot) {
		snap.HasRecording = false
		snap.RecordingSize = 0
		snap.Message = "Recording started"
	})

	return session, nil
}

func captureHint(err error) interface{} {
	switch {
	case errors.Is(err, capture.ErrNoSurface):
		return "Please open the preview window first"
	case errors.Is(err, capture.ErrPermissionDenied):
		return "Please allow screen capture. If you denied it before, grant the permission again and retry."
	case errors.Is(err, capture.ErrUnsupported):
		return "Screen capture is not supported by this browser. Please use a recent version of Chrome."
	}
	return nil
}

// StopRecording finalizes the recording. During the countdown it cancels the countdown and returns nil.
func (s *Studio) StopRecording() (*capture.Session, error) {
	if s.capture.Status().State == capture.StateCountingDown {
		s.lock.Lock()
		cancel := s.cancelStart
		s.lock.Unlock()
		if cancel != nil {
			cancel()
		}
		return nil, nil
	}

	session, err := s.capture.Stop(s.ctx)
	if session == nil {
		return nil, s.fail(ErrCodeCapture, err, nil)
	}

	s.update(func(snap *Snapshot) {
		snap.HasRecording = session.Blob.Size() > 0
		snap.RecordingSize = session.Blob.Size()
		snap.Message = fmt.Sprintf("Recording finished, %s", session.Duration().Round(time.Second))
	})

	if session.Err != nil {
		s.fail(ErrCodeCapture, session.Err, "The recorder failed, the recording may be incomplete")
	}
	if err != nil {
		return session, s.fail(ErrCodeCapture, err, nil)
	}

	return session, nil
}

// Settings of the next recording
func (s *Studio) Settings() settings.Settings {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.snapshot.Settings
}

// ChangeSettings applies the patch, an invalid result is rejected as a whole
func (s *Studio) ChangeSettings(patch settings.Patch) (settings.Settings, error) {
	next := s.Settings().Merge(patch)
	if err := next.Validate(); err != nil {
		return s.Settings(), s.fail(ErrCodeSettings, err, nil)
	}

	s.update(func(snap *Snapshot) {
		snap.Settings = next
	})
	return next, nil
}

// ClearRecording discards the finished recording
func (s *Studio) ClearRecording() error {
	if err := s.capture.Clear(); err != nil {
		return s.fail(ErrCodeCapture, err, nil)
	}

	s.update(func(snap *Snapshot) {
		snap.HasRecording = false
		snap.RecordingSize = 0
		snap.Message = ""
	})
	return nil
}

// DismissError clears the error of the snapshot
func (s *Studio) DismissError() {
	s.update(func(snap *Snapshot) {
		snap.Error = ""
		snap.ErrorCode = ""
	})
}

// LoadCodec loads the codec runtime. A failure is remembered, conversions stay disabled until the
// studio is recreated. A load interrupted by the context of the studio is not remembered.
func (s *Studio) LoadCodec() error {
	s.lock.Lock()
	loadErr := s.codecErr
	s.lock.Unlock()
	if loadErr != nil {
		return s.fail(ErrCodeCodecLoad, loadErr, codecHint(loadErr))
	}

	if err := s.codec.Load(s.ctx); err != nil {
		// an interrupted caller is not a broken codec
		if s.ctx.Err() == nil {
			s.lock.Lock()
			s.codecErr = err
			s.lock.Unlock()
		}
		return s.fail(ErrCodeCodecLoad, err, codecHint(err))
	}

	s.update(func(*Snapshot) {})
	return nil
}

func codecHint(err error) string {
	msg := "Unable to load the video conversion component. "

	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		msg += "Install ffmpeg and make sure it's in the PATH, or set its path with the ffmpeg option."
	case errors.Is(err, fs.ErrPermission):
		msg += "Make sure the ffmpeg binary is executable."
	default:
		msg += "\nDetails: " + err.Error()
	}

	return msg + "\n\nIf the problem persists, try:\n" +
		"1. Installing a recent ffmpeg build\n" +
		"2. Restarting screenrec\n" +
		"3. Checking that the temp dir is writable"
}

// FileName of a download
func FileName(t time.Time, f media.Format) string {
	return fmt.Sprintf("screen-recording-%s.%s", utils.ISOTime(t), f.Ext())
}

// Export the finished recording as format. Formats other than webm are converted, the progress is
// published in the snapshots.
func (s *Studio) Export(format media.Format) (string, *media.Blob, error) {
	src, has := s.capture.Result()
	if !has || src.Size() == 0 {
		return "", nil, &Error{Err: ErrNoRecording, Code: ErrCodeNoRecording}
	}
	if src.Size() > transcode.MaxSourceSize {
		return "", nil, s.fail(ErrCodeConversion, transcode.ErrSourceTooLarge, nil)
	}

	blob := src
	if format != media.FormatWebM {
		var err error
		blob, err = s.convert(src, format)
		if err != nil {
			return "", nil, err
		}
	}

	return FileName(s.now(), format), blob, nil
}

func (s *Studio) convert(src *media.Blob, format media.Format) (*media.Blob, error) {
	if !s.codec.Loaded() {
		if err := s.LoadCodec(); err != nil {
			return nil, err
		}
	}

	s.update(func(snap *Snapshot) {
		snap.Converting = true
		snap.Progress = 0
		snap.Stage = transcode.StagePrepare
		snap.Error = ""
		snap.ErrorCode = ""
		snap.Message = "Converting the video, please wait..."
	})

	blob, err := s.converter.Convert(s.ctx, src, format, s.Settings(), func(p transcode.Progress) {
		s.update(func(snap *Snapshot) {
			snap.Progress = p.Percent
			snap.Stage = p.Stage
		})
	})

	s.update(func(snap *Snapshot) {
		snap.Converting = false
		snap.Progress = 0
		snap.Stage = ""
		snap.Message = ""
	})

	if err != nil {
		details := fmt.Sprintf("Video conversion failed: %v\nThe original webm can still be downloaded.", err)
		return nil, s.fail(ErrCodeConversion, err, details)
	}

	return blob, nil
}

// Download exports the recording as format and saves it into the dir, returns the path of the file
func (s *Studio) Download(format media.Format) (string, error) {
	name, blob, err := s.Export(format)
	if err != nil {
		return "", err
	}

	p := filepath.Join(s.dir, name)
	if err := utils.OutputFile(p, blob.Data); err != nil {
		return "", s.fail(ErrCodeOutput, err, nil)
	}

	s.inform("Saved " + p)
	return p, nil
}

// Close stops the recording, closes the preview window and releases the subscribers
func (s *Studio) Close() error {
	err := s.capture.Close()
	s.preview.Close()
	s.core.cancel()
	return err
}
