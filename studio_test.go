package screenrec_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-rod/screenrec"
	"github.com/go-rod/screenrec/lib/capture"
	"github.com/go-rod/screenrec/lib/ffmpeg"
	"github.com/go-rod/screenrec/lib/media"
	"github.com/go-rod/screenrec/lib/preview"
	"github.com/go-rod/screenrec/lib/settings"
	"github.com/go-rod/screenrec/lib/transcode"
)

func intPtr(i int) *int { return &i }

// record a session with the chunks
func (s *S) record(chunks ...string) *capture.Session {
	s.studio.MustOpenHTML("<h1>hello</h1>")
	s.studio.MustStartRecording()

	r := <-s.recorders
	for _, c := range chunks {
		r.Push([]byte(c))
	}

	return s.studio.MustStopRecording()
}

func (s *S) TestRecordAndDownload() {
	session := s.record("a", "b")
	s.Equal("ab", string(session.Blob.Data))

	snap := s.studio.Snapshot()
	s.True(snap.PreviewOpen)
	s.True(snap.HasRecording)
	s.False(snap.Recording)
	s.Equal(2, snap.RecordingSize)

	p := s.studio.MustDownload()
	s.Equal(s.dir, filepath.Dir(p))
	s.Regexp(regexp.MustCompile(`^screen-recording-\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z\.webm$`), filepath.Base(p))

	data, err := os.ReadFile(p)
	s.Require().NoError(err)
	s.Equal("ab", string(data))

	// webm never touches the codec
	s.Zero(s.codec.Loads())

	s.NoError(s.studio.ClearRecording())
	s.False(s.studio.Snapshot().HasRecording)

	_, err = s.studio.Download(media.FormatWebM)
	s.True(screenrec.IsError(err, screenrec.ErrCodeNoRecording))
	s.ErrorIs(err, screenrec.ErrNoRecording)
}

func (s *S) TestConvert() {
	s.record("webm")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	snaps := s.studio.Subscribe(ctx)

	converting := make(chan []screenrec.Snapshot)
	go func() {
		list := []screenrec.Snapshot{}
		for snap := range snaps {
			list = append(list, snap)
			if snap.Converting && snap.Progress == 100 {
				break
			}
		}
		converting <- list
	}()

	p, err := s.studio.Download(media.FormatMP4)
	s.Require().NoError(err)
	s.Equal(".mp4", filepath.Ext(p))

	data, err := os.ReadFile(p)
	s.Require().NoError(err)
	s.Equal("converted:webm", string(data))

	list := <-converting
	last := -1
	for _, snap := range list {
		if snap.Converting {
			s.GreaterOrEqual(snap.Progress, last)
			last = snap.Progress
		}
	}
	s.Equal(100, last)
	s.Equal(1, s.codec.Loads())

	snap := s.studio.Snapshot()
	s.False(snap.Converting)
	s.True(snap.CodecReady)
	s.Contains(snap.Message, "Saved")
}

func (s *S) TestConversionFailure() {
	s.record("webm")
	s.codec.SetExecErr(errors.New("encoder not found"))

	_, err := s.studio.Download(media.FormatMOV)
	s.True(screenrec.IsError(err, screenrec.ErrCodeConversion))
	s.ErrorIs(err, transcode.ErrConversion)

	snap := s.studio.Snapshot()
	s.Equal(screenrec.ErrCodeConversion, snap.ErrorCode)
	s.Contains(snap.Error, "encoder not found")
	s.Contains(snap.Error, "original webm")
	s.False(snap.Converting)
	s.Empty(s.codec.Files())

	s.studio.DismissError()
	s.Empty(s.studio.Snapshot().Error)

	// the original is still available
	p, err := s.studio.Download(media.FormatWebM)
	s.Require().NoError(err)
	data, err := os.ReadFile(p)
	s.Require().NoError(err)
	s.Equal("webm", string(data))
}

func (s *S) TestCodecLoadFailure() {
	s.codec.SetLoadErr(ffmpeg.ErrLoad)

	err := s.studio.LoadCodec()
	s.True(screenrec.IsError(err, screenrec.ErrCodeCodecLoad))
	s.Contains(s.studio.Snapshot().Error, "If the problem persists")

	s.record("webm")

	_, err = s.studio.Download(media.FormatMP4)
	s.True(screenrec.IsError(err, screenrec.ErrCodeCodecLoad))

	// the failure is remembered, no more tries
	s.Equal(1, s.codec.Loads())
	s.False(s.studio.Snapshot().CodecReady)
}

func (s *S) TestCodecLoadInterrupted() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.studio.Context(ctx).LoadCodec()
	s.True(screenrec.IsError(err, screenrec.ErrCodeCodecLoad))
	s.ErrorIs(err, context.Canceled)

	// a canceled caller doesn't disable the codec
	s.NoError(s.studio.LoadCodec())
	s.True(s.studio.Snapshot().CodecReady)
	s.Equal(2, s.codec.Loads())
}

func (s *S) TestExportWhileStopping() {
	s.studio.MustOpenHTML("x")
	s.studio.MustStartRecording()
	r := <-s.recorders
	r.Push([]byte("a"))

	stopped := make(chan error, 1)
	go func() {
		_, err := s.studio.StopRecording()
		stopped <- err
	}()

	for {
		_, blob, err := s.studio.Export(media.FormatWebM)
		if err == nil {
			s.Equal("a", string(blob.Data))
			break
		}
		s.Require().ErrorIs(err, screenrec.ErrNoRecording)
	}

	s.NoError(<-stopped)
}

func (s *S) TestCodecHints() {
	s.codec.SetLoadErr(&os.PathError{Op: "stat", Path: "/no/ffmpeg", Err: os.ErrNotExist})

	err := s.studio.LoadCodec()
	s.Contains(err.Error(), "Install ffmpeg")
}

func (s *S) TestNoPreview() {
	_, err := s.studio.StartRecording()
	s.True(screenrec.IsError(err, screenrec.ErrCodeCapture))
	s.ErrorIs(err, capture.ErrNoSurface)
	s.Equal("Please open the preview window first", s.studio.Snapshot().Error)
}

func (s *S) TestPermissionDenied() {
	s.opener.SourceErr(capture.ErrPermissionDenied)
	s.studio.MustOpenURL("https://example.com")

	_, err := s.studio.StartRecording()
	s.ErrorIs(err, capture.ErrPermissionDenied)

	snap := s.studio.Snapshot()
	s.Contains(snap.Error, "allow screen capture")
	s.False(snap.Recording)
	s.False(snap.CountingDown)
	s.Equal(capture.StateIdle, s.studio.Capture().Status().State)
}

func (s *S) TestPopupBlocked() {
	s.opener.Block(true)

	err := s.studio.OpenPreview(preview.Payload{Kind: preview.KindHTML, Content: "x"})
	s.ErrorIs(err, preview.ErrPopupBlocked)
	s.Contains(s.studio.Snapshot().Error, "allow pop-ups")
	s.False(s.studio.Snapshot().PreviewOpen)
}

func (s *S) TestCancelCountdown() {
	s.sleep = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	s.studio.MustOpenHTML("x")

	done := make(chan error)
	go func() {
		_, err := s.studio.StartRecording()
		done <- err
	}()

	s.Eventually(func() bool {
		return s.studio.Snapshot().CountingDown
	}, time.Second, 10*time.Millisecond)
	s.Equal(3, s.studio.Snapshot().Countdown)

	session, err := s.studio.StopRecording()
	s.NoError(err)
	s.Nil(session)

	s.ErrorIs(<-done, context.Canceled)
	s.Equal("Countdown canceled", s.studio.Snapshot().Message)
	s.Empty(s.studio.Snapshot().Error)
}

func (s *S) TestBusyPreview() {
	s.studio.MustOpenHTML("x")
	s.studio.MustStartRecording()

	err := s.studio.OpenPreview(preview.Payload{Kind: preview.KindHTML, Content: "y"})
	s.ErrorIs(err, capture.ErrBusy)

	// closing the preview stops the recording first
	s.NoError(s.studio.ClosePreview())
	s.False(s.studio.Snapshot().PreviewOpen)
	s.Equal(capture.StateIdle, s.studio.Capture().Status().State)
	s.Len(s.opener.Windows(), 1)
	s.True(s.opener.Windows()[0].Closed())
}

func (s *S) TestChangeSettings() {
	res := settings.Resolution("720P")
	next, err := s.studio.ChangeSettings(settings.Patch{Countdown: intPtr(0), Resolution: &res})
	s.Require().NoError(err)
	s.Equal(0, next.Countdown)
	s.Equal(settings.Resolution720p, next.Resolution)

	_, err = s.studio.ChangeSettings(settings.Patch{FrameRate: intPtr(25)})
	s.True(screenrec.IsError(err, screenrec.ErrCodeSettings))
	s.Equal(30, s.studio.Settings().FrameRate)

	s.studio.MustSettings(settings.Patch{FrameRate: intPtr(60)})
	s.studio.MustOpenHTML("x")
	s.studio.MustStartRecording()
	r := <-s.recorders
	s.Equal(60, r.Opts.FrameRate)
	s.studio.MustStopRecording()
}

func (s *S) TestContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.studio.Context(ctx).OpenPreview(preview.Payload{Kind: preview.KindHTML, Content: "x"})
	s.NoError(err)

	_, err = s.studio.Context(ctx).StartRecording()
	s.True(screenrec.IsError(err, screenrec.ErrCodeCapture))
	s.ErrorIs(err, context.Canceled)

	t := s.studio.Timeout(time.Minute)
	s.NotEqual(s.studio.GetContext(), t.GetContext())
	t.CancelTimeout()
	s.Error(t.GetContext().Err())
}

func (s *S) TestMust() {
	s.Panics(func() { s.studio.MustStartRecording() })
	s.Panics(func() { s.studio.MustDownload() })
	s.Panics(func() { s.studio.MustOpenURL("example.com") })
}
