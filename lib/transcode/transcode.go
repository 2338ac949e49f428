// Package transcode converts a recording into another container with the codec runtime.
package transcode

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
)

// MaxSourceSize of a recording that can be converted
const MaxSourceSize = 100 * 1024 * 1024

var (
	// ErrCodecNotLoaded is returned when the codec runtime is not ready
	ErrCodecNotLoaded = errors.New("codec runtime is not loaded yet")
	// ErrSourceTooLarge is returned when the source exceeds MaxSourceSize
	ErrSourceTooLarge = errors.New("video file is too large (over 100MB) to be converted, record a shorter video")
	// ErrConversion wraps every failure that happens during a conversion
	ErrConversion = errors.New("video conversion failed")
)

// Codec is the runtime that does the real work, *ffmpeg.Runtime implements it
type Codec interface {
	Loaded() bool
	Exec(ctx context.Context, args ...string) error
	WriteFile(name string, data []byte) error
	ReadFile(name string) ([]byte, error)
	DeleteFile(name string) error
	Logs(ctx context.Context) <-chan string
}

// Converter runs one conversion at a time on a codec
type Converter struct {
	codec  Codec
	source ProgressSource
	logger utils.Logger

	lock sync.Mutex
}

// New converter
func New(codec Codec) *Converter {
	return &Converter{
		codec:  codec,
		source: NewLogProgress(),
		logger: utils.DefaultLogger,
	}
}

// Progress overrides the default progress source
func (c *Converter) Progress(s ProgressSource) *Converter {
	c.source = s
	return c
}

// Logger overrides the default logger
func (c *Converter) Logger(l utils.Logger) *Converter {
	c.logger = l
	return c
}

// Convert src into format. The onProgress is called with a monotonic percent, it won't be called
// after Convert returns. Temp files inside the codec are removed whether the conversion succeeds or not.
func (c *Converter) Convert(
	ctx context.Context, src *media.Blob, format media.Format, s settings.Settings, onProgress func(Progress),
) (*media.Blob, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.codec.Loaded() {
		return nil, ErrCodecNotLoaded
	}
	if src.Size() > MaxSourceSize {
		return nil, ErrSourceTooLarge
	}

	start := time.Now()
	t := newTracker(onProgress)
	t.set(StagePrepare, 0)

	input, output := "input.webm", "output."+format.Ext()
	c.cleanup(input, output)

	c.source.Reset()
	logCtx, cancel := context.WithCancel(ctx)
	logs := c.codec.Logs(logCtx)
	logDone := make(chan struct{})
	go func() {
		defer close(logDone)
		for line := range logs {
			if p, ok := c.source.Feed(line); ok {
				t.set("", p)
			}
		}
	}()
	defer func() {
		cancel()
		<-logDone
	}()

	blob, err := c.convert(ctx, t, src, format, s, input, output)
	if err != nil {
		c.cleanup(input, output)
		metrics.ConversionsTotal.WithLabelValues(string(format), "error").Inc()
		c.logger.Println("conversion failed:", err)
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}

	t.set(StageDone, 100)
	metrics.ConversionsTotal.WithLabelValues(string(format), "ok").Inc()
	metrics.ConversionDuration.WithLabelValues(string(format)).Observe(time.Since(start).Seconds())

	return blob, nil
}

func (c *Converter) convert(
	ctx context.Context, t *tracker, src *media.Blob, format media.Format, s settings.Settings, input, output string,
) (*media.Blob, error) {
	t.set(StageRead, 5)
	data := src.Data
	if data == nil {
		data = []byte{}
	}

	t.set(StageWrite, 10)
	if err := c.codec.WriteFile(input, data); err != nil {
		return nil, err
	}

	t.set(StageAnalyze, 15)
	args := Args(format, s, input, output)

	t.set(StageConvert, 20)
	c.logger.Println("converting with:", args)
	if err := c.codec.Exec(ctx, args...); err != nil {
		return nil, err
	}

	t.set(StageOutput, 90)
	out, err := c.codec.ReadFile(output)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("codec produced an empty file")
	}

	t.set(StageFinalize, 95)
	if err := c.codec.DeleteFile(input); err != nil {
		return nil, err
	}
	if err := c.codec.DeleteFile(output); err != nil {
		return nil, err
	}

	return &media.Blob{Data: out, Type: format.MIME()}, nil
}

// cleanup ignores errors, the files may not exist
func (c *Converter) cleanup(names ...string) {
	for _, name := range names {
		_ = c.codec.DeleteFile(name)
	}
}

// Args for the codec to convert input into output with format
func Args(format media.Format, s settings.Settings, input, output string) []string {
	args := []string{
		"-i", input,
		"-threads", "0",
	}

	if size := s.Resolution.Size(); size != "" {
		args = append(args, "-vf", fmt.Sprintf(
			"scale=%s:force_original_aspect_ratio=decrease,pad=%s:(ow-iw)/2:(oh-ih)/2", size, size,
		))
	}

	switch format {
	case media.FormatMP4:
		maxrate := []string{"-maxrate", "2M", "-bufsize", "4M"}
		if s.Resolution == settings.Resolution1080p {
			maxrate = []string{"-maxrate", "4M", "-bufsize", "8M"}
		}
		args = append(args, "-movflags", "+faststart", "-c:v", "h264", "-preset", "veryfast")
		args = append(args, maxrate...)
		args = append(args,
			"-crf", "30",
			"-tune", "fastdecode",
			"-c:a", "aac",
			"-b:a", "128k",
			"-ac", "2",
			"-ar", "44100",
		)

	case media.FormatMOV:
		args = append(args,
			"-movflags", "+faststart",
			"-c:v", "prores_ks",
			"-profile:v", "0",
			"-vendor", "apl0",
			"-c:a", "pcm_s16le",
			"-ac", "2",
			"-ar", "44100",
		)

	default:
		args = append(args,
			"-c:v", "libvpx-vp9",
			"-b:v", fmt.Sprint(s.VideoBitrate),
			"-c:a", "libopus",
			"-b:a", fmt.Sprint(s.AudioBitrate),
			"-ac", "2",
			"-ar", "48000",
		)
	}

	return append(args, "-y", output)
}
