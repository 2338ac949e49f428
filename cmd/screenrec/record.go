package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-rod/screenrec/lib/devices"
	"github.com/go-rod/screenrec/lib/media"
	"github.com/go-rod/screenrec/lib/preview"
	"github.com/spf13/cobra"
)

type recordOptions struct {
	html       bool
	mode       string
	background string
	format     string
	duration   time.Duration
}

func newRecordCmd(config func(*cobra.Command) (*Config, error)) *cobra.Command {
	opts := recordOptions{}

	cmd := &cobra.Command{
		Use:   "record <url | html file>",
		Short: "Record a url or an html file, the video is saved into the dir",
		Example: `  screenrec record https://example.com --duration 10s --format mp4
  screenrec record page.html --html --mode mobile --background "#000"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config(cmd)
			if err != nil {
				return err
			}

			p, err := opts.payload(args[0])
			if err != nil {
				return err
			}

			format, err := media.ParseFormat(opts.format)
			if err != nil {
				return err
			}

			// a random port so that it won't conflict with a running server
			a, err := newApp(cfg, "127.0.0.1:0")
			if err != nil {
				return err
			}
			a.serve()
			defer a.close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path, err := record(ctx, a, p, format, opts.duration)
			if err != nil {
				return err
			}

			fmt.Println(path)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.BoolVar(&opts.html, "html", false, "treat the argument as an html file")
	fs.StringVar(&opts.mode, "mode", string(devices.Desktop), "device mode, desktop or mobile")
	fs.StringVar(&opts.background, "background", preview.DefaultBackground, "background color of the preview")
	fs.StringVarP(&opts.format, "format", "f", string(media.FormatWebM), "format of the video, webm, mp4 or mov")
	fs.DurationVarP(&opts.duration, "duration", "d", 5*time.Second, "length of the recording, an interrupt stops it early")

	return cmd
}

func (o recordOptions) payload(arg string) (preview.Payload, error) {
	p := preview.Payload{
		Content:         arg,
		Kind:            preview.KindURL,
		BackgroundColor: o.background,
		DeviceMode:      devices.Mode(o.mode),
	}

	if o.html {
		b, err := os.ReadFile(arg)
		if err != nil {
			return p, err
		}
		p.Content = string(b)
		p.Kind = preview.KindHTML
	}

	return p, p.Validate()
}

// record blocks until the duration passes or ctx is done, then saves the recording
func record(ctx context.Context, a *app, p preview.Payload, format media.Format, d time.Duration) (string, error) {
	studio := a.studio.Context(ctx)

	if err := studio.OpenPreview(p); err != nil {
		return "", err
	}

	if _, err := studio.StartRecording(); err != nil {
		return "", err
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}

	// the studio of ctx is canceled by now if interrupted
	if _, err := a.studio.StopRecording(); err != nil {
		return "", err
	}

	return a.studio.Download(format)
}
