package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-rod/screenrec/lib/ffmpeg"
	"github.com/go-rod/screenrec/lib/media"
	"github.com/go-rod/screenrec/lib/transcode"
	"github.com/go-rod/screenrec/lib/utils"
	"github.com/spf13/cobra"
)

func newConvertCmd(config func(*cobra.Command) (*Config, error)) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:     "convert <webm file>",
		Short:   "Convert a webm recording to mp4 or mov",
		Example: `  screenrec convert screen-recording.webm -f mov --resolution 720p`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config(cmd)
			if err != nil {
				return err
			}

			f, err := media.ParseFormat(format)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "." + f.Ext()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return convert(ctx, cfg, media.NewBlob([][]byte{data}, media.MIMEWebM), f, output)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(media.FormatMP4), "target format, mp4 or mov")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, defaults to the input with the extension of the format")

	return cmd
}

func convert(ctx context.Context, cfg *Config, src *media.Blob, f media.Format, output string) error {
	logger := utils.DefaultLogger

	codec := ffmpeg.New(cfg.FFmpeg).Logger(logger).Trace(cfg.Trace)
	defer func() { _ = codec.Close() }()

	if err := codec.Load(ctx); err != nil {
		return err
	}

	last := -1
	blob, err := transcode.New(codec).Logger(logger).Convert(ctx, src, f, cfg.Settings, func(p transcode.Progress) {
		if p.Percent != last {
			last = p.Percent
			fmt.Fprintf(os.Stderr, "\r%3d%% %s", p.Percent, p.Stage)
		}
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	if err := utils.OutputFile(output, blob.Data); err != nil {
		return err
	}

	fmt.Println(output)
	return nil
}
