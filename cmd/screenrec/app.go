package main

import (
	"context"
	"net"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/screenrec"
	"github.com/go-rod/screenrec/lib/capture"
	"github.com/go-rod/screenrec/lib/ffmpeg"
	"github.com/go-rod/screenrec/lib/preview"
	"github.com/go-rod/screenrec/lib/server"
	"github.com/go-rod/screenrec/lib/settings"
	"github.com/go-rod/screenrec/lib/utils"
)

// app is a studio wired to a real browser and ffmpeg, with the control server listening
type app struct {
	logger   utils.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	codec    *ffmpeg.Runtime
	studio   *screenrec.Studio
	server   *server.Server
	listener net.Listener

	serving bool
	done    chan error
	cancel  func()
}

// newApp listens on addr, the preview view is served from it
func newApp(cfg *Config, addr string) (*app, error) {
	a := &app{logger: utils.DefaultLogger, done: make(chan error, 1), cancel: func() {}}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	a.listener = l

	if err := a.connect(cfg); err != nil {
		_ = l.Close()
		return nil, err
	}

	a.codec = ffmpeg.New(cfg.FFmpeg).Logger(a.logger).Trace(cfg.Trace)

	store := preview.NewStore(time.Minute)
	pm := preview.NewManager(
		preview.NewRodOpener(a.browser).Logger(a.logger),
		store,
		"http://"+l.Addr().String(),
	).Logger(a.logger)

	a.studio = screenrec.New(pm, a.codec, capture.NewWebMRecorder(cfg.FFmpeg, a.logger)).
		Logger(a.logger).
		Dir(cfg.Dir)

	if _, err := a.studio.ChangeSettings(patch(cfg.Settings)); err != nil {
		a.close()
		return nil, err
	}

	a.server = server.New(a.studio, store).Logger(a.logger)

	return a, nil
}

func (a *app) connect(cfg *Config) error {
	u := cfg.URL
	if u == "" {
		a.launcher = launcher.New().Headless(!cfg.Show)
		if cfg.Bin != "" {
			a.launcher = a.launcher.Bin(cfg.Bin)
		}

		var err error
		u, err = a.launcher.Launch()
		if err != nil {
			return err
		}
	}

	a.browser = rod.New().ControlURL(u)
	if err := a.browser.Connect(); err != nil {
		a.killBrowser()
		return err
	}
	return nil
}

// serve in the background until close
func (a *app) serve() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.serving = true
	go func() {
		a.done <- a.server.Serve(ctx, a.listener)
	}()
}

func (a *app) close() {
	if err := a.studio.Close(); err != nil {
		a.logger.Println("close studio:", err)
	}

	a.cancel()
	if a.serving {
		if err := <-a.done; err != nil {
			a.logger.Println("close server:", err)
		}
	} else {
		_ = a.listener.Close()
	}

	_ = a.codec.Close()
	_ = a.browser.Close()
	a.killBrowser()
}

func (a *app) killBrowser() {
	if a.launcher != nil {
		a.launcher.Kill()
		a.launcher.Cleanup()
	}
}

func patch(s settings.Settings) settings.Patch {
	return settings.Patch{
		FrameRate:    &s.FrameRate,
		VideoBitrate: &s.VideoBitrate,
		AudioBitrate: &s.AudioBitrate,
		Countdown:    &s.Countdown,
		Resolution:   &s.Resolution,
	}
}
