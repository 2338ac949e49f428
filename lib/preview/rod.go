package preview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/screenrec/lib/capture"
	"github.com/go-rod/screenrec/lib/devices"
	"github.com/go-rod/screenrec/lib/utils"
)

// RodOpener opens preview windows as pages of a browser
type RodOpener struct {
	browser *rod.Browser
	logger  utils.Logger
}

var _ Opener = &RodOpener{}

// NewRodOpener for the browser
func NewRodOpener(b *rod.Browser) *RodOpener {
	return &RodOpener{browser: b, logger: utils.DefaultLogger}
}

// Logger overrides the default logger
func (o *RodOpener) Logger(l utils.Logger) *RodOpener {
	o.logger = l
	return o
}

// Open interface
func (o *RodOpener) Open(ctx context.Context, target string, mode devices.Mode) (Window, error) {
	page, err := o.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPopupBlocked, err)
	}
	// detach the page from the ctx of the request that opened it
	page = page.Context(context.Background())

	w := newRodWindow(page, o.logger)

	err = mode.Emulate(page.Context(ctx))
	if err == nil {
		err = page.Context(ctx).Navigate(target)
	}
	if err != nil {
		_ = w.Close()
		return nil, err
	}

	return w, nil
}

type rodWindow struct {
	page   *rod.Page
	logger utils.Logger

	// info asks the browser about the page, an error means the page is gone
	info    func(ctx context.Context) error
	timeout time.Duration
	recheck time.Duration

	lock    sync.Mutex
	closed  bool
	checked time.Time
}

func newRodWindow(page *rod.Page, logger utils.Logger) *rodWindow {
	return &rodWindow{
		page:   page,
		logger: logger,
		info: func(ctx context.Context) error {
			_, err := page.Context(ctx).Info()
			return err
		},
		timeout: time.Second,
		recheck: 500 * time.Millisecond,
	}
}

func (w *rodWindow) ID() string {
	return string(w.page.TargetID)
}

// Closed asks the browser at most once per recheck interval. A browser that doesn't answer in time
// doesn't close the window.
func (w *rodWindow) Closed() bool {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.closed || time.Since(w.checked) < w.recheck {
		return w.closed
	}

	// the user may close the page from the browser
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	err := w.info(ctx)
	w.checked = time.Now()
	if err != nil {
		if ctx.Err() != nil {
			w.logger.Println("preview window not responding:", err)
		} else {
			w.closed = true
		}
	}
	return w.closed
}

func (w *rodWindow) Focus() error {
	_, err := w.page.Activate()
	return err
}

func (w *rodWindow) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.page.Close()
}

func (w *rodWindow) Source() capture.DisplaySource {
	return capture.NewScreencast(w.page).Logger(w.logger)
}
