package preview

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/screenrec/lib/capture"
	"github.com/go-rod/screenrec/lib/devices"
	"github.com/go-rod/screenrec/lib/metrics"
	"github.com/go-rod/screenrec/lib/utils"
	"github.com/google/uuid"
)

// ErrPopupBlocked is returned when the browser refuses to open the window
var ErrPopupBlocked = errors.New("the preview window was blocked, please allow popups")

// Window is an opened preview window
type Window interface {
	// ID of the window
	ID() string
	// Closed reports whether the window is gone, including being closed by the user
	Closed() bool
	Focus() error
	Close() error
	// Source to capture the window
	Source() capture.DisplaySource
}

// Opener opens a window for the target url emulating the mode
type Opener interface {
	Open(ctx context.Context, target string, mode devices.Mode) (Window, error)
}

// Manager keeps at most one preview window open
type Manager struct {
	opener  Opener
	store   *Store
	base    string
	logger  utils.Logger
	sleeper func() utils.Sleeper

	lock    sync.Mutex
	current Window
	payload *Payload
}

// NewManager for the view served at base, such as "http://127.0.0.1:7317"
func NewManager(opener Opener, store *Store, base string) *Manager {
	return &Manager{
		opener: opener,
		store:  store,
		base:   base,
		logger: utils.DefaultLogger,
		sleeper: func() utils.Sleeper {
			return utils.EachSleepers(utils.CountSleeper(3), utils.IntervalSleeper(100*time.Millisecond))
		},
	}
}

// Logger overrides the default logger
func (m *Manager) Logger(l utils.Logger) *Manager {
	m.logger = l
	return m
}

// Sleeper overrides the backoff between focus retries
func (m *Manager) Sleeper(s func() utils.Sleeper) *Manager {
	m.sleeper = s
	return m
}

// Target of the window for the payload. A url is opened directly, html is served by the view,
// the url only carries a freshness token.
func (m *Manager) Target(p Payload) (string, error) {
	if p.Kind == KindURL {
		return p.Content, nil
	}

	u, err := url.Parse(m.base)
	if err != nil {
		return "", err
	}
	u = u.JoinPath(Path)
	u.RawQuery = url.Values{"timestamp": {uuid.New().String()}}.Encode()
	return u.String(), nil
}

// Open the payload in a new window, the prior window is closed first
func (m *Manager) Open(ctx context.Context, p Payload) (Window, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	target, err := m.Target(p)
	if err != nil {
		return nil, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.store.Set(StorageKey, p.Encode())

	m.closeCurrent()

	w, err := m.opener.Open(ctx, target, p.DeviceMode)
	if err != nil {
		metrics.PreviewOpensTotal.WithLabelValues(string(p.Kind), "blocked").Inc()
		if !errors.Is(err, ErrPopupBlocked) {
			err = fmt.Errorf("%w: %v", ErrPopupBlocked, err)
		}
		return nil, err
	}

	m.current = w
	m.payload = &p
	metrics.PreviewOpensTotal.WithLabelValues(string(p.Kind), "ok").Inc()
	metrics.PreviewOpen.Set(1)
	m.logger.Println("preview opened:", w.ID(), target)

	m.focus(ctx, w)

	return w, nil
}

// Close the window if there is one
func (m *Manager) Close() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.closeCurrent()
}

func (m *Manager) closeCurrent() {
	if m.current == nil {
		return
	}

	if !m.current.Closed() {
		if err := m.current.Close(); err != nil {
			m.logger.Println("close preview:", err)
		}
	}

	m.logger.Println("preview closed:", m.current.ID())
	m.current = nil
	m.payload = nil
	metrics.PreviewOpen.Set(0)
}

// Current window, nil if there's none or it has been closed
func (m *Manager) Current() Window {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.current != nil && m.current.Closed() {
		m.closeCurrent()
	}
	return m.current
}

// Payload shown by the current window
func (m *Manager) Payload() *Payload {
	if m.Current() == nil {
		return nil
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	return m.payload
}

// IsOpen reports whether a live window exists
func (m *Manager) IsOpen() bool {
	return m.Current() != nil
}

// Focus the current window, best effort
func (m *Manager) Focus(ctx context.Context) {
	if w := m.Current(); w != nil {
		m.focus(ctx, w)
	}
}

func (m *Manager) focus(ctx context.Context, w Window) {
	err := utils.Retry(ctx, m.sleeper(), func() (bool, error) {
		return w.Focus() == nil, nil
	})
	if err != nil {
		m.logger.Println("focus preview:", err)
	}
}
