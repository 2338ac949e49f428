// Package devices maps the preview device modes to browser emulation.
package devices

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/devices"
	"github.com/go-rod/rod/lib/proto"
)

// Mode of a preview window
type Mode string

const (
	// Desktop is a 1024x768 window
	Desktop Mode = "desktop"
	// Mobile is an iPhone X, 375x812
	Mobile Mode = "mobile"
)

// ErrModeNotExists err
var ErrModeNotExists = errors.New("device mode not exists")

// Parse the mode, empty string means Desktop
func Parse(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", Desktop:
		return Desktop, nil
	case Mobile:
		return Mobile, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrModeNotExists, s)
	}
}

// Size of the viewport in css pixels
func (m Mode) Size() (width, height int) {
	if m == Mobile {
		s := devices.IPhoneX.Screen.Vertical
		return s.Width, s.Height
	}
	return 1024, 768
}

// Viewport of the mode
func (m Mode) Viewport() *proto.EmulationSetDeviceMetricsOverride {
	if m == Mobile {
		return devices.IPhoneX.MetricsEmulation()
	}

	w, h := m.Size()
	return &proto.EmulationSetDeviceMetricsOverride{
		Width:             w,
		Height:            h,
		DeviceScaleFactor: 1,
	}
}

// Emulate the mode on the page. Mobile also sets the touch and the user agent of the device.
func (m Mode) Emulate(p *rod.Page) error {
	if m == Mobile {
		return p.Emulate(devices.IPhoneX)
	}
	return p.SetViewport(m.Viewport())
}
