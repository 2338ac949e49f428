// Package settings defines the recording settings and the fixed option sets a user can pick from.
package settings

import (
	"errors"
	"fmt"
	"strings"
)

// Resolution preset of the transcoded output
type Resolution string

const (
	// ResolutionOriginal keeps the captured size
	ResolutionOriginal Resolution = "original"
	// Resolution1080p 1920x1080
	Resolution1080p Resolution = "1080p"
	// Resolution720p 1280x720
	Resolution720p Resolution = "720p"
	// Resolution480p 854x480
	Resolution480p Resolution = "480p"
)

// Size of the preset as "W:H", empty for ResolutionOriginal
func (r Resolution) Size() string {
	switch r {
	case Resolution1080p:
		return "1920:1080"
	case Resolution720p:
		return "1280:720"
	case Resolution480p:
		return "854:480"
	}
	return ""
}

// Option is an entry of an option set
type Option struct {
	Value interface{} `json:"value"`
	Label string      `json:"label"`
}

// Option sets
var (
	FrameRates = []Option{
		{24, "24 fps (cinematic)"},
		{30, "30 fps (recommended)"},
		{60, "60 fps (smooth)"},
	}

	VideoBitrates = []Option{
		{1000000, "Low (1 Mbps)"},
		{2500000, "Medium (2.5 Mbps)"},
		{5000000, "High (5 Mbps)"},
	}

	AudioBitrates = []Option{
		{64000, "Low (64 kbps)"},
		{128000, "Medium (128 kbps)"},
		{192000, "High (192 kbps)"},
	}

	Countdowns = []Option{
		{0, "No countdown"},
		{3, "3 seconds"},
		{5, "5 seconds"},
		{10, "10 seconds"},
	}

	Resolutions = []Option{
		{ResolutionOriginal, "Original size"},
		{Resolution1080p, "1080p (1920×1080) - HD"},
		{Resolution720p, "720p (1280×720) - recommended"},
		{Resolution480p, "480p (854×480) - fast"},
	}
)

// ErrInvalid is wrapped by every validation error
var ErrInvalid = errors.New("invalid recording settings")

// Settings of a recording
type Settings struct {
	FrameRate    int        `json:"frameRate" mapstructure:"frame-rate"`
	VideoBitrate int        `json:"videoBitrate" mapstructure:"video-bitrate"`
	AudioBitrate int        `json:"audioBitrate" mapstructure:"audio-bitrate"`
	Countdown    int        `json:"countdown" mapstructure:"countdown"`
	Resolution   Resolution `json:"resolution" mapstructure:"resolution"`
}

// Default settings
func Default() Settings {
	return Settings{
		FrameRate:    30,
		VideoBitrate: 2500000,
		AudioBitrate: 128000,
		Countdown:    3,
		Resolution:   ResolutionOriginal,
	}
}

// Validate checks every field against its option set
func (s Settings) Validate() error {
	checks := []struct {
		name  string
		value interface{}
		set   []Option
	}{
		{"frame rate", s.FrameRate, FrameRates},
		{"video bitrate", s.VideoBitrate, VideoBitrates},
		{"audio bitrate", s.AudioBitrate, AudioBitrates},
		{"countdown", s.Countdown, Countdowns},
		{"resolution", s.Resolution, Resolutions},
	}

	for _, c := range checks {
		if !has(c.set, c.value) {
			return fmt.Errorf("%w: %s %v is not one of %s", ErrInvalid, c.name, c.value, values(c.set))
		}
	}

	return nil
}

// Merge returns s with the non-zero fields of patch applied.
// Countdown is a pointer so that "no countdown" can be requested.
func (s Settings) Merge(patch Patch) Settings {
	if patch.FrameRate != nil {
		s.FrameRate = *patch.FrameRate
	}
	if patch.VideoBitrate != nil {
		s.VideoBitrate = *patch.VideoBitrate
	}
	if patch.AudioBitrate != nil {
		s.AudioBitrate = *patch.AudioBitrate
	}
	if patch.Countdown != nil {
		s.Countdown = *patch.Countdown
	}
	if patch.Resolution != nil {
		s.Resolution = Resolution(strings.ToLower(string(*patch.Resolution)))
	}
	return s
}

// Patch is a partial update of Settings
type Patch struct {
	FrameRate    *int        `json:"frameRate,omitempty"`
	VideoBitrate *int        `json:"videoBitrate,omitempty"`
	AudioBitrate *int        `json:"audioBitrate,omitempty"`
	Countdown    *int        `json:"countdown,omitempty"`
	Resolution   *Resolution `json:"resolution,omitempty"`
}

func has(set []Option, v interface{}) bool {
	for _, o := range set {
		if o.Value == v {
			return true
		}
	}
	return false
}

func values(set []Option) string {
	list := make([]string, 0, len(set))
	for _, o := range set {
		list = append(list, fmt.Sprint(o.Value))
	}
	return strings.Join(list, ", ")
}
