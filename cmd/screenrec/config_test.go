package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-rod/screenrec/lib/defaults"
	"github.com/go-rod/screenrec/lib/devices"
	"github.com/go-rod/screenrec/lib/preview"
	"github.com/go-rod/screenrec/lib/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	cfg, err := loadConfig("", cmd.PersistentFlags())
	require.NoError(t, err)

	assert.Equal(t, defaults.FFmpeg, cfg.FFmpeg)
	assert.Equal(t, defaults.Addr, cfg.Addr)
	assert.Equal(t, settings.Default(), cfg.Settings)
	assert.True(t, filepath.IsAbs(cfg.Dir))
}

func TestLoadConfigSources(t *testing.T) {
	file := filepath.Join(t.TempDir(), "conf.yaml")
	require.NoError(t, os.WriteFile(file, []byte("ffmpeg: /opt/ffmpeg\nframe-rate: 24\nresolution: 720P\n"), 0o600))

	t.Setenv("SCREENREC_COUNTDOWN", "0")
	t.Setenv("SCREENREC_FFMPEG", "/env/ffmpeg")

	cmd := newRootCmd()
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--video-bitrate", "5000000"}))

	cfg, err := loadConfig(file, cmd.PersistentFlags())
	require.NoError(t, err)

	assert.Equal(t, "/env/ffmpeg", cfg.FFmpeg)
	assert.Equal(t, 24, cfg.FrameRate)
	assert.Equal(t, 0, cfg.Countdown)
	assert.Equal(t, 5000000, cfg.VideoBitrate)
	assert.Equal(t, settings.Resolution720p, cfg.Resolution)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Setenv("SCREENREC_FRAME_RATE", "25")

	_, err := loadConfig("", nil)
	assert.ErrorIs(t, err, settings.ErrInvalid)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestRecordPayload(t *testing.T) {
	p, err := recordOptions{mode: "mobile"}.payload(" https://example.com ")
	require.NoError(t, err)
	assert.Equal(t, preview.KindURL, p.Kind)
	assert.Equal(t, "https://example.com", p.Content)
	assert.Equal(t, devices.Mobile, p.DeviceMode)
	assert.Equal(t, preview.DefaultBackground, p.BackgroundColor)

	file := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(file, []byte("<h1>hi</h1>"), 0o600))

	p, err = recordOptions{html: true, background: "#000"}.payload(file)
	require.NoError(t, err)
	assert.Equal(t, preview.KindHTML, p.Kind)
	assert.Equal(t, "<h1>hi</h1>", p.Content)
	assert.Equal(t, devices.Desktop, p.DeviceMode)

	_, err = recordOptions{}.payload("example.com")
	assert.ErrorIs(t, err, preview.ErrInvalidPayload)
}
