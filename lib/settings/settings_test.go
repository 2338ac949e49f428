package settings_test

import (
	"testing"

	"github.com/go-rod/screenrec/lib/settings"
	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	s := settings.Default()

	assert.NoError(t, s.Validate())
	assert.Equal(t, 30, s.FrameRate)
	assert.Equal(t, 2500000, s.VideoBitrate)
	assert.Equal(t, 128000, s.AudioBitrate)
	assert.Equal(t, 3, s.Countdown)
	assert.Equal(t, settings.ResolutionOriginal, s.Resolution)
}

func TestValidate(t *testing.T) {
	cases := []func(*settings.Settings){
		func(s *settings.Settings) { s.FrameRate = 25 },
		func(s *settings.Settings) { s.VideoBitrate = -1 },
		func(s *settings.Settings) { s.AudioBitrate = 0 },
		func(s *settings.Settings) { s.Countdown = 4 },
		func(s *settings.Settings) { s.Resolution = "4k" },
	}

	for _, c := range cases {
		s := settings.Default()
		c(&s)
		assert.ErrorIs(t, s.Validate(), settings.ErrInvalid)
	}

	s := settings.Default()
	s.Countdown = 0
	s.FrameRate = 60
	s.Resolution = settings.Resolution720p
	assert.NoError(t, s.Validate())
}

func TestMerge(t *testing.T) {
	zero := 0
	fps := 60
	res := settings.Resolution("720P")

	s := settings.Default().Merge(settings.Patch{
		Countdown:  &zero,
		FrameRate:  &fps,
		Resolution: &res,
	})

	assert.Equal(t, 0, s.Countdown)
	assert.Equal(t, 60, s.FrameRate)
	assert.Equal(t, settings.Resolution720p, s.Resolution)
	assert.Equal(t, 2500000, s.VideoBitrate)
	assert.NoError(t, s.Validate())
}

func TestResolutionSize(t *testing.T) {
	assert.Equal(t, "", settings.ResolutionOriginal.Size())
	assert.Equal(t, "1920:1080", settings.Resolution1080p.Size())
	assert.Equal(t, "1280:720", settings.Resolution720p.Size())
	assert.Equal(t, "854:480", settings.Resolution480p.Size())
}
