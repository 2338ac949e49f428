package defaults

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasic(t *testing.T) {
	Show = true
	URL = "test"
	FFmpeg = "x"

	ResetWithEnv()
	parse("")
	assert.False(t, Show)
	assert.Equal(t, "", URL)
	assert.Equal(t, "ffmpeg", FFmpeg)
	assert.Equal(t, "127.0.0.1:7317", Addr)
	assert.Equal(t, ".", Dir)

	parse("show,trace,bin=/path/to/chrome,url=ws://127.0.0.1:9222/devtools/browser/x," +
		"ffmpeg=/opt/ffmpeg,addr=:8080,dir=tmp")

	assert.True(t, Show)
	assert.True(t, Trace)
	assert.Equal(t, "/path/to/chrome", Bin)
	assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/x", URL)
	assert.Equal(t, "/opt/ffmpeg", FFmpeg)
	assert.Equal(t, ":8080", Addr)
	assert.Equal(t, "tmp", Dir)

	parse("ffmpeg=,addr=")
	assert.Equal(t, "/opt/ffmpeg", FFmpeg)
	assert.Equal(t, ":8080", Addr)

	assert.Panics(t, func() {
		parse("a")
	})

	Reset()
}
