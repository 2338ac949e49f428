package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-rod/screenrec/lib/defaults"
	"github.com/go-rod/screenrec/lib/settings"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config of the commands. The values are resolved in this order: flags, SCREENREC_* env vars,
// the config file, the screenrec env var parsed by lib/defaults.
type Config struct {
	Show   bool   `mapstructure:"show"`
	Trace  bool   `mapstructure:"trace"`
	Bin    string `mapstructure:"bin"`
	URL    string `mapstructure:"url"`
	FFmpeg string `mapstructure:"ffmpeg"`
	Addr   string `mapstructure:"addr"`
	Dir    string `mapstructure:"dir"`

	settings.Settings `mapstructure:",squash"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("show", defaults.Show)
	v.SetDefault("trace", defaults.Trace)
	v.SetDefault("bin", defaults.Bin)
	v.SetDefault("url", defaults.URL)
	v.SetDefault("ffmpeg", defaults.FFmpeg)
	v.SetDefault("addr", defaults.Addr)
	v.SetDefault("dir", defaults.Dir)

	s := settings.Default()
	v.SetDefault("frame-rate", s.FrameRate)
	v.SetDefault("video-bitrate", s.VideoBitrate)
	v.SetDefault("audio-bitrate", s.AudioBitrate)
	v.SetDefault("countdown", s.Countdown)
	v.SetDefault("resolution", string(s.Resolution))
}

// settingsFlags registers the flags of the recording settings
func settingsFlags(fs *pflag.FlagSet) {
	s := settings.Default()
	fs.Int("frame-rate", s.FrameRate, "frames per second, one of 24, 30, 60")
	fs.Int("video-bitrate", s.VideoBitrate, "video bits per second, one of 1000000, 2500000, 5000000")
	fs.Int("audio-bitrate", s.AudioBitrate, "audio bits per second, one of 64000, 128000, 192000")
	fs.Int("countdown", s.Countdown, "seconds to wait before recording, one of 0, 3, 5, 10")
	fs.String("resolution", string(s.Resolution), "size of converted videos, one of original, 1080p, 720p, 480p")
}

// loadConfig reads the config file and the env vars, flags of fs override them
func loadConfig(cfgFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".screenrec")
	}

	v.SetEnvPrefix("screenrec")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Resolution = settings.Resolution(strings.ToLower(string(cfg.Resolution)))
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}

	if cfg.Dir != "" {
		dir, err := filepath.Abs(cfg.Dir)
		if err != nil {
			return nil, err
		}
		cfg.Dir = dir
	}

	return cfg, nil
}
