// Package defaults holds some commonly used options parsed from env var "screenrec".
// Set them will set the default value of options used by screenrec.
// Each value is separated by a ",", key and value are separated by "=",
// For example:
//
//    screenrec=show,trace
//
//    screenrec=show,bin=/usr/bin/chromium,ffmpeg=/opt/ffmpeg/bin/ffmpeg,addr=:7317,dir=out
//
package defaults

import (
	"os"
	"strings"
)

// Show is the default of launcher.Launcher.Headless, the preview window is visible when true
var Show bool

// Trace enables logging of every codec log line
var Trace bool

// Bin is the default of launcher.Launcher.Bin
var Bin string

// URL is the control url of a running browser, when set no browser will be launched
var URL string

// FFmpeg is the default binary of the codec runtime
var FFmpeg string

// Addr is the default listen address of the control server
var Addr string

// Dir is the default dir to save downloaded recordings
var Dir string

// Parse the flags
func init() {
	ResetWithEnv()
}

// Reset all flags to their init values.
func Reset() {
	Show = false
	Trace = false
	Bin = ""
	URL = ""
	FFmpeg = "ffmpeg"
	Addr = "127.0.0.1:7317"
	Dir = "."
}

// ResetWithEnv all flags by the value of the screenrec env var.
func ResetWithEnv() {
	Reset()
	parse(os.Getenv("screenrec"))
}

// parse options and set them globally
func parse(options string) {
	if options == "" {
		return
	}

	for _, f := range strings.Split(options, ",") {
		kv := strings.SplitN(f, "=", 2)
		rule, has := rules[kv[0]]
		if !has {
			panic("no such screenrec option: " + kv[0])
		}
		if len(kv) == 2 {
			rule(kv[1])
		} else {
			rule("")
		}
	}
}

var rules = map[string]func(string){
	"show": func(string) {
		Show = true
	},
	"trace": func(string) {
		Trace = true
	},
	"bin": func(v string) {
		Bin = v
	},
	"url": func(v string) {
		URL = v
	},
	"ffmpeg": func(v string) {
		if v != "" {
			FFmpeg = v
		}
	},
	"addr": func(v string) {
		if v != "" {
			Addr = v
		}
	},
	"dir": func(v string) {
		if v != "" {
			Dir = v
		}
	},
}
