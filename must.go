// This file contains the methods that panics when error return value is not nil.
// Their function names are all prefixed with Must.
// A function here is usually a wrapper for the error version with fixed default options to make it easier to use.
//
// For example `Studio.Download` and `Studio.MustDownload`. `MustDownload` has no argument,
// it saves the recording with the native webm format.

package screenrec

import (
	"github.com/go-rod/screenrec/lib/capture"
	"github.com/go-rod/screenrec/lib/devices"
	"github.com/go-rod/screenrec/lib/media"
	"github.com/go-rod/screenrec/lib/preview"
	"github.com/go-rod/screenrec/lib/settings"
	"github.com/go-rod/screenrec/lib/utils"
)

// MustOpenURL opens a desktop preview window for the url
func (s *Studio) MustOpenURL(u string) *Studio {
	utils.E(s.OpenPreview(preview.Payload{Kind: preview.KindURL, Content: u, DeviceMode: devices.Desktop}))
	return s
}

// MustOpenHTML opens a desktop preview window for the html
func (s *Studio) MustOpenHTML(html string) *Studio {
	utils.E(s.OpenPreview(preview.Payload{Kind: preview.KindHTML, Content: html, DeviceMode: devices.Desktop}))
	return s
}

// MustStartRecording starts recording with the current settings
func (s *Studio) MustStartRecording() *capture.Session {
	session, err := s.StartRecording()
	utils.E(err)
	return session
}

// MustStopRecording stops the recording
func (s *Studio) MustStopRecording() *capture.Session {
	session, err := s.StopRecording()
	utils.E(err)
	return session
}

// MustSettings changes the settings
func (s *Studio) MustSettings(patch settings.Patch) *Studio {
	_, err := s.ChangeSettings(patch)
	utils.E(err)
	return s
}

// MustLoadCodec loads the codec runtime
func (s *Studio) MustLoadCodec() *Studio {
	utils.E(s.LoadCodec())
	return s
}

// MustDownload saves the recording as webm, returns the path of the file
func (s *Studio) MustDownload() string {
	p, err := s.Download(media.FormatWebM)
	utils.E(err)
	return p
}

// MustDownloadAs saves the recording as format, returns the path of the file
func (s *Studio) MustDownloadAs(format media.Format) string {
	p, err := s.Download(format)
	utils.E(err)
	return p
}
