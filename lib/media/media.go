// Package media holds the value types shared by the capture and the transcode pipelines.
package media

import (
	"bytes"
	"fmt"
	"strings"
)

// Format of a video container
type Format string

const (
	// FormatWebM is the native format of a recording
	FormatWebM Format = "webm"
	// FormatMP4 h264 + aac
	FormatMP4 Format = "mp4"
	// FormatMOV prores + pcm
	FormatMOV Format = "mov"
)

// MIME types of the supported containers
const (
	MIMEWebM      = "video/webm"
	MIMEWebMVP9   = "video/webm;codecs=vp9"
	MIMEMP4       = "video/mp4"
	MIMEQuickTime = "video/quicktime"
)

// Formats lists every supported format
var Formats = []Format{FormatWebM, FormatMP4, FormatMOV}

// ParseFormat is case insensitive and accepts a leading dot, such as ".MP4"
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// MIME type of the container
func (f Format) MIME() string {
	switch f {
	case FormatMP4:
		return MIMEMP4
	case FormatMOV:
		return MIMEQuickTime
	default:
		return MIMEWebM
	}
}

// Ext is the file extension without the dot
func (f Format) Ext() string {
	return string(f)
}

// Blob is an immutable chunk of binary data with a MIME type
type Blob struct {
	Data []byte
	Type string
}

// NewBlob concatenates the parts in order. Zero parts yields an empty blob.
func NewBlob(parts [][]byte, typ string) *Blob {
	return &Blob{
		Data: bytes.Join(parts, nil),
		Type: typ,
	}
}

// Size in bytes
func (b *Blob) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// Format guesses the container from the MIME type
func (b *Blob) Format() Format {
	t := strings.ToLower(b.Type)
	switch {
	case strings.HasPrefix(t, MIMEMP4):
		return FormatMP4
	case strings.HasPrefix(t, MIMEQuickTime):
		return FormatMOV
	default:
		return FormatWebM
	}
}
