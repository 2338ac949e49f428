// Package preview manages the secondary browser window that shows the content being recorded.
//
// The payload travels through a take-once Store: the Manager writes it under StorageKey before it
// opens the window, the /preview view reads and deletes it. Only a freshness token is put in the URL.
package preview

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-rod/screenrec/lib/devices"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// StorageKey of the payload in the Store
const StorageKey = "previewData"

// Kind of the content
type Kind string

const (
	// KindURL content is a web address
	KindURL Kind = "url"
	// KindHTML content is an html document
	KindHTML Kind = "html"
)

// DefaultBackground of the preview
const DefaultBackground = "#ffffff"

// ErrInvalidPayload is wrapped by every validation error
var ErrInvalidPayload = errors.New("invalid preview")

var regColor = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]{3,20}|rgba?\(\s*[0-9.%]+\s*(,\s*[0-9.%]+\s*){2,3}\))$`)

// Payload is what the preview window shows
type Payload struct {
	Content         string       `json:"content"`
	Kind            Kind         `json:"type"`
	BackgroundColor string       `json:"backgroundColor"`
	DeviceMode      devices.Mode `json:"deviceMode"`
}

// Validate the payload and fill the defaults
func (p *Payload) Validate() error {
	p.Content = strings.TrimSpace(p.Content)
	if p.Content == "" {
		return fmt.Errorf("%w: the content is empty", ErrInvalidPayload)
	}

	switch p.Kind {
	case KindURL:
		u, err := url.Parse(p.Content)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: please enter a valid URL starting with http:// or https://", ErrInvalidPayload)
		}
	case KindHTML:
	default:
		return fmt.Errorf("%w: unknown content type %q", ErrInvalidPayload, p.Kind)
	}

	if p.BackgroundColor == "" {
		p.BackgroundColor = DefaultBackground
	}
	if !regColor.MatchString(p.BackgroundColor) {
		return fmt.Errorf("%w: bad background color %q", ErrInvalidPayload, p.BackgroundColor)
	}

	m, err := devices.Parse(string(p.DeviceMode))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	p.DeviceMode = m

	return nil
}

// Encode to json
func (p Payload) Encode() []byte {
	data := []byte(`{}`)
	data, _ = sjson.SetBytes(data, "content", p.Content)
	data, _ = sjson.SetBytes(data, "type", string(p.Kind))
	data, _ = sjson.SetBytes(data, "backgroundColor", p.BackgroundColor)
	data, _ = sjson.SetBytes(data, "deviceMode", string(p.DeviceMode))
	return data
}

// Decode json that Encode produced
func Decode(data []byte) (Payload, error) {
	if !gjson.ValidBytes(data) {
		return Payload{}, fmt.Errorf("%w: malformed payload", ErrInvalidPayload)
	}

	r := gjson.GetManyBytes(data, "content", "type", "backgroundColor", "deviceMode")

	p := Payload{
		Content:         r[0].String(),
		Kind:            Kind(r[1].String()),
		BackgroundColor: r[2].String(),
		DeviceMode:      devices.Mode(r[3].String()),
	}
	return p, p.Validate()
}
