package screenrec

import (
	"errors"
	"fmt"
)

const (
	// ErrCodePreview the preview window can't be opened
	ErrCodePreview = "preview"
	// ErrCodeCapture the recording can't be started or stopped
	ErrCodeCapture = "capture"
	// ErrCodeCodecLoad the codec runtime can't be loaded, conversion is disabled for the session
	ErrCodeCodecLoad = "codec load"
	// ErrCodeConversion the conversion failed, the original webm is still available
	ErrCodeConversion = "conversion"
	// ErrCodeNoRecording there is nothing to download
	ErrCodeNoRecording = "no recording"
	// ErrCodeSettings the settings are invalid
	ErrCodeSettings = "settings"
	// ErrCodeOutput the file can't be saved
	ErrCodeOutput = "output"
)

// ErrNoRecording is returned when there is no finished recording
var ErrNoRecording = errors.New("there is no recording yet")

// Error of an intent
type Error struct {
	Err  error
	Code string
	// Details is the message for the user, such as remediation hints
	Details interface{}
}

// Error interface
func (e *Error) Error() string {
	if e.Details == nil {
		return fmt.Sprintf("[screenrec] %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("[screenrec] %s: %v\n%v", e.Code, e.Err, e.Details)
}

// Unwrap interface
func (e *Error) Unwrap() error {
	return e.Err
}

// Message for the user
func (e *Error) Message() string {
	if e.Details != nil {
		return fmt.Sprint(e.Details)
	}
	return e.Err.Error()
}

// IsError type matches
func IsError(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}
