// internal/browser/errors.go
package browser

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure tiers of a crawl. Match them with errors.Is;
// every *Error with the corresponding code matches its sentinel.
var (
	ErrSessionInit   = errors.New("browser session could not be started")
	ErrNavigation    = errors.New("navigation failed")
	ErrRenderTimeout = errors.New("timed out waiting for page to render")
	ErrAttributeRead = errors.New("attribute read failed")
)

// ErrorCode represents a specific failure condition
type ErrorCode string

const (
	CodeSessionInit   ErrorCode = "SESSION_INIT"
	CodeNavigation    ErrorCode = "NAVIGATION"
	CodeRenderTimeout ErrorCode = "RENDER_TIMEOUT"
	CodeAttributeRead ErrorCode = "ATTRIBUTE_READ"
)

var sentinels = map[ErrorCode]error{
	CodeSessionInit:   ErrSessionInit,
	CodeNavigation:    ErrNavigation,
	CodeRenderTimeout: ErrRenderTimeout,
	CodeAttributeRead: ErrAttributeRead,
}

// Error wraps a browser failure with the URL and status it happened on
type Error struct {
	Code       ErrorCode
	Message    string
	URL        string
	Status     int
	Underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" [HTTP %d]", e.Status)
	}
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is checks if the error matches the target
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	if s, ok := sentinels[e.Code]; ok && s == target {
		return true
	}
	return errors.Is(e.Underlying, target)
}

// GetStatusCode exposes the HTTP status so the retry policy can classify it.
func (e *Error) GetStatusCode() int {
	return e.Status
}

// NewError creates a new Error
func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
	}
}

// WithURL records the URL the failure happened on
func (e *Error) WithURL(url string) *Error {
	e.URL = url
	return e
}

// WithStatus records the HTTP status of the failed response
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// IsSessionInit reports whether err means no browser session could be created.
func IsSessionInit(err error) bool {
	return errors.Is(err, ErrSessionInit)
}
