package apiclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrUnexpectedShape is returned when a successful response lacks a required field
var ErrUnexpectedShape = errors.New("unexpected response shape")

// Error is a non-2xx backend response. Body is forwarded untouched.
type Error struct {
	Status  int
	Message string
	Body    []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsValidation reports a rejected request: 4xx other than auth and not-found
func (e *Error) IsValidation() bool {
	return e.Status >= 400 && e.Status < 500 && !e.IsUnauthorized() && !e.IsNotFound()
}

// IsUnauthorized reports a missing, expired or insufficient credential
func (e *Error) IsUnauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsNotFound reports a 404
func (e *Error) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// IsServer reports a 5xx
func (e *Error) IsServer() bool {
	return e.Status >= 500
}

func newError(status int, body []byte) *Error {
	msg := ""
	if gjson.ValidBytes(body) {
		msg = gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = gjson.GetBytes(body, "error").String()
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{Status: status, Message: msg, Body: body}
}

// AsError extracts the backend error from err, if there is one
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 from the backend
func IsNotFound(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.IsNotFound()
}

// IsUnauthorized reports whether err is a 401 or 403 from the backend
func IsUnauthorized(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.IsUnauthorized()
}

// TransportError wraps a failure to reach the backend or read its response
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s %s failed: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a network-level failure
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Message picks the text shown to the user for err
func Message(err error) string {
	if apiErr, ok := AsError(err); ok {
		return apiErr.Message
	}
	if IsTransport(err) {
		return "Unable to reach the server"
	}
	return err.Error()
}
