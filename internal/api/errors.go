package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a failed backend call.
type Error struct {
	// Status is the HTTP status, or 0 when no response was received.
	Status int
	// Message is the backend's error text, when it sent one.
	Message string
	// Fields are per-field validation messages.
	Fields map[string]string
	// Network marks transport failures, timeouts, unreadable bodies and 5xx.
	Network bool
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("backend status %d: %s", e.Status, e.Message)
	case e.Message != "":
		return e.Message
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("backend status %d: %v", e.Status, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return fmt.Sprintf("backend status %d", e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Unauthorized reports a 401 response.
func (e *Error) Unauthorized() bool { return e.Status == http.StatusUnauthorized }

// Forbidden reports a 403 response.
func (e *Error) Forbidden() bool { return e.Status == http.StatusForbidden }

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	e, ok := AsError(err)
	return ok && e.Unauthorized()
}
