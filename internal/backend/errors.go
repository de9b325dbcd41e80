package backend

import (
	"errors"
	"fmt"

	"speechact/pkg/platform/sentinel"
)

// ErrorCategory normalizes backend failures.
type ErrorCategory string

const (
	// ErrorTimeout indicates the backend took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorUnavailable indicates the backend could not be reached
	ErrorUnavailable ErrorCategory = "unavailable"

	// ErrorRejected indicates the backend answered but refused the event
	ErrorRejected ErrorCategory = "rejected"

	// ErrorBadData indicates the backend answered with an unreadable body
	ErrorBadData ErrorCategory = "bad_data"
)

// Error is returned by Client for every failed call. Error() is the
// backend-facing message, surfaced to callers verbatim.
type Error struct {
	Category   ErrorCategory
	StatusCode int
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches sentinel.ErrUnavailable for timeouts and connection failures.
func (e *Error) Is(target error) bool {
	if target != sentinel.ErrUnavailable {
		return false
	}
	return e.Category == ErrorTimeout || e.Category == ErrorUnavailable
}

func newError(category ErrorCategory, status int, underlying error, format string, args ...any) *Error {
	return &Error{
		Category:   category,
		StatusCode: status,
		Message:    fmt.Sprintf(format, args...),
		Underlying: underlying,
	}
}

// CategoryOf returns the category of a backend error, or "" for other errors.
func CategoryOf(err error) ErrorCategory {
	var be *Error
	if errors.As(err, &be) {
		return be.Category
	}
	return ""
}
