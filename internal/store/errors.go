// Package store defines the persistence error types shared by all store
// implementations.
package store

import (
	"fmt"
	"net/http"
)

// Error is a store error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithCause wraps an underlying error. The copy still matches the original
// sentinel under errors.Is because Code and Message are preserved.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Is reports whether target is the same sentinel, matching wrapped copies
// made by WithCause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	ErrInvalidInput = &Error{
		Code:    http.StatusBadRequest,
		Message: "invalid input",
	}

	// ErrProductNotFound covers both a missing catalog row and a dangling
	// product reference surfaced by an integrity check.
	ErrProductNotFound = &Error{
		Code:    http.StatusBadRequest,
		Message: "product not found",
	}

	// ErrLineNotFound is returned when removing quantity from a product
	// that has no line in the basket.
	ErrLineNotFound = &Error{
		Code:    http.StatusBadRequest,
		Message: "product not in basket",
	}
)
