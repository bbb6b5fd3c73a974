// Package apperr defines the error kinds the services report to the HTTP layer.
//
// A service returns an *Error built by one of the constructors; handlers pick
// the response status with HTTPStatus and show Message to the user. Kinds are
// compared with errors.Is, so wrapping with fmt.Errorf keeps them visible.
package apperr

import (
	"errors"
	"net/http"
)

// Error kinds.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Error is a user-facing failure of a known kind.
type Error struct {
	Kind    error    // one of the Err* kinds above
	Message string   // human-readable, shown to the client
	Details []string // optional field-level messages
}

func (e *Error) Error() string {
	return e.Kind.Error() + ": " + e.Message
}

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}

// Validation reports bad input or an invalid state transition.
func Validation(msg string, details ...string) *Error {
	return &Error{Kind: ErrValidation, Message: msg, Details: details}
}

// NotFound reports a missing resource, named in Indonesian as "<resource> tidak ditemukan".
func NotFound(resource string) *Error {
	return &Error{Kind: ErrNotFound, Message: resource + " tidak ditemukan"}
}

// Unauthorized reports a missing or invalid identity.
func Unauthorized(msg string) *Error {
	return &Error{Kind: ErrUnauthorized, Message: msg}
}

// Forbidden reports an identity that lacks access.
func Forbidden(msg string) *Error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

// HTTPStatus maps err to a response status. Unknown errors are 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing text of err, or fallback when err carries none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}
