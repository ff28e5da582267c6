// Package apperror defines the error taxonomy shared by all domain services:
// NotFound, Validation, Conflict, and Unavailable. Services return these
// tagged errors; handlers map them to HTTP status codes at the boundary.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for boundary mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindUnavailable
)

// Error is a kind-tagged error with an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes two Errors equal when their kinds match, so callers can write
// errors.Is(err, apperror.NotFound("")) without caring about the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// NotFound reports that a referenced record does not exist.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Validation reports missing or malformed required fields.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// Validationf is Validation with a format string.
func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Conflict reports a state that rejects the requested change, such as an
// illegal status transition or a double-booked doctor.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

// Unavailable reports a transient store failure that is safe to retry.
func Unavailable(msg string, err error) *Error {
	return &Error{Kind: KindUnavailable, Msg: msg, Err: err}
}

// KindOf extracts the kind from an error chain, KindUnknown if untagged.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps an error chain to the HTTP status a handler should return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
