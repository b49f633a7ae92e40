package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for translation at the request boundary.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindDependency    Kind = "dependency"
)

// Error is the single error type returned by stores and services.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func Authorization(format string, args ...interface{}) *Error {
	return newf(KindAuthorization, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

// Dependency wraps a store or transport failure.
func Dependency(err error, format string, args ...interface{}) *Error {
	e := newf(KindDependency, format, args...)
	e.Err = err
	return e
}

// KindOf returns the kind of err, or KindDependency for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDependency
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func IsValidation(err error) bool    { return Is(err, KindValidation) }
func IsNotFound(err error) bool      { return Is(err, KindNotFound) }
func IsAuthorization(err error) bool { return Is(err, KindAuthorization) }
func IsConflict(err error) bool      { return Is(err, KindConflict) }
func IsDependency(err error) bool    { return Is(err, KindDependency) }
