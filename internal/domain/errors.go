package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation failed")
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("conflict")
	ErrAlreadyExists          = errors.New("already exists")
	ErrUnknownState           = errors.New("unknown state")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrInUse                  = errors.New("in use")
)

type FieldError struct {
	Field   string
	Message string
}

// Error is a classified business error. Message is safe to show to clients.
type Error struct {
	Kind    error
	Message string
	Fields  []FieldError
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(ErrNotFound, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return newError(ErrValidation, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newError(ErrForbidden, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newError(ErrConflict, format, args...)
}

func AlreadyExists(format string, args ...interface{}) *Error {
	return newError(ErrAlreadyExists, format, args...)
}

func UnknownState(literal string) *Error {
	return newError(ErrUnknownState, "Unknown state: %s", literal)
}

func ConcurrentModification(format string, args ...interface{}) *Error {
	return newError(ErrConcurrentModification, format, args...)
}

func InUse(format string, args ...interface{}) *Error {
	return newError(ErrInUse, format, args...)
}

// FieldErrors returns the per-field details of a validation error, if any.
func FieldErrors(err error) []FieldError {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}
