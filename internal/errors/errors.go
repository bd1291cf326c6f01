// Package errors defines coded errors returned by the record services.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies an Error.
type ErrorCode string

const (
	// ErrValidationFailed is returned when a record fails validation
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrMissingField is returned when a required field is missing
	ErrMissingField ErrorCode = "MISSING_FIELD"
	// ErrInvalidFormat is returned when a field has an invalid format
	ErrInvalidFormat ErrorCode = "INVALID_FORMAT"

	// ErrNotFound is returned when a record is not found
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrConflict is returned when an id is already taken
	ErrConflict ErrorCode = "CONFLICT"
	// ErrUnauthorized is returned when credentials are missing or invalid
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrStorage is returned when a table could not be read or written
	ErrStorage ErrorCode = "STORAGE_ERROR"
)

// Error is an error with a code, the offending field if any, and optional
// details.
type Error struct {
	code       ErrorCode
	field      string
	message    string
	details    map[string]any
	wrappedErr error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{code: code, message: message}
}

// WithField records the field the error is about.
func (e *Error) WithField(field string) *Error {
	e.field = field
	return e
}

// WithDetail adds a single detail to the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *Error) Wrap(err error) *Error {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.message
	if e.field != "" {
		msg = e.field + ": " + msg
	}
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", msg, e.wrappedErr)
	}
	return msg
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Field returns the field the error is about, or "".
func (e *Error) Field() string {
	return e.field
}

// Details returns additional error details.
func (e *Error) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *Error) Unwrap() error {
	return e.wrappedErr
}

// CodeOf returns the code of the first Error in err's chain, or "" when there
// is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.code
	}
	return ""
}

// Predefined error constructors for common cases

// NotFound creates a NOT_FOUND error.
func NotFound(resource string) *Error {
	return New(ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// Validation creates a VALIDATION_FAILED error about field.
func Validation(field, message string) *Error {
	return New(ErrValidationFailed, message).WithField(field)
}

// MissingField creates a MISSING_FIELD error.
func MissingField(field string) *Error {
	return New(ErrMissingField, "is required").WithField(field)
}

// InvalidFormat creates an INVALID_FORMAT error; want describes the expected
// format.
func InvalidFormat(field, want string) *Error {
	return New(ErrInvalidFormat, "must be "+want).WithField(field)
}

// Conflict creates a CONFLICT error.
func Conflict(message string) *Error {
	return New(ErrConflict, message)
}

// Unauthorized returns an UNAUTHORIZED error.
func Unauthorized(message string) *Error {
	return New(ErrUnauthorized, message)
}

// Storage creates a STORAGE_ERROR wrapping err.
func Storage(message string, err error) *Error {
	return New(ErrStorage, message).Wrap(err)
}
