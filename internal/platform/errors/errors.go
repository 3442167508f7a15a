package errors

import (
	stderrors "errors"
	"fmt"
)

// Code classifies an error for boundary mapping (HTTP status, log severity).
type Code string

const (
	ErrCodeValidation        Code = "validation"
	ErrCodeNotFound          Code = "not_found"
	ErrCodeConflict          Code = "conflict"
	ErrCodeUnauthorized      Code = "unauthorized"
	ErrCodeDuplicateAction   Code = "duplicate_action"
	ErrCodeInvalidTransition Code = "invalid_transition"
	ErrCodeConvergence       Code = "convergence"
	ErrCodeInternal          Code = "internal"
)

// Error is a coded error with optional structured context for the caller to
// surface a precise message (request id, actor, attempted action).
type Error struct {
	Code    Code
	Message string
	Err     error
	Context map[string]string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// With attaches a context key/value pair and returns the same error.
func (e *Error) With(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an underlying error with a code and message.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *Error {
	return Newf(ErrCodeNotFound, "%s not found: %s", resource, id)
}

// InvalidInput reports a bad input field.
func InvalidInput(field, message string) *Error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: message,
		Context: map[string]string{"field": field},
	}
}

// CodeOf extracts the code from an error chain, defaulting to internal.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
