// Package domainerrors carries the error taxonomy shared by services and
// domain models. Every error has a Code that classifies how callers should
// react and, for business-rule rejections, a stable machine-readable Key
// (for example "process_delegation.grid_area_not_allowed").
//
// Classification:
//   - CodeValidation: user-correctable business-rule rejection
//   - CodeInvalidInput: malformed value at a trust boundary
//   - CodeNotFound: referenced entity does not exist
//   - CodeConflict: resource already claimed; choose another, do not retry
//   - CodeInvariantViolation: caller-side programmer error; never retried
//   - CodeInternal / CodeTimeout: infrastructure failures
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_error"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
	CodeTimeout            Code = "timeout"
)

// Error is a coded domain error. Err, when set, is the wrapped cause.
type Error struct {
	Code    Code
	Key     string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Key != "" {
		msg = e.Key + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// WithKey attaches a stable error key and returns the same error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// New constructs a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation constructs a CodeValidation error with its stable key.
func Validation(key, msg string) *Error {
	return &Error{Code: CodeValidation, Key: key, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the outermost coded error, or CodeInternal when
// err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// KeyOf returns the first non-empty key in err's chain.
func KeyOf(err error) string {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return ""
		}
		if de.Key != "" {
			return de.Key
		}
		err = de.Err
	}
	return ""
}

// IsFatal reports whether err signals a caller-side invariant violation.
func IsFatal(err error) bool {
	return HasCode(err, CodeInvariantViolation)
}
