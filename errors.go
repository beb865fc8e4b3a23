// Package codex is a client for long-lived conversations with the codex
// agent runtime.
//
// errors.go - Typed error surface
package codex

import (
	"errors"
	"fmt"
)

// ErrorCode classifies client failures for callers that branch on kind
type ErrorCode string

const (
	// ErrCodeConnection covers transport construction and stream failures
	ErrCodeConnection ErrorCode = "connection"
	// ErrCodeSession covers operations attempted without a usable
	// conversation and submissions the transport rejected
	ErrCodeSession ErrorCode = "session"
	// ErrCodeValidation covers rejected caller input
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeAuth covers missing or unusable credentials
	ErrCodeAuth ErrorCode = "auth"
)

// Error is the typed error returned by client operations. It wraps the
// underlying cause, so errors.Is and errors.As see through it.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the error code of err, or empty when err is not a client
// error
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsConnectionError reports whether err is a connection failure
func IsConnectionError(err error) bool {
	return CodeOf(err) == ErrCodeConnection
}

// IsValidationError reports whether err is a rejected input
func IsValidationError(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}
