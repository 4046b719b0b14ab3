// Package errors provides structured error types for pkgmeta.
//
// Every failure that crosses a package boundary carries a [Code] so the
// pipeline can decide, without string matching, whether it is a soft
// per-source degradation or a fatal condition that aborts the run.
//
// # Error Codes
//
//   - NETWORK_ERROR, TIMEOUT: transport failures; the source becomes unreachable
//   - API_ERROR, NOT_FOUND: non-2xx responses or malformed bodies; fields stay unknown
//   - RATE_LIMITED: GitHub refused the request (HTTP 403/429); never retried
//   - VCS_EXEC: a git subprocess failed; recorded in the source's error field
//   - FATAL: the registry could not be read or the artifact could not be written
//
// # Usage
//
//	err := errors.Wrap(errors.ErrCodeVCSExec, cause, "clone %s", url)
//	if errors.Is(err, errors.ErrCodeVCSExec) {
//	    // degrade this source only
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidSource Code = "INVALID_SOURCE"

	// Upstream errors
	ErrCodeNotFound    Code = "NOT_FOUND"
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeAPI         Code = "API_ERROR"
	ErrCodeRateLimited Code = "RATE_LIMITED"
	ErrCodeVCSExec     Code = "VCS_EXEC"

	// Run-level errors
	ErrCodeFatal       Code = "FATAL"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		err = e.Cause
		e = nil
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	return Is(err, ErrCodeFatal)
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// RateLimitedError provides additional information for rate-limited responses.
type RateLimitedError struct {
	RetryAfter int // Seconds until the limit resets, 0 if unknown
	Message    string
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
	}
	return "rate limited"
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}
