// Package cfgerr defines the stable error codes used across the class
// database: lookups that miss, malformed records, store failures, bad
// removal patterns, and report I/O.
package cfgerr

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// NotFound indicates an update/delete target does not exist
	NotFound ErrorCode = "NOT_FOUND"
	// InvalidData indicates a malformed record or out-of-range argument
	InvalidData ErrorCode = "INVALID_DATA"
	// StoreError indicates an underlying query or connection failure
	StoreError ErrorCode = "STORE_ERROR"
	// PatternError indicates a removal-spec regex failed to compile or match
	PatternError ErrorCode = "PATTERN_ERROR"
	// IOError indicates a spec read or report write failure
	IOError ErrorCode = "IO_ERROR"
)

// Error carries a stable code alongside a human-readable message
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

// New creates an Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping an underlying cause
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf returns the error code carried by err, or StoreError for plain
// errors bubbled up from the driver
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return StoreError
}

// HasCode reports whether err carries the given code
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
