// Package errors provides structured error types for the dlg4vtmb application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI, HTTP API, and library callers
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_* / DUPLICATE_* / ILLEGAL_*: validation failures, always raised
//     before any state is mutated
//   - *_NOT_FOUND: resource lookups that came up empty
//   - IO_* / CACHE_* / STORE_*: infrastructure failures
//   - INTERNAL_*: unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDuplicateIndex, "index %d already in use", idx)
//	if errors.Is(err, errors.ErrCodeDuplicateIndex) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "read %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeDuplicateIndex Code = "DUPLICATE_INDEX"
	ErrCodeBadReference   Code = "BAD_REFERENCE"
	ErrCodeIllegalText    Code = "ILLEGAL_TEXT"
	ErrCodeBadVariant     Code = "BAD_VARIANT"
	ErrCodeBadShift       Code = "BAD_SHIFT"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeIndexNotFound    Code = "INDEX_NOT_FOUND"
	ErrCodeDocumentNotFound Code = "DOCUMENT_NOT_FOUND"

	// Infrastructure errors
	ErrCodeIO     Code = "IO_ERROR"
	ErrCodeDecode Code = "DECODE_ERROR"
	ErrCodeCache  Code = "CACHE_ERROR"
	ErrCodeStore  Code = "STORE_ERROR"
	ErrCodeRender Code = "RENDER_ERROR"

	// Internal errors
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
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
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

// IsValidation reports whether err carries one of the validation codes.
// Validation errors are raised before any state is mutated, so callers can
// treat them as "nothing happened".
func IsValidation(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeDuplicateIndex, ErrCodeBadReference,
		ErrCodeIllegalText, ErrCodeBadVariant, ErrCodeBadShift,
		ErrCodeInvalidFormat, ErrCodeInvalidConfig:
		return true
	}
	return false
}
