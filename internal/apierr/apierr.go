// Package apierr provides structured error types for apisurface.
//
// Errors carry a machine-readable [Code] so callers can distinguish the
// failure classes the analysis pipeline produces:
//
//   - Programming errors: ALREADY_ANALYZED, NOT_ROOT, KIND_MISMATCH
//   - Data integrity errors: INVALID_EXCERPT, DUPLICATE_PACKAGE, MALFORMED_MODEL
//   - Input errors: INVALID_OPTIONS, INVALID_REFERENCE, UNSUPPORTED_SCHEMA
//
// Reference resolution failures are not errors; see the declref package.
//
// # Usage
//
//	err := apierr.New(apierr.CodeNotRoot, "entity %q is not a root", name)
//	if apierr.Is(err, apierr.CodeNotRoot) {
//	    // handle
//	}
package apierr

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes.
const (
	// Programming errors
	CodeAlreadyAnalyzed Code = "ALREADY_ANALYZED"
	CodeNotRoot         Code = "NOT_ROOT"
	CodeKindMismatch    Code = "KIND_MISMATCH"

	// Data integrity errors
	CodeInvalidExcerpt   Code = "INVALID_EXCERPT"
	CodeDuplicatePackage Code = "DUPLICATE_PACKAGE"
	CodeMalformedModel   Code = "MALFORMED_MODEL"

	// Input errors
	CodeInvalidOptions    Code = "INVALID_OPTIONS"
	CodeInvalidReference  Code = "INVALID_REFERENCE"
	CodeUnsupportedSchema Code = "UNSUPPORTED_SCHEMA"
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
