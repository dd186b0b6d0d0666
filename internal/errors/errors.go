// Package errors provides structured error types for the transformation engine.
//
// Every failure the engine reports carries a machine-readable Code so callers
// (CLI, HTTP API, tests) can branch on the kind of failure without string
// matching:
//
//	err := errors.New(errors.ErrCodeMalformedTransform, "rotation axis must be non-zero")
//	if errors.Is(err, errors.ErrCodeMalformedTransform) {
//	    // reject the request before anything was touched
//	}
//
// Post-apply invariant failures are reported as *Violation values, which name
// the invariant and the offending entity.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

const (
	// Resolution and validation errors; nothing has been mutated yet.
	ErrCodeUnsupportedEntityKind Code = "UNSUPPORTED_ENTITY_KIND"
	ErrCodeMalformedTransform    Code = "MALFORMED_TRANSFORM"
	ErrCodeRelationshipCycle     Code = "RELATIONSHIP_CYCLE"
	ErrCodeNotFound              Code = "NOT_FOUND"
	ErrCodeInvalidInput          Code = "INVALID_INPUT"
	ErrCodeScopeActive           Code = "SCOPE_ACTIVE"
	ErrCodeCancelled             Code = "CANCELLED"

	// Apply-time errors; these always trigger a full rollback.
	ErrCodeOrientationDecomposition Code = "ORIENTATION_DECOMPOSITION_FAILURE"
	ErrCodeInvariantViolation       Code = "INVARIANT_VIOLATION"

	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code     Code   // Machine-readable error code
	Message  string // Human-readable message
	EntityID string // Offending entity, when there is one
	Cause    error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	if e.EntityID != "" {
		fmt.Fprintf(&b, "entity %s: ", e.EntityID)
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
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

// ForEntity returns a new Error bound to an entity.
func ForEntity(code Code, entityID string, cause error, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		EntityID: entityID,
		Cause:    cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or *Violation with a matching code.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not one of ours.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var v *Violation
	if errors.As(err, &v) {
		return ErrCodeInvariantViolation
	}
	return ""
}

// EntityOf returns the entity an error is bound to, if any.
func EntityOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.EntityID != "" {
		return e.EntityID
	}
	var v *Violation
	if errors.As(err, &v) {
		return v.EntityID
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
