// Package errors provides structured error types for the modfort application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the library packages
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (malformed archives, manifests, versions)
//   - DEP_*: Dependency resolution findings (missing, conflict, cycle, incompatible)
//   - FS_*: Filesystem failures during copy/move/delete
//   - STATE_INCONSISTENT: A failed rollback left the installation in an unknown state
//   - HOST_RUNNING: The host game process blocks a transaction precondition
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidManifest, "missing field: %s", "id")
//	if errors.Is(err, errors.ErrCodeInvalidManifest) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFilesystem, origErr, "stage %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors: always raised before any destination mutation.
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidArchive  Code = "INVALID_ARCHIVE"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidVersion  Code = "INVALID_VERSION"
	ErrCodeInvalidRange    Code = "INVALID_RANGE"
	ErrCodeInvalidModID    Code = "INVALID_MOD_ID"
	ErrCodeInvalidPath     Code = "INVALID_PATH"
	ErrCodeEntryMissing    Code = "ENTRY_POINT_MISSING"

	// Dependency resolution findings. These are usually reported through a
	// resolve.Outcome rather than raised, but commands that must refuse an
	// operation surface them as errors with this code.
	ErrCodeDependencyBlocked Code = "DEP_BLOCKED"
	ErrCodeMissingDependency Code = "DEP_MISSING"
	ErrCodeVersionConflict   Code = "DEP_VERSION_CONFLICT"
	ErrCodeCircular          Code = "DEP_CIRCULAR"
	ErrCodeIncompatible      Code = "DEP_INCOMPATIBLE"

	// Repository policy errors.
	ErrCodeNotInstalled     Code = "NOT_INSTALLED"
	ErrCodeAlreadyInstalled Code = "ALREADY_INSTALLED"
	ErrCodeUninstallBlocked Code = "UNINSTALL_BLOCKED"

	// Filesystem errors: trigger automatic rollback, then surface.
	ErrCodeFilesystem Code = "FS_ERROR"

	// StateInconsistent means a rollback itself failed. Fatal by policy:
	// never silently retried or swallowed.
	ErrCodeStateInconsistent Code = "STATE_INCONSISTENT"

	// Concurrency precondition: retryable, user-actionable.
	ErrCodeHostRunning Code = "HOST_RUNNING"

	// Internal errors.
	ErrCodeInternal Code = "INTERNAL_ERROR"
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

// Retryable reports whether the error describes a transient condition the
// user can clear and retry, such as the host game process still running.
func Retryable(err error) bool {
	return Is(err, ErrCodeHostRunning)
}
