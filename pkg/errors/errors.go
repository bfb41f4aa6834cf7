// Package errors provides structured error types for packforge.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library and the CLI
//   - Machine-readable error codes for programmatic handling
//   - Non-fatal diagnostics collected during resolution
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - AMBIGUOUS_*: Catalog entries that match equally well
//   - *_UNAVAILABLE / UNKNOWN_*: Runtime identifier resolution failures
//   - CONTRACT_VIOLATION: Upstream data corruption, never a user error
//   - INSTALL_* / REPAIR_*: Transactional pack installation failures
//
// # Fatal errors vs. diagnostics
//
// Resolution keeps going after ambiguity, unknown-RID and unavailability
// conditions so one bad catalog entry does not hide every other problem. Those
// conditions are recorded as [Diagnostic] values. Contract violations abort the
// operation and are returned as *[Error].
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownRID, "runtime identifier %q is not in the graph", rid)
//	if errors.Is(err, errors.ErrCodeUnknownRID) {
//	    // Handle unknown RID
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInstallFailed, origErr, "install %s", pack)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidPackage  Code = "INVALID_PACKAGE"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidCatalog  Code = "INVALID_CATALOG"
	ErrCodeInvalidPath     Code = "INVALID_PATH"
	ErrCodeInvalidVersion  Code = "INVALID_VERSION"

	// Resolution errors
	ErrCodeAmbiguousRuntimePack   Code = "AMBIGUOUS_RUNTIME_PACK"
	ErrCodeAmbiguousCrossgenPack  Code = "AMBIGUOUS_CROSSGEN_PACK"
	ErrCodeUnknownRID             Code = "UNKNOWN_RID"
	ErrCodeRuntimePackUnavailable Code = "RUNTIME_PACK_UNAVAILABLE"
	ErrCodeCrossgenPackMissing    Code = "CROSSGEN_PACK_MISSING"
	ErrCodeHostRIDUnsupported     Code = "HOST_RID_UNSUPPORTED"

	// Data corruption
	ErrCodeContractViolation Code = "CONTRACT_VIOLATION"

	// Installation errors
	ErrCodeInstallFailed     Code = "INSTALL_FAILED"
	ErrCodeRepairFailed      Code = "REPAIR_FAILED"
	ErrCodeCorruptCacheEntry Code = "CORRUPT_CACHE_ENTRY"
	ErrCodePreviewExcluded   Code = "PREVIEW_EXCLUDED"
	ErrCodeNotInstalled      Code = "NOT_INSTALLED"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"

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

// ContractViolation reports upstream data that cannot occur in a well-formed
// build. These are never recoverable.
func ContractViolation(format string, args ...any) *Error {
	return New(ErrCodeContractViolation, format, args...)
}

// =============================================================================
// Diagnostics
// =============================================================================

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is a non-fatal condition recorded during resolution.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %s", d.Severity, d.Code, d.Message)
}

// Diagnostics is an ordered list of diagnostics.
type Diagnostics []Diagnostic

// Errorf appends an error-severity diagnostic.
func (d *Diagnostics) Errorf(code Code, format string, args ...any) {
	*d = append(*d, Diagnostic{Code: code, Severity: SeverityError, Message: fmt.Sprintf(format, args...)})
}

// Warnf appends a warning-severity diagnostic.
func (d *Diagnostics) Warnf(code Code, format string, args ...any) {
	*d = append(*d, Diagnostic{Code: code, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any diagnostic has error severity.
func (d Diagnostics) HasErrors() bool {
	for _, diag := range d {
		if diag.Severity == SeverityError {
			return true
		}
	}
	return false
}

// WithCode returns the diagnostics carrying code, in order.
func (d Diagnostics) WithCode(code Code) Diagnostics {
	var out Diagnostics
	for _, diag := range d {
		if diag.Code == code {
			out = append(out, diag)
		}
	}
	return out
}

// Err folds error-severity diagnostics into a single *Error, or nil when
// there are none. The code of the first error is used.
func (d Diagnostics) Err() error {
	var msgs []string
	var code Code
	for _, diag := range d {
		if diag.Severity != SeverityError {
			continue
		}
		if code == "" {
			code = diag.Code
		}
		msgs = append(msgs, diag.Message)
	}
	if len(msgs) == 0 {
		return nil
	}
	return New(code, "%s", strings.Join(msgs, "; "))
}
