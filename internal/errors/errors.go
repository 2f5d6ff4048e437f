// Package errors defines stable error codes for blenddoc failure modes.
// Per-file failures are absorbed at the record level during traversal;
// only fatal codes abort a run.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ExtractionFailed indicates the extractor could not parse or open a file
	ExtractionFailed ErrorCode = "EXTRACTION_FAILED"
	// ExtractorTimeout indicates the extractor exceeded its time budget
	ExtractorTimeout ErrorCode = "EXTRACTOR_TIMEOUT"
	// ProjectRootUnreadable indicates the project root is missing or unreadable
	ProjectRootUnreadable ErrorCode = "PROJECT_ROOT_UNREADABLE"
	// RecordExists indicates a file record already exists for a path
	RecordExists ErrorCode = "RECORD_EXISTS"
	// RecordNotFound indicates no file record exists for a path
	RecordNotFound ErrorCode = "RECORD_NOT_FOUND"
	// StatusRegression indicates an attempt to move a record status backwards
	StatusRegression ErrorCode = "STATUS_REGRESSION"
	// Cancelled indicates the run was interrupted before completion
	Cancelled ErrorCode = "CANCELLED"
	// StorageFailure indicates the catalog database could not be read or written
	StorageFailure ErrorCode = "STORAGE_FAILURE"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// ScanError represents a blenddoc error with a stable code and optional cause
type ScanError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new ScanError
func New(code ErrorCode, message string, cause error) *ScanError {
	return &ScanError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Newf creates a new ScanError with a formatted message and no cause
func Newf(code ErrorCode, format string, args ...interface{}) *ScanError {
	return &ScanError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface
func (e *ScanError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ScanError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *ScanError) WithDetails(details interface{}) *ScanError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from an error chain.
// Returns InternalError for errors that are not ScanErrors.
func CodeOf(err error) ErrorCode {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Code
	}
	return InternalError
}

// IsFatal reports whether an error should abort the entire run rather
// than be recorded against a single file.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case ProjectRootUnreadable, StorageFailure:
		return true
	}
	return false
}
