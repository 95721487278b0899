// Package errors defines common error types for the application.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown         = "UNKNOWN_ERROR"
	CodeIngestionFailed = "INGESTION_FAILED"
	CodeExtractorFailed = "EXTRACTOR_FAILED"
	CodeTruncated       = "TRUNCATED"
	CodeCacheCorrupt    = "CACHE_CORRUPT"
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeDownloadError   = "DOWNLOAD_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeCancelled       = "CANCELLED"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances.
//
// ErrIngestionFailed and ErrConfigInvalid are fatal: they surface to the
// caller with no partial result. The remaining kinds are recoverable and are
// absorbed into the analysis status.
var (
	ErrIngestionFailed = New(CodeIngestionFailed, "dump ingestion failed")
	ErrExtractorFailed = New(CodeExtractorFailed, "extractor failed")
	ErrTruncated       = New(CodeTruncated, "dump truncated")
	ErrCacheCorrupt    = New(CodeCacheCorrupt, "cache entry corrupt")
	ErrConfigInvalid   = New(CodeConfigInvalid, "invalid configuration")
	ErrDatabaseError   = New(CodeDatabaseError, "database error")
	ErrDownloadError   = New(CodeDownloadError, "download error")
	ErrNotFound        = New(CodeNotFound, "resource not found")
	ErrCancelled       = New(CodeCancelled, "analysis cancelled")
)

// IsIngestionFailed checks if the error is an ingestion failure.
func IsIngestionFailed(err error) bool {
	return errors.Is(err, ErrIngestionFailed)
}

// IsConfigInvalid checks if the error is a configuration error.
func IsConfigInvalid(err error) bool {
	return errors.Is(err, ErrConfigInvalid)
}

// IsCacheCorrupt checks if the error is a corrupt cache entry.
func IsCacheCorrupt(err error) bool {
	return errors.Is(err, ErrCacheCorrupt)
}

// IsTruncated checks if the error is a truncation.
func IsTruncated(err error) bool {
	return errors.Is(err, ErrTruncated)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
