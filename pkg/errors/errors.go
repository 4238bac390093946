// Package errors provides structured error handling for the application.
// Each error carries a code from a small taxonomy so callers can decide
// whether a failure is fatal, retryable, or safe to absorb.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	// CodeStorage covers unreachable or corrupt document/object stores.
	// Never retried automatically; surfaced to the caller.
	CodeStorage ErrorCode = "STORAGE_ERROR"

	// CodeUpstream covers external generation service failures: bad status,
	// malformed content, missing expected fields. Surfaced to the caller,
	// who may retry the whole operation.
	CodeUpstream ErrorCode = "UPSTREAM_ERROR"

	// CodeCache covers cache backend failures. Always absorbed inside the
	// cache layer; never surfaced past it.
	CodeCache ErrorCode = "CACHE_ERROR"

	// CodeValidation covers malformed document shapes detected on read.
	CodeValidation ErrorCode = "VALIDATION_FAILED"

	// CodeNotFound covers missing documents.
	CodeNotFound ErrorCode = "RECIPE_NOT_FOUND"

	// CodeInternal is the fallback for unexpected failures.
	CodeInternal ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with structured information
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Cause    error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the appropriate HTTP status code
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeStorage, CodeCache:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewStorageError creates a storage error for a failed persistence operation
func NewStorageError(operation string, cause error) *AppError {
	return NewAppError(
		CodeStorage,
		"Storage operation failed",
		fmt.Sprintf("Failed to %s", operation),
	).WithCause(cause)
}

// NewUpstreamError creates an external generation service error
func NewUpstreamError(service string, cause error) *AppError {
	return NewAppError(
		CodeUpstream,
		"External service error",
		fmt.Sprintf("Failed to communicate with %s", service),
	).WithCause(cause)
}

// NewCacheError creates a cache backend error
func NewCacheError(backend string, cause error) *AppError {
	return NewAppError(
		CodeCache,
		"Cache operation failed",
		fmt.Sprintf("Cache backend %s failed", backend),
	).WithCause(cause)
}

// NewValidationError creates a validation error
func NewValidationError(details string) *AppError {
	return NewAppError(CodeValidation, "Validation failed", details)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	message := "Resource not found"
	if resource != "" {
		message = fmt.Sprintf("%s not found", resource)
	}
	return NewAppError(CodeNotFound, message, "")
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeInternal, message, "")
}

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return CodeInternal
}
