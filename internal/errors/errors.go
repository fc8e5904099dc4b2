package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrTypeNetwork represents network-related errors
	ErrTypeNetwork ErrorType = "network"
	// ErrTypeAuth represents authentication errors
	ErrTypeAuth ErrorType = "auth"
	// ErrTypeUnsupported represents inputs no resolver can handle
	ErrTypeUnsupported ErrorType = "unsupported_input"
	// ErrTypeResolution represents metadata/source resolution errors
	ErrTypeResolution ErrorType = "resolution"
	// ErrTypeDecryption represents decryption errors
	ErrTypeDecryption ErrorType = "decryption"
	// ErrTypeSubprocess represents external tool failures
	ErrTypeSubprocess ErrorType = "subprocess"
	// ErrTypeFileSystem represents file system errors
	ErrTypeFileSystem ErrorType = "filesystem"
	// ErrTypeValidation represents validation errors
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeUnknown represents unknown errors
	ErrTypeUnknown ErrorType = "unknown"
)

// AppError represents an application error with context.
// Continuable marks failures a resolution fallback chain may absorb
// by moving to its next branch; non-continuable errors fail the job.
type AppError struct {
	Type        ErrorType
	Message     string
	StatusCode  int
	Continuable bool
	Cause       error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithStatus overrides the HTTP status code attached to the error
func (e *AppError) WithStatus(code int) *AppError {
	e.StatusCode = code
	return e
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{
		Type:        ErrTypeNetwork,
		Message:     message,
		StatusCode:  http.StatusServiceUnavailable,
		Continuable: true,
		Cause:       cause,
	}
}

// NewAuthError creates a new authentication error
func NewAuthError(message string, cause error) *AppError {
	return &AppError{
		Type:        ErrTypeAuth,
		Message:     message,
		StatusCode:  http.StatusUnauthorized,
		Continuable: true, // A later branch may not need credentials
		Cause:       cause,
	}
}

// NewUnsupportedError creates an error for inputs no resolver handles
func NewUnsupportedError(message string) *AppError {
	return &AppError{
		Type:        ErrTypeUnsupported,
		Message:     message,
		StatusCode:  http.StatusUnprocessableEntity,
		Continuable: false,
		Cause:       nil,
	}
}

// NewResolutionError creates a new resolution error
func NewResolutionError(message string, cause error) *AppError {
	return &AppError{
		Type:        ErrTypeResolution,
		Message:     message,
		StatusCode:  http.StatusBadGateway,
		Continuable: true,
		Cause:       cause,
	}
}

// NewDecryptionError creates a new decryption error
func NewDecryptionError(message string, cause error) *AppError {
	return &AppError{
		Type:        ErrTypeDecryption,
		Message:     message,
		StatusCode:  http.StatusInternalServerError,
		Continuable: true, // The search path can still serve the track
		Cause:       cause,
	}
}

// NewSubprocessError creates an error for an external tool failure
func NewSubprocessError(message string, cause error) *AppError {
	return &AppError{
		Type:        ErrTypeSubprocess,
		Message:     message,
		StatusCode:  http.StatusInternalServerError,
		Continuable: false,
		Cause:       cause,
	}
}

// NewFileSystemError creates a new file system error
func NewFileSystemError(message string, cause error) *AppError {
	return &AppError{
		Type:        ErrTypeFileSystem,
		Message:     message,
		StatusCode:  http.StatusInternalServerError,
		Continuable: false,
		Cause:       cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:        ErrTypeValidation,
		Message:     message,
		StatusCode:  http.StatusBadRequest,
		Continuable: false,
		Cause:       nil,
	}
}

// IsContinuable checks if a fallback chain may absorb the error.
// Wrapped AppErrors are found through the error chain.
func IsContinuable(err error) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Continuable
	}
	return false
}

// GetErrorType returns the error type from an error
func GetErrorType(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrTypeUnknown
}

// GetStatusCode returns the HTTP status attached to an error, or 0
func GetStatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 0
}

// IsUnsupportedError checks if an error marks an unsupported input
func IsUnsupportedError(err error) bool {
	return GetErrorType(err) == ErrTypeUnsupported
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	return GetErrorType(err) == ErrTypeAuth
}

// IsNetworkError checks if an error is a network error
func IsNetworkError(err error) bool {
	return GetErrorType(err) == ErrTypeNetwork
}
