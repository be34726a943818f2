package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeRateLimited  ErrorType = "rate_limited"
	ErrorTypeExhausted    ErrorType = "exhausted"
	ErrorTypeExtraction   ErrorType = "extraction"
	ErrorTypeDelivery     ErrorType = "delivery"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeInternal     ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewUnauthorizedError creates an error for a user not on the allow-list
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Cause:   cause,
	}
}

// NewRateLimitedError creates an error for a rate-limit or quota condition
// reported by a remote model. The failover engine recovers from these by
// rotating the pool cursor; they only surface when the pool is exhausted.
func NewRateLimitedError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeRateLimited,
		Message: message,
		Cause:   cause,
	}
}

// NewExhaustedError creates an error for when every model identity has been
// tried the configured number of times without success
func NewExhaustedError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeExhausted,
		Message: message,
		Cause:   cause,
	}
}

// NewExtractionError creates a fatal extraction error: any remote failure
// that is not a rate-limit/quota condition. Never retried.
func NewExtractionError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeExtraction,
		Message: message,
		Cause:   cause,
	}
}

// NewDeliveryError creates an error for a failed email transmission
func NewDeliveryError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeDelivery,
		Message: message,
		Cause:   cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Cause:   cause,
	}
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// UserMessage extracts a short human-readable message from an error,
// suitable for relaying back to the chat.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "an unexpected error occurred"
}
