package utils

import (
	"errors"
	"fmt"
	"matte/models"
	"net/http"
)

// ServiceError represents a service-level error with context
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    string `json:"details,omitempty"`
	Cause      error  `json:"-"` // Underlying error, not exposed in JSON
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e ServiceError) Unwrap() error {
	return e.Cause
}

// Is matches two service errors by code and message so sentinels work with errors.Is.
func (e ServiceError) Is(target error) bool {
	t, ok := target.(ServiceError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// GetServiceError extracts a ServiceError from an error chain
func GetServiceError(err error) (ServiceError, bool) {
	var serviceErr ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return ServiceError{}, false
}

func NewValidationError(message string) error {
	return ServiceError{
		Code:       models.ErrCodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewValidationErrorWithDetails keeps the field-level detail for logs.
func NewValidationErrorWithDetails(message, details string) error {
	return ServiceError{
		Code:       models.ErrCodeValidation,
		Message:    message,
		Details:    details,
		StatusCode: http.StatusBadRequest,
	}
}

func NewDisabledError(message string) error {
	return ServiceError{
		Code:       models.ErrCodeDisabled,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewNotFoundError(message string) error {
	return ServiceError{
		Code:       models.ErrCodeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewConflictError(message string) error {
	return ServiceError{
		Code:       models.ErrCodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewMethodNotAllowedError() error {
	return ServiceError{
		Code:       models.ErrCodeMethodNotAllowed,
		Message:    "Method not allowed",
		StatusCode: http.StatusMethodNotAllowed,
	}
}

func NewInternalError(message string) error {
	return ServiceError{
		Code:       models.ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewStorageError(operation string, cause error) error {
	return ServiceError{
		Code:       models.ErrCodeStorage,
		Message:    fmt.Sprintf("Storage operation failed: %s", operation),
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// WrapStorageError leaves service errors untouched and wraps everything else.
func WrapStorageError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if _, ok := GetServiceError(err); ok {
		return err
	}
	return NewStorageError(operation, err)
}

// Emergency SOS errors
var (
	ErrUserIDRequired     = NewValidationError("User ID is required")
	ErrInvalidAction      = NewValidationError("Invalid action")
	ErrInvalidRequestBody = NewValidationError("Invalid request body")
	ErrSOSDisabled        = NewDisabledError("Emergency SOS is disabled")
	ErrNoActiveEmergency  = NewNotFoundError("No active emergency found")
	ErrContactNotFound    = NewNotFoundError("Contact not found")
	ErrEmergencyActive    = NewConflictError("An emergency is already active")
	ErrMethodNotAllowed   = NewMethodNotAllowedError()
)
