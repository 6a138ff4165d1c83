package services

import (
	"errors"

	apperrors "github.com/SAP-F-2025/proctoring-service/internal/errors"
)

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrConflict         = errors.New("resource conflict")

	// Session specific errors
	ErrSessionNotFound      = errors.New("proctoring session not found")
	ErrSessionNotActive     = errors.New("proctoring session is not active")
	ErrSessionAlreadyEnded  = errors.New("proctoring session already ended")
	ErrUnsupportedExportFmt = errors.New("unsupported export format")
)

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound)
}

// IsConflict checks if error represents a state conflict with the session lifecycle
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrSessionNotActive) ||
		errors.Is(err, ErrSessionAlreadyEnded)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrUnsupportedExportFmt) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}
