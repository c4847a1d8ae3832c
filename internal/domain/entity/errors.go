package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNoData indicates the upstream returned no usable data for the request
	ErrNoData = errors.New("no data available")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstream indicates the upstream provider failed or rejected the request
	ErrUpstream = errors.New("upstream error")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Unwrap ties every validation failure to ErrInvalidInput so callers can
// match the whole class with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
