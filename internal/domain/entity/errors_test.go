package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "symbol validation error",
			field:    "symbol",
			message:  "symbol is required",
			expected: "validation error on field 'symbol': symbol is required",
		},
		{
			name:     "interval validation error",
			field:    "interval",
			message:  "unsupported interval",
			expected: "validation error on field 'interval': unsupported interval",
		},
		{
			name:     "empty field name",
			field:    "",
			message:  "test message",
			expected: "validation error on field '': test message",
		},
		{
			name:     "empty message",
			field:    "test",
			message:  "",
			expected: "validation error on field 'test': ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ValidationError{
				Field:   tt.field,
				Message: tt.message,
			}

			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestValidationError_UnwrapsToInvalidInput(t *testing.T) {
	err := &ValidationError{Field: "symbol", Message: "symbol is required"}

	assert.ErrorIs(t, err, ErrInvalidInput)

	// Matching survives further wrapping.
	wrapped := fmt.Errorf("validate request: %w", err)
	assert.ErrorIs(t, wrapped, ErrInvalidInput)

	var validationErr *ValidationError
	assert.ErrorAs(t, wrapped, &validationErr)
	assert.Equal(t, "symbol", validationErr.Field)
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{ErrNoData, ErrInvalidInput, ErrUpstream}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}

func TestSentinelErrors_WrappedMatching(t *testing.T) {
	err := fmt.Errorf("fetch chart: %w", ErrNoData)
	assert.ErrorIs(t, err, ErrNoData)
	assert.NotErrorIs(t, err, ErrUpstream)
}
