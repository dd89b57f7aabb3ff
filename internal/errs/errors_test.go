package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"weight_kg": "must be greater than 0",
		"rate_r":    "must be greater than 0",
	}}

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrScheduling))
	assert.Equal(t, "validation failed: rate_r: must be greater than 0; weight_kg: must be greater than 0", err.Error())

	wrapped := fmt.Errorf("compute: %w", err)
	var ve *ValidationError
	assert.True(t, errors.As(wrapped, &ve))
	assert.Len(t, ve.Fields, 2)
}

func TestFetchError(t *testing.T) {
	err := &FetchError{Source: "1404.json", Err: context.DeadlineExceeded}

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "holiday source 1404.json: context deadline exceeded", err.Error())
}
