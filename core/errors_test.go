package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineErrorWrapsAndUnwraps(t *testing.T) {
	base := ErrTargetNotFound
	wrapped := NewPipelineError("predictorpool.evaluateThreshold", "not_found", base)
	wrapped.ID = "target-123"

	assert.True(t, errors.Is(wrapped, ErrTargetNotFound))
	assert.Equal(t, base, wrapped.Unwrap())
	assert.Contains(t, wrapped.Error(), "target-123")
}

func TestPipelineErrorMessageFallback(t *testing.T) {
	e := &PipelineError{Message: "no op or err set"}
	assert.Equal(t, "no op or err set", e.Error())

	e2 := &PipelineError{Kind: "storage"}
	assert.Equal(t, "storage error", e2.Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrTransportFailed))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.False(t, IsRetryable(ErrUsageQuotaExceeded))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrPredictionNotFound))
	assert.False(t, IsNotFound(ErrDuplicateActivePrediction))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(ErrTestTargetInProduction))
	assert.True(t, IsValidation(fmt.Errorf("wrapped: %w", ErrSymbolMissingTestMarker)))
	assert.False(t, IsValidation(ErrStorageFatal))
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(ErrDuplicateActivePrediction))
	assert.False(t, IsConflict(ErrTargetNotFound))
}
