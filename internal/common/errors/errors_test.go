package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage_NeverLeaksDetails(t *testing.T) {
	stdErr := NewExecutionFailedError("orders", fmt.Errorf("pq: relation \"documents\" does not exist"))

	msg := UserMessage(stdErr.Code)

	assert.NotContains(t, msg, "documents")
	assert.NotContains(t, msg, "pq:")
	assert.Equal(t, genericUserMessage, msg)
}

func TestUserMessage_KnownCodes(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		contains string
	}{
		{ErrCodeForbidden, "permission"},
		{ErrCodeNotFound, "couldn't find"},
		{ErrCodeResolutionFailed, "menu"},
		{ErrCodeSessionExpired, "expired"},
		{ErrCodeGenerationFailed, "could not understand"},
		{ErrCodeLLMTimeout, "too long"},
		{ErrCodeUsageLimitExceeded, "usage limit"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Contains(t, UserMessage(tt.code), tt.contains)
		})
	}
}

func TestAsStandard(t *testing.T) {
	t.Run("wrapped standard error is unwrapped", func(t *testing.T) {
		orig := NewForbiddenError("no grant")
		wrapped := fmt.Errorf("execute: %w", orig)

		assert.Same(t, orig, AsStandard(wrapped))
		assert.Equal(t, ErrCodeForbidden, CodeOf(wrapped))
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		assert.Equal(t, ErrCodeInternal, CodeOf(fmt.Errorf("boom")))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, AsStandard(nil))
	})
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("retryable store error keeps retries", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewStoreUnavailableError(fmt.Errorf("dial tcp")))

		assert.Equal(t, "ASSISTANT_STORE_UNAVAILABLE", bpmn.Code)
		assert.Equal(t, 3, bpmn.Retries)
		assert.Equal(t, "STORE_UNAVAILABLE", bpmn.ToErrorVariables()["originalErrorCode"])
	})

	t.Run("forbidden is never retried", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewForbiddenError("x"))

		assert.Equal(t, "ASSISTANT_FORBIDDEN", bpmn.Code)
		assert.Equal(t, 0, bpmn.Retries)
	})
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeStoreUnavailable))
	assert.True(t, IsRetryableErrorCode(ErrCodeLLMTimeout))
	assert.False(t, IsRetryableErrorCode(ErrCodeForbidden))
	assert.False(t, IsRetryableErrorCode(ErrCodeInternal))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeForbidden))
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeClassificationFailed))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeExecutionFailed))
	assert.Equal(t, "LOOKUP", GetErrorCategory(ErrCodeResolutionFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeConflict))
}
