// cmd/assistant-server/main_test.go
package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "restaurant-assistant/internal/common/errors"
)

func TestRetryWithBackoff(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{"transient store error retries", apperrors.NewStoreUnavailableError(errors.New("connection refused")), 3},
		{"plain error retries", errors.New("dial tcp: i/o timeout"), 3},
		{"permanent error stops", apperrors.NewInternalError(errors.New("unknown driver")), 1},
		{"validation error stops", apperrors.NewValidationFailedError("bad dsn"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := retryWithBackoff(func() error {
				calls++
				return tt.err
			}, 3, time.Millisecond, zap.NewNop(), "test operation")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestRetryWithBackoff_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	err := retryWithBackoff(func() error {
		calls++
		if calls < 2 {
			return apperrors.NewStoreUnavailableError(errors.New("starting up"))
		}
		return nil
	}, 5, time.Millisecond, zap.NewNop(), "test operation")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
