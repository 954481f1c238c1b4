package chainadapter

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iskay-network/usdc-flow-tracker/internal/apperr"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestWithRetry_SucceedsWithoutRetryingOnNilError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), fastRetryConfig(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), fastRetryConfig(), "op", func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return apperr.New(apperr.KindTransientRPC, errors.New("rate limited"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_StopsImmediatelyOnPermanentError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), fastRetryConfig(), "op", func(ctx context.Context) error {
		calls++
		return apperr.New(apperr.KindPermanentRPC, errors.New("not found"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "a permanent error must not be retried")
}

func TestWithRetry_ExhaustsMaxAttempts(t *testing.T) {
	calls := 0
	cfg := fastRetryConfig()
	err := withRetry(context.Background(), cfg, "op", func(ctx context.Context) error {
		calls++
		return apperr.New(apperr.KindTransientRPC, errors.New("still failing"))
	})
	require.Error(t, err)
	assert.Equal(t, cfg.MaxAttempts, calls)
}

func TestWithRetry_StopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := withRetry(ctx, fastRetryConfig(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 0, calls)
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, apperr.KindTransientRPC, classifyStatus(http.StatusTooManyRequests))
	assert.Equal(t, apperr.KindTransientRPC, classifyStatus(http.StatusBadGateway))
	assert.Equal(t, apperr.KindPermanentRPC, classifyStatus(http.StatusNotFound))
	assert.Equal(t, apperr.Kind(""), classifyStatus(http.StatusOK))
	assert.Equal(t, apperr.KindTransientRPC, classifyStatus(599))
	assert.Equal(t, apperr.KindPermanentRPC, classifyStatus(418))
}

func TestClassifyRPCError(t *testing.T) {
	assert.Equal(t, apperr.KindTransientRPC, classifyRPCError(-32000))
	assert.Equal(t, apperr.KindTransientRPC, classifyRPCError(-32005))
	assert.Equal(t, apperr.KindPermanentRPC, classifyRPCError(-32602))
}
