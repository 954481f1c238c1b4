package chainadapter

import (
	"context"
	"time"

	"github.com/iskay-network/usdc-flow-tracker/internal/apperr"
	"github.com/iskay-network/usdc-flow-tracker/internal/xlog"
)

var logger = xlog.New("chainadapter")

// RetryConfig controls the adapter-level exponential-backoff retry of
// spec.md §4.1: up to 3 attempts, 500ms -> 5s exponential, only for errors
// classified as transient.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig matches spec.md §4.1's stated defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    5 * time.Second,
}

// withRetry invokes fn, retrying on transient errors (as classified by
// apperr.IsRetryable) with exponential backoff, and returning immediately
// on a permanent error or on context cancellation.
func withRetry(ctx context.Context, cfg RetryConfig, op string, fn func(ctx context.Context) error) error {
	delay := cfg.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !apperr.IsRetryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		logger.Warn("transient rpc error, retrying", "op", op, "attempt", attempt, "delay", delay, "err", err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}
