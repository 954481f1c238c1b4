package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetentionFor(t *testing.T) {
	p := DefaultPolicy
	assert.Equal(t, p.FailedRetention, retentionFor(p, StateFailed))
	assert.Equal(t, p.CompletedRetention, retentionFor(p, StateCompleted))
	assert.Equal(t, time.Duration(0), retentionFor(p, StateWaiting))
	assert.Equal(t, time.Duration(0), retentionFor(p, StateActive))
	assert.Equal(t, time.Duration(0), retentionFor(p, StateDelayed))
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "1700000000", formatScore(1700000000))
}

// TestBackoffDoubling mirrors the exponential-backoff shift Fail performs:
// BackoffBase << (attemptsMade - 1), i.e. 2s, 4s, 8s for a 2s base.
func TestBackoffDoubling(t *testing.T) {
	base := DefaultPolicy.BackoffBase
	assert.Equal(t, 2*time.Second, base<<uint(1-1))
	assert.Equal(t, 4*time.Second, base<<uint(2-1))
	assert.Equal(t, 8*time.Second, base<<uint(3-1))
}

func TestDefaultPolicyMatchesSpec(t *testing.T) {
	assert.Equal(t, 3, DefaultPolicy.MaxAttempts)
	assert.Equal(t, 2*time.Second, DefaultPolicy.BackoffBase)
	assert.Equal(t, 24*time.Hour, DefaultPolicy.CompletedRetention)
	assert.EqualValues(t, 1000, DefaultPolicy.CompletedKeepCount)
	assert.Equal(t, 7*24*time.Hour, DefaultPolicy.FailedRetention)
}
