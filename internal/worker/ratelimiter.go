package worker

import (
	"sync"
	"time"
)

// rateLimiter is a simple token bucket refilled once per second, enough
// to cap the worker at ratePerSec job claims per second (spec.md §4.5)
// without pulling in a dedicated rate-limiting dependency for one
// counter.
type rateLimiter struct {
	mu         sync.Mutex
	tokens     int
	max        int
	lastRefill time.Time
}

func newRateLimiter(perSecond int) *rateLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &rateLimiter{tokens: perSecond, max: perSecond, lastRefill: time.Now()}
}

// Allow reports whether a token is available, consuming one if so.
func (r *rateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(r.lastRefill); elapsed >= time.Second {
		r.tokens = r.max
		r.lastRefill = now
	}
	if r.tokens <= 0 {
		return false
	}
	r.tokens--
	return true
}
