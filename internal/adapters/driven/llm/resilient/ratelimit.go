package resilient

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// defaultRateLimitPause is the pause after a rate-limit response without a Retry-After hint.
const defaultRateLimitPause = 10 * time.Second

// RateLimiter paces model calls with a token bucket and honours provider back-pressure.
// A RateLimiter built with a non-positive rate only applies back-pressure pauses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained calls.
// The burst defaults to the ceiling of the rate when burst is not positive.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	r := &RateLimiter{}
	if requestsPerSecond > 0 {
		if burst <= 0 {
			burst = max(1, int(requestsPerSecond+0.999))
		}
		r.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return r
}

// Wait blocks until a call can be made.
// It first sits out any pause set by RecordRateLimit, then waits for a token.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if r.limiter == nil {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

// RecordRateLimit pauses every caller for d, or a default pause when d is zero.
// A pause never shortens one already in effect.
func (r *RateLimiter) RecordRateLimit(d time.Duration) {
	if d <= 0 {
		d = defaultRateLimitPause
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if until := time.Now().Add(d); until.After(r.retryAt) {
		r.retryAt = until
	}
}

// Allow reports whether a call could be made now without blocking.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return r.limiter == nil || r.limiter.Allow()
}
