package resilient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Unlimited(t *testing.T) {
	r := NewRateLimiter(0, 0)

	for range 100 {
		assert.True(t, r.Allow())
	}
	assert.NoError(t, r.Wait(context.Background()))
}

func TestRateLimiter_Burst(t *testing.T) {
	r := NewRateLimiter(1, 2)

	assert.True(t, r.Allow())
	assert.True(t, r.Allow())
	assert.False(t, r.Allow())
}

func TestRateLimiter_DefaultBurst(t *testing.T) {
	r := NewRateLimiter(2.5, 0)

	assert.Equal(t, 3, r.limiter.Burst())
}

func TestRateLimiter_RecordRateLimit(t *testing.T) {
	r := NewRateLimiter(0, 0)

	r.RecordRateLimit(30 * time.Millisecond)
	assert.False(t, r.Allow())

	start := time.Now()
	require.NoError(t, r.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.True(t, r.Allow())
}

func TestRateLimiter_PauseNeverShortens(t *testing.T) {
	r := NewRateLimiter(0, 0)

	r.RecordRateLimit(time.Hour)
	r.RecordRateLimit(time.Millisecond)

	assert.True(t, time.Until(r.retryAt) > 59*time.Minute)
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	r := NewRateLimiter(0, 0)
	r.RecordRateLimit(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Wait(ctx), context.Canceled)
}
