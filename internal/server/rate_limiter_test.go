package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestRateLimiter_Burst(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	rl := newRateLimiterWithClock(RateLimitConfig{Burst: 3, RefillInterval: time.Second}, clock.Now)

	for i := range 3 {
		assert.True(t, rl.allow(), "frame %d", i)
	}
	assert.False(t, rl.allow())
}

func TestRateLimiter_Refill(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	rl := newRateLimiterWithClock(RateLimitConfig{Burst: 2, RefillInterval: time.Second}, clock.Now)

	assert.True(t, rl.allow())
	assert.True(t, rl.allow())
	assert.False(t, rl.allow())

	clock.Advance(500 * time.Millisecond)
	assert.True(t, rl.allow())
	assert.False(t, rl.allow())

	clock.Advance(10 * time.Second)
	assert.True(t, rl.allow())
	assert.True(t, rl.allow())
	assert.False(t, rl.allow(), "tokens are capped at the burst size")
}

func TestRateLimiter_InvalidConfigFallsBack(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	rl := newRateLimiterWithClock(RateLimitConfig{}, clock.Now)

	assert.True(t, rl.allow())
	assert.False(t, rl.allow())
	clock.Advance(time.Second)
	assert.True(t, rl.allow())
}
