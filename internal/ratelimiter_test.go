package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurst(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"), "hit %d within the burst", i)
	}
	assert.False(t, limiter.Allow("10.0.0.1"), "burst exhausted")

	// keys are independent
	assert.True(t, limiter.Allow("10.0.0.2"))
}

func TestRateLimiterWindowSlides(t *testing.T) {
	limiter := NewRateLimiter(2, 50*time.Millisecond)
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, limiter.Allow("10.0.0.1"), "window lapsed, budget restored")
}
