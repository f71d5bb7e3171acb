package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Close()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.AllowAt(1, now))
	}
	assert.False(t, rl.AllowAt(1, now))
	assert.True(t, rl.AllowAt(2, now), "у каждого пользователя свой лимит")

	// одна команда восстанавливается за window/limit
	assert.True(t, rl.AllowAt(1, now.Add(21*time.Second)))
	assert.False(t, rl.AllowAt(1, now.Add(21*time.Second)))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	defer rl.Close()
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow(1))
	}
	assert.Zero(t, rl.Len())
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	rl.AllowAt(1, now)
	rl.AllowAt(2, now.Add(50*time.Second))
	rl.sweep(now.Add(90 * time.Second))
	assert.Equal(t, 1, rl.Len())
}

func TestRecoverFromPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		defer RecoverFromPanic(42)
		panic("boom")
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "привет", Truncate("привет", 10))
	assert.Equal(t, "при...", Truncate("привет", 3))
}
