package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownAllow(t *testing.T) {
	c := NewCooldown(time.Hour)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, c.Allow(1, time.Minute, now))
	assert.False(t, c.Allow(1, time.Minute, now.Add(10*time.Second)))
	assert.True(t, c.Allow(2, time.Minute, now.Add(10*time.Second)), "у каждого своя пауза")
	assert.True(t, c.Allow(1, time.Minute, now.Add(61*time.Second)))
}

func TestCooldownDisabled(t *testing.T) {
	c := NewCooldown(time.Hour)
	now := time.Now()
	for i := 0; i < 5; i++ {
		assert.True(t, c.Allow(1, 0, now))
	}
	assert.Zero(t, c.Len())
}

func TestCooldownIntervalChange(t *testing.T) {
	c := NewCooldown(time.Hour)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, c.Allow(1, time.Hour, now))
	assert.False(t, c.Allow(1, time.Hour, now.Add(time.Second)))
	// админ уменьшил паузу — старый лимитер выбрасывается
	assert.True(t, c.Allow(1, time.Second, now.Add(2*time.Second)))
}

func TestCooldownSweep(t *testing.T) {
	c := NewCooldown(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	c.Allow(1, time.Second, now)
	later := now.Add(2 * time.Hour)
	for i := 0; i < sweepEvery; i++ {
		c.Allow(2, time.Second, later)
	}
	assert.Equal(t, 1, c.Len())
}

func TestQualifies(t *testing.T) {
	assert.True(t, Qualifies("привет как дела"))
	assert.False(t, Qualifies("ок"))
	assert.False(t, Qualifies("!баланс мне пожалуйста"))
	assert.False(t, Qualifies("/start a b c"))
	assert.False(t, Qualifies("  два  слова  "))
}

func TestVoiceUnits(t *testing.T) {
	assert.Equal(t, int64(0), voiceUnits(0, 4))
	assert.Equal(t, int64(1), voiceUnits(4, 5))
	assert.Equal(t, int64(2), voiceUnits(3, 12))
	assert.Equal(t, int64(0), voiceUnits(10, 10))
	assert.Equal(t, int64(0), voiceUnits(12, 14))
}
