package xretry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff(t *testing.T) {
	t.Run("deterministic growth without jitter", func(t *testing.T) {
		b := NewExponentialBackoff(
			WithBaseDelay(time.Second),
			WithMultiplier(2),
			WithMaxDelay(30*time.Second),
			WithJitter(0),
		)
		assert.Equal(t, time.Second, b.NextDelay(1))
		assert.Equal(t, 2*time.Second, b.NextDelay(2))
		assert.Equal(t, 4*time.Second, b.NextDelay(3))
		assert.Equal(t, 8*time.Second, b.NextDelay(4))
	})

	t.Run("capped at max delay", func(t *testing.T) {
		b := NewExponentialBackoff(
			WithBaseDelay(time.Second),
			WithMultiplier(2),
			WithMaxDelay(5*time.Second),
			WithJitter(0),
		)
		assert.Equal(t, 5*time.Second, b.NextDelay(10))
		assert.Equal(t, 5*time.Second, b.NextDelay(1000))
	})

	t.Run("jitter keeps delay within half-to-full band", func(t *testing.T) {
		b := NewExponentialBackoff(
			WithBaseDelay(time.Second),
			WithMultiplier(2),
			WithMaxDelay(30*time.Second),
		)
		for attempt := 1; attempt <= 5; attempt++ {
			base := time.Second * time.Duration(1<<(attempt-1))
			for i := 0; i < 100; i++ {
				d := b.NextDelay(attempt)
				assert.GreaterOrEqual(t, d, base/2)
				assert.LessOrEqual(t, d, base)
			}
		}
	})

	t.Run("attempt below one is clamped", func(t *testing.T) {
		b := NewExponentialBackoff(WithJitter(0))
		assert.Equal(t, b.NextDelay(1), b.NextDelay(0))
		assert.Equal(t, b.NextDelay(1), b.NextDelay(-5))
	})

	t.Run("huge attempt does not overflow past max", func(t *testing.T) {
		b := NewExponentialBackoff(WithJitter(0))
		assert.Equal(t, 30*time.Second, b.NextDelay(1<<30))
	})

	t.Run("max delay raised to base delay", func(t *testing.T) {
		b := NewExponentialBackoff(
			WithBaseDelay(10*time.Second),
			WithMaxDelay(time.Second),
			WithJitter(0),
		)
		assert.Equal(t, 10*time.Second, b.NextDelay(1))
	})
}

func TestFixedAndNoBackoff(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, NewFixedBackoff(250*time.Millisecond).NextDelay(3))
	assert.Equal(t, time.Duration(0), NewFixedBackoff(-time.Second).NextDelay(1))
	assert.Equal(t, time.Duration(0), NewNoBackoff().NextDelay(7))
}
