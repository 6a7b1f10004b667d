package jitter

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff_DelayBounds(t *testing.T) {
	b := NewBackoff(500*time.Millisecond, 10*time.Second)

	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for attempt, base := range want {
		got := b.Delay(attempt)
		assert.GreaterOrEqual(t, got, base, "attempt %d", attempt)
		assert.LessOrEqual(t, got, base+time.Duration(float64(base)*DefaultFactor), "attempt %d", attempt)
	}
}

func TestBackoff_NoJitter(t *testing.T) {
	b := Backoff{Base: time.Second, Max: 3 * time.Second}

	assert.Equal(t, time.Second, b.Delay(0))
	assert.Equal(t, 2*time.Second, b.Delay(1))
	assert.Equal(t, 3*time.Second, b.Delay(2))
	assert.Equal(t, 3*time.Second, b.Delay(50))
}

func TestBackoff_WaitStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Backoff{Base: time.Hour, Max: time.Hour}.Wait(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, Backoff{Base: time.Millisecond, Max: time.Millisecond}.Wait(context.Background(), 3))
}

func TestDurationWithSeed_Deterministic(t *testing.T) {
	a := DurationWithSeed(time.Second, 0.5, rand.New(rand.NewSource(42)))
	b := DurationWithSeed(time.Second, 0.5, rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b)
	assert.Equal(t, time.Second, Duration(time.Second, 0))
}
