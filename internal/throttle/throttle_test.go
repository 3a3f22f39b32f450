package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitBlocksForDelay(t *testing.T) {
	th := New(40 * time.Millisecond)

	start := time.Now()
	require.NoError(t, th.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestWaitZeroDelay(t *testing.T) {
	th := New(0)

	start := time.Now()
	require.NoError(t, th.Wait(context.Background()))
	assert.Less(t, time.Since(start), 20*time.Millisecond)
}

func TestNegativeDelayUsesDefault(t *testing.T) {
	assert.Equal(t, DefaultDelay, New(-1).Delay())
}

func TestWaitCancelled(t *testing.T) {
	th := New(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := th.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFixedThrottleIgnoresObservations(t *testing.T) {
	th := New(100 * time.Millisecond)
	th.Observe(true)
	th.Observe(true)
	assert.Equal(t, 100*time.Millisecond, th.Delay())
}

func TestAdaptiveBackoff(t *testing.T) {
	th := NewAdaptive(100*time.Millisecond, 350*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, th.Delay())

	th.Observe(true)
	assert.Equal(t, 200*time.Millisecond, th.Delay())

	th.Observe(true)
	assert.Equal(t, 350*time.Millisecond, th.Delay(), "delay is capped")

	th.Observe(false)
	assert.Equal(t, 100*time.Millisecond, th.Delay(), "success resets the delay")
}
