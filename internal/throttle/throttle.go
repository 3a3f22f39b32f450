// Package throttle spaces out detail page visits of one worker.
package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/retry"
	"github.com/rs/zerolog/log"
)

const DefaultDelay = 1 * time.Second

// Throttle blocks for a fixed delay per call. In adaptive mode the delay
// doubles for each consecutive render timeout up to max and drops back to
// the base delay on the next success.
type Throttle struct {
	base     time.Duration
	adaptive bool
	max      time.Duration

	mu       sync.Mutex
	failures int
}

// New creates a fixed-delay Throttle. A negative delay gets the default;
// zero disables waiting.
func New(delay time.Duration) *Throttle {
	if delay < 0 {
		delay = DefaultDelay
	}
	return &Throttle{base: delay}
}

// NewAdaptive creates a Throttle that backs off on render timeouts
func NewAdaptive(delay, max time.Duration) *Throttle {
	t := New(delay)
	t.adaptive = true
	t.max = max
	if t.max < t.base {
		t.max = t.base
	}
	return t
}

// Delay returns the delay the next Wait will block for
func (t *Throttle) Delay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.adaptive || t.failures == 0 || t.base == 0 {
		return t.base
	}
	return retry.Backoff(t.failures, retry.Config{
		InitialBackoff: t.base,
		MaxBackoff:     t.max,
		Multiplier:     2.0,
	})
}

// Wait blocks for the current delay or until ctx is done
func (t *Throttle) Wait(ctx context.Context) error {
	d := t.Delay()
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Observe records the outcome of a render wait. It is a no-op unless the
// throttle is adaptive.
func (t *Throttle) Observe(timedOut bool) {
	if !t.adaptive {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !timedOut {
		t.failures = 0
		return
	}
	t.failures++
	log.Debug().Int("consecutive_timeouts", t.failures).Msg("Throttle backing off")
}
