// Package render synchronizes with asynchronously populated pages.
package render

import (
	"context"
	"time"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/browser"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout      = 12 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// Waiter polls for a selector until it matches or the timeout elapses.
// One Waiter is shared by every caller of a crawl.
type Waiter struct {
	timeout time.Duration
	poll    time.Duration
}

// NewWaiter creates a Waiter; zero values get the defaults
func NewWaiter(timeout, poll time.Duration) *Waiter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Waiter{timeout: timeout, poll: poll}
}

// Timeout returns the configured wait bound
func (w *Waiter) Timeout() time.Duration {
	return w.timeout
}

// Wait returns nil as soon as selector matches at least one element. A
// RENDER_TIMEOUT error means the page did not load as expected.
func (w *Waiter) Wait(ctx context.Context, q browser.Querier, selector string) error {
	start := time.Now()
	deadline := start.Add(w.timeout)

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		elements, err := q.QueryAll(ctx, selector)
		switch {
		case err == nil && len(elements) > 0:
			log.Debug().
				Str("selector", selector).
				Dur("elapsed", time.Since(start)).
				Msg("Render wait satisfied")
			return nil
		case browser.IsSessionInit(err):
			return err
		case err != nil:
			log.Debug().Err(err).Str("selector", selector).Msg("Query failed while waiting, retrying")
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !time.Now().Before(deadline) {
			return browser.NewError(browser.CodeRenderTimeout,
				"no element matched "+selector+" within "+w.timeout.String(), nil)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
