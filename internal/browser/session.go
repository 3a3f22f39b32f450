// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/ratelimit"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/retry"
	"github.com/rs/zerolog/log"
)

// Session owns one launched engine for the lifetime of a crawl.
//
// Start and Stop are idempotent and Navigate/QueryAll start the session
// lazily, so callers never have to order them. A Session is not meant to be
// driven by several goroutines at once; concurrent crawls give every worker
// its own Session.
type Session struct {
	engine     Engine
	limiter    ratelimit.RateLimiter
	retry      retry.Config
	navTimeout time.Duration

	mu      sync.Mutex
	page    Page
	crashes int
}

// SessionOption customizes a Session
type SessionOption func(*Session)

// WithRateLimiter paces navigations through lim
func WithRateLimiter(lim ratelimit.RateLimiter) SessionOption {
	return func(s *Session) {
		if lim != nil {
			s.limiter = lim
		}
	}
}

// WithRetry sets the navigation retry policy
func WithRetry(cfg retry.Config) SessionOption {
	return func(s *Session) {
		s.retry = cfg
	}
}

// WithNavigationTimeout bounds each navigation attempt
func WithNavigationTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.navTimeout = d
	}
}

// NewSession creates a Session for engine. Nothing is launched until the
// first Start, Navigate or QueryAll.
func NewSession(engine Engine, opts ...SessionOption) *Session {
	s := &Session{
		engine:  engine,
		limiter: ratelimit.Unlimited{},
		retry:   retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the engine if it is not running yet. Launch failures are
// returned as a SESSION_INIT error and are never retried here.
func (s *Session) Start(ctx context.Context) error {
	_, err := s.ensure(ctx)
	return err
}

func (s *Session) ensure(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		return s.page, nil
	}

	log.Info().Str("engine", s.engine.Name()).Msg("Starting browser session")
	page, err := s.engine.Launch(ctx)
	if err != nil {
		return nil, NewError(CodeSessionInit, "failed to launch "+s.engine.Name()+" engine", err)
	}
	s.page = page
	return page, nil
}

// Stop closes the engine if it is running. Close errors are logged and
// dropped; the session is always left stopped.
func (s *Session) Stop() {
	s.mu.Lock()
	page := s.page
	s.page = nil
	s.mu.Unlock()

	if page == nil {
		return
	}
	if err := page.Close(); err != nil {
		log.Debug().Err(err).Msg("Ignoring error while closing browser session")
	}
	log.Info().Str("engine", s.engine.Name()).Msg("Browser session stopped")
}

// Started reports whether an engine is currently running
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page != nil
}

// Crashes returns how many times the engine died underneath the session.
// A change between two calls means the current page was lost.
func (s *Session) Crashes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crashes
}

// Navigate loads url, starting the session first if needed. Failures come
// back as NAVIGATION errors; if the engine died underneath us the session is
// reset so the next call launches a fresh one.
func (s *Session) Navigate(ctx context.Context, url string) error {
	page, err := s.ensure(ctx)
	if err != nil {
		return err
	}

	if err := s.limiter.Wait(ctx, url); err != nil {
		return err
	}

	err = retry.Do(ctx, s.retry, func() error {
		navCtx := ctx
		if s.navTimeout > 0 {
			var cancel context.CancelFunc
			navCtx, cancel = context.WithTimeout(ctx, s.navTimeout)
			defer cancel()
		}
		return page.Navigate(navCtx, url)
	})
	if err == nil {
		return nil
	}

	s.resetIfDead(page)

	var navErr *Error
	if errors.As(err, &navErr) && navErr.Code == CodeNavigation {
		return err
	}
	return NewError(CodeNavigation, "navigation failed", err).WithURL(url)
}

// QueryAll returns every element matching selector on the current page
func (s *Session) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	page, err := s.ensure(ctx)
	if err != nil {
		return nil, err
	}

	elements, err := page.QueryAll(ctx, selector)
	if err != nil {
		s.resetIfDead(page)
		return nil, err
	}
	return elements, nil
}

// resetIfDead drops page when the engine behind it has gone away
func (s *Session) resetIfDead(page Page) {
	if page.Alive() {
		return
	}

	s.mu.Lock()
	if s.page == page {
		s.page = nil
		s.crashes++
	}
	s.mu.Unlock()

	_ = page.Close()
	log.Warn().Str("engine", s.engine.Name()).Msg("Browser session crashed, will relaunch on next use")
}
