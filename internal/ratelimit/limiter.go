// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter paces page navigations so the crawler never hammers one origin.
type RateLimiter interface {
	// Wait blocks until a navigation to urlStr may proceed.
	// If the context is cancelled first, its error is returned.
	Wait(ctx context.Context, urlStr string) error
}

// HostLimiter keeps one token bucket per host. It is safe for concurrent use,
// so every worker session in a run can share a single instance.
type HostLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	perHost  rate.Limit
	burst    int
}

// NewHostLimiter creates a limiter allowing requestsPerSecond per host
func NewHostLimiter(requestsPerSecond float64, burst int) *HostLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 3.0
	}
	if burst <= 0 {
		burst = 1
	}

	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Wait blocks until the host of urlStr has a token available
func (l *HostLimiter) Wait(ctx context.Context, urlStr string) error {
	host := hostOf(urlStr)
	if host == "" {
		// Unparseable URL: navigation will fail on its own
		return nil
	}
	return l.limiter(host).Wait(ctx)
}

func (l *HostLimiter) limiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(l.perHost, l.burst)
		l.limiters[host] = lim
	}
	return lim
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context, urlStr string) error {
	return ctx.Err()
}

func hostOf(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Host
}
