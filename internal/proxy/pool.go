// Package proxy hands out proxies to crawl workers in rotation.
package proxy

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultCooldown is how long a failed proxy is skipped
const DefaultCooldown = 5 * time.Minute

// Pool rotates through a list of proxies, skipping recently failed ones
type Pool struct {
	proxies  []string
	index    int
	cooldown time.Duration
	mu       sync.Mutex
	failed   map[string]time.Time
}

// NewPool creates a Pool over proxies
func NewPool(proxies []string) *Pool {
	return &Pool{
		proxies:  proxies,
		cooldown: DefaultCooldown,
		failed:   make(map[string]time.Time),
	}
}

// ParseList splits a comma separated proxy list and validates each entry.
// Entries without a scheme are taken as http proxies.
func ParseList(list string) ([]string, error) {
	var out []string
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", raw, err)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return nil, fmt.Errorf("invalid proxy %q: unsupported scheme %s", raw, u.Scheme)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("invalid proxy %q: missing host", raw)
		}
		out = append(out, u.String())
	}
	return out, nil
}

// Len returns the number of proxies in the pool
func (p *Pool) Len() int {
	return len(p.proxies)
}

// Next returns the next healthy proxy, or "" for an empty pool. When every
// proxy failed recently the next one in line is returned anyway.
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	start := p.index
	for {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		if failTime, ok := p.failed[proxy]; ok {
			if time.Since(failTime) < p.cooldown {
				if p.index == start {
					return proxy
				}
				continue
			}
			delete(p.failed, proxy)
		}

		return proxy
	}
}

// MarkFailed skips proxy for the cooldown period
func (p *Pool) MarkFailed(proxy string) {
	if proxy == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = time.Now()
}

// MarkHealthy clears the failure status of a proxy
func (p *Pool) MarkHealthy(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}
