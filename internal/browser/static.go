// internal/browser/static.go
package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
)

// StaticEngine loads pages with plain HTTP requests and answers queries with
// goquery. It runs no JavaScript, so it only sees server-rendered markup.
type StaticEngine struct {
	client    *http.Client
	userAgent string
}

// NewStaticEngine creates a StaticEngine. A nil client gets a default one.
func NewStaticEngine(client *http.Client, userAgent string) *StaticEngine {
	if client == nil {
		client, _ = NewStaticClient(30*time.Second, "")
	}
	return &StaticEngine{client: client, userAgent: userAgent}
}

// NewStaticClient builds the HTTP client of a StaticEngine: pooled
// connections, a cookie jar scoped by public suffix and an optional proxy.
func NewStaticClient(timeout time.Duration, proxy string) (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", proxy, err)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		Jar:       jar,
	}, nil
}

// Name returns the name of this engine
func (e *StaticEngine) Name() string {
	return "static"
}

// Launch returns an empty page; there is no process to start
func (e *StaticEngine) Launch(ctx context.Context) (Page, error) {
	return &staticPage{engine: e}, nil
}

type staticPage struct {
	engine *StaticEngine
	doc    *goquery.Document
	closed bool
}

// Navigate fetches url and parses the response body
func (p *staticPage) Navigate(ctx context.Context, url string) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewError(CodeNavigation, "failed to create request", err).WithURL(url)
	}
	if p.engine.userAgent != "" {
		req.Header.Set("User-Agent", p.engine.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := p.engine.client.Do(req)
	if err != nil {
		return NewError(CodeNavigation, "failed to fetch URL", err).WithURL(url)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return NewError(CodeNavigation, "unexpected response status", nil).
			WithURL(url).
			WithStatus(resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return NewError(CodeNavigation, "failed to parse HTML", err).WithURL(url)
	}
	p.doc = doc

	log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Static page loaded")
	return nil
}

// QueryAll runs selector against the last loaded document
// (an invalid selector matches nothing).
func (p *staticPage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	if p.doc == nil {
		return []Element{}, nil
	}

	selection := p.doc.Find(selector)
	elements := make([]Element, 0, selection.Length())
	selection.Each(func(i int, s *goquery.Selection) {
		elements = append(elements, &staticElement{sel: s})
	})
	return elements, nil
}

func (p *staticPage) Alive() bool {
	return !p.closed
}

func (p *staticPage) Close() error {
	p.closed = true
	p.doc = nil
	return nil
}

type staticElement struct {
	sel *goquery.Selection
}

func (e *staticElement) Text(ctx context.Context) (string, error) {
	return e.sel.Text(), nil
}

func (e *staticElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, ok := e.sel.Attr(name)
	return value, ok, nil
}
