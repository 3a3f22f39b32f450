// Package browser wraps the browser automation boundary: engines that can
// load a page and answer selector queries, and the Session that owns one of
// them for the lifetime of a crawl.
package browser

import "context"

// Engine launches a fresh automation backend.
//
// Any backend that can navigate, query elements by CSS selector and read
// their text and attributes can be plugged in. ChromeEngine renders
// JavaScript; StaticEngine only parses the HTML the server returns.
type Engine interface {
	// Launch starts the backend and returns a live page handle.
	Launch(ctx context.Context) (Page, error)

	// Name returns the name of the engine implementation
	Name() string
}

// Page is one live document inside a launched engine.
type Page interface {
	// Navigate loads url and blocks until the engine hands back control.
	Navigate(ctx context.Context, url string) error

	// QueryAll returns every element currently matching selector, in
	// document order. No match is an empty slice, not an error.
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// Alive reports whether the underlying backend is still usable.
	Alive() bool

	// Close releases the backend.
	Close() error
}

// Element is a single node returned by a query.
type Element interface {
	Text(ctx context.Context) (string, error)

	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
}

// Querier answers selector queries against the current document.
type Querier interface {
	QueryAll(ctx context.Context, selector string) ([]Element, error)
}

// Browser is the capability set the site scrapers drive. *Session
// implements it.
type Browser interface {
	Querier
	Navigate(ctx context.Context, url string) error
}
