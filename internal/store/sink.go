// Package store persists activity records: JSON, JSON lines, CSV and
// Markdown files, and SQLite or PostgreSQL tables.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/pkg/models"
)

// Sink receives records of a crawl. Sinks are written from one goroutine.
type Sink interface {
	Write(ctx context.Context, rec *models.ActivityRecord) error
	Close() error
}

// KnownChecker reports whether a detail URL was stored by an earlier run
type KnownChecker interface {
	Known(ctx context.Context, detailURL string) (bool, error)
}

// Tally summarizes a database sink after a crawl
type Tally struct {
	Backend string
	RunID   string
	Total   int // rows in the table
	Run     int // rows last written under RunID
}

// Tallier is a sink backed by a database table
type Tallier interface {
	Tally(ctx context.Context) (*Tally, error)
}

// Tallies collects the tallies of every database behind s, looking through
// wrapping sinks. It must be called before s is closed.
func Tallies(ctx context.Context, s Sink) ([]*Tally, error) {
	switch v := s.(type) {
	case Tallier:
		t, err := v.Tally(ctx)
		if err != nil {
			return nil, err
		}
		return []*Tally{t}, nil
	case interface{ Unwrap() []Sink }:
		var all []*Tally
		for _, inner := range v.Unwrap() {
			ts, err := Tallies(ctx, inner)
			if err != nil {
				return nil, err
			}
			all = append(all, ts...)
		}
		return all, nil
	case interface{ Unwrap() Sink }:
		return Tallies(ctx, v.Unwrap())
	}
	return nil, nil
}

// Format identifies a file sink
type Format string

const (
	FormatJSON     Format = "json"
	FormatJSONL    Format = "jsonl"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatSQLite   Format = "sqlite"
)

// FormatFor picks the sink format from a path's extension. Unknown
// extensions and stdout ("" or "-") are JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".csv":
		return FormatCSV
	case ".md", ".markdown":
		return FormatMarkdown
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	default:
		return FormatJSON
	}
}

// Open creates the sink for path. "" and "-" write JSON to stdout.
func Open(path string) (Sink, error) {
	format := FormatFor(path)
	if format == FormatSQLite {
		return NewSQLiteStore(path)
	}

	var w io.WriteCloser = nopCloser{os.Stdout}
	if path != "" && path != "-" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		w = f
	}

	switch format {
	case FormatJSONL:
		return NewJSONLinesSink(w), nil
	case FormatCSV:
		return NewCSVSink(w), nil
	case FormatMarkdown:
		return NewMarkdownSink(w), nil
	default:
		return NewJSONSink(w), nil
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// MultiSink writes every record to all of its sinks
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks; nil entries are ignored
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Write writes rec to every sink, stopping at the first failure
func (m *MultiSink) Write(ctx context.Context, rec *models.ActivityRecord) error {
	for _, s := range m.sinks {
		if err := s.Write(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Known asks every sink that remembers earlier runs
func (m *MultiSink) Known(ctx context.Context, detailURL string) (bool, error) {
	for _, s := range m.sinks {
		kc, ok := s.(KnownChecker)
		if !ok {
			continue
		}
		known, err := kc.Known(ctx, detailURL)
		if err != nil || known {
			return known, err
		}
	}
	return false, nil
}

// Unwrap returns the combined sinks
func (m *MultiSink) Unwrap() []Sink {
	return m.sinks
}

// Close closes every sink and joins their errors
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
