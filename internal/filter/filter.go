// Package filter selects records with a user supplied JavaScript expression,
// for example `record.activity_category.includes("IT")`.
package filter

import (
	"context"
	"fmt"
	"time"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/store"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/pkg/models"
	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"
)

// evalTimeout bounds a single evaluation so a runaway expression cannot
// stall the crawl.
const evalTimeout = time.Second

// Filter is a compiled record expression. The record is bound to `record`
// with the same keys as the JSON output.
type Filter struct {
	source  string
	program *goja.Program
}

// Compile parses expr once; it is evaluated per record by Match
func Compile(expr string) (*Filter, error) {
	program, err := goja.Compile("filter", expr, true)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return &Filter{source: expr, program: program}, nil
}

// String returns the expression source
func (f *Filter) String() string {
	return f.source
}

// Match evaluates the expression against rec and converts the result to a
// boolean with JavaScript truthiness.
func (f *Filter) Match(rec *models.ActivityRecord) (bool, error) {
	// goja runtimes are not safe for concurrent use, so every call gets one
	vm := goja.New()
	if err := vm.Set("record", recordObject(rec)); err != nil {
		return false, err
	}

	timer := time.AfterFunc(evalTimeout, func() {
		vm.Interrupt("filter timed out")
	})
	defer timer.Stop()

	value, err := vm.RunProgram(f.program)
	if err != nil {
		return false, fmt.Errorf("filter %q failed on %s: %w", f.source, rec.DetailURL, err)
	}
	return value.ToBoolean(), nil
}

func recordObject(rec *models.ActivityRecord) map[string]interface{} {
	categories := make([]interface{}, 0, len(rec.Categories))
	for _, c := range rec.Categories {
		categories = append(categories, c)
	}
	return map[string]interface{}{
		"activity_title":    optional(rec.Title),
		"activity_url":      optional(rec.HomepageURL),
		"activity_category": categories,
		"start_date":        optional(rec.StartDate),
		"end_date":          optional(rec.EndDate),
		"activity_img":      optional(rec.ImageURL),
		"detail_url":        rec.DetailURL,
	}
}

func optional(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// Sink passes only matching records on to next. A record the expression
// fails on is dropped and logged.
type Sink struct {
	next    store.Sink
	filter  *Filter
	dropped int
}

// NewSink wraps next with f
func NewSink(next store.Sink, f *Filter) *Sink {
	return &Sink{next: next, filter: f}
}

func (s *Sink) Write(ctx context.Context, rec *models.ActivityRecord) error {
	ok, err := s.filter.Match(rec)
	if err != nil {
		log.Warn().Err(err).Msg("Filter failed, dropping record")
	}
	if !ok {
		s.dropped++
		return nil
	}
	return s.next.Write(ctx, rec)
}

// Known forwards to next when it remembers earlier runs
func (s *Sink) Known(ctx context.Context, detailURL string) (bool, error) {
	if kc, ok := s.next.(store.KnownChecker); ok {
		return kc.Known(ctx, detailURL)
	}
	return false, nil
}

// Dropped returns how many records did not match
func (s *Sink) Dropped() int {
	return s.dropped
}

// Unwrap returns the sink matching records go to
func (s *Sink) Unwrap() store.Sink {
	return s.next
}

func (s *Sink) Close() error {
	return s.next.Close()
}
