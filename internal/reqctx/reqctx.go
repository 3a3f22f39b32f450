package reqctx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type key int

const visitKey key = 0

// VisitContext identifies a single page visit in logs
type VisitContext struct {
	VisitID   string
	URL       string
	StartTime time.Time
}

// WithVisit tags ctx with a fresh visit ID for url
func WithVisit(ctx context.Context, url string) context.Context {
	return context.WithValue(ctx, visitKey, &VisitContext{
		VisitID:   uuid.NewString(),
		URL:       url,
		StartTime: time.Now(),
	})
}

// GetVisit returns the visit stored in ctx, or an "unknown" placeholder
func GetVisit(ctx context.Context) *VisitContext {
	if vc, ok := ctx.Value(visitKey).(*VisitContext); ok {
		return vc
	}
	return &VisitContext{
		VisitID:   "unknown",
		StartTime: time.Now(),
	}
}

// Logger returns a child of base carrying the visit fields of ctx
func Logger(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	vc := GetVisit(ctx)
	c := base.With().Str("visit_id", vc.VisitID)
	if vc.URL != "" {
		c = c.Str("url", vc.URL)
	}
	return c.Logger()
}

// VisitError wraps an error with the visit it happened in
type VisitError struct {
	VisitID string
	Err     error
}

// Error implements the error interface
func (e *VisitError) Error() string {
	return fmt.Sprintf("[%s] %v", e.VisitID, e.Err)
}

// Unwrap returns the underlying error
func (e *VisitError) Unwrap() error {
	return e.Err
}

// NewVisitError creates a new VisitError from context
func NewVisitError(ctx context.Context, err error) error {
	return &VisitError{
		VisitID: GetVisit(ctx).VisitID,
		Err:     err,
	}
}
