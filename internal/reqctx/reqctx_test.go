package reqctx

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestWithVisit(t *testing.T) {
	ctx := WithVisit(context.Background(), "https://linkareer.com/activity/1")
	vc := GetVisit(ctx)

	if vc.VisitID == "" || vc.VisitID == "unknown" {
		t.Fatalf("Expected generated visit ID, got %q", vc.VisitID)
	}
	if vc.URL != "https://linkareer.com/activity/1" {
		t.Errorf("Expected URL to be stored, got %q", vc.URL)
	}

	other := GetVisit(WithVisit(context.Background(), "x"))
	if other.VisitID == vc.VisitID {
		t.Error("Expected distinct visit IDs")
	}
}

func TestGetVisitWithoutValue(t *testing.T) {
	if got := GetVisit(context.Background()).VisitID; got != "unknown" {
		t.Errorf("Expected unknown, got %q", got)
	}
}

func TestLoggerCarriesVisitID(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithVisit(context.Background(), "https://linkareer.com/activity/7")

	logger := Logger(ctx, zerolog.New(&buf))
	logger.Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, GetVisit(ctx).VisitID) {
		t.Errorf("Expected visit ID in log output, got %s", out)
	}
	if !strings.Contains(out, "activity/7") {
		t.Errorf("Expected URL in log output, got %s", out)
	}
}

func TestVisitErrorUnwraps(t *testing.T) {
	base := errors.New("boom")
	err := NewVisitError(WithVisit(context.Background(), ""), base)
	if !errors.Is(err, base) {
		t.Error("Expected VisitError to unwrap to the original error")
	}
}
