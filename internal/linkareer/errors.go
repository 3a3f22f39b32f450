package linkareer

import (
	"context"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/browser"
)

// fatal returns the error that must stop the run, or nil when err only
// affects the current page, element or field.
func fatal(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if browser.IsSessionInit(err) {
		return err
	}
	return ctx.Err()
}
