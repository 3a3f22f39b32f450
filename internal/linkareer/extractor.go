package linkareer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/browser"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/render"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/reqctx"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/throttle"
	urlutil "github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/utils/url"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Extractor turns a detail page into an ActivityRecord
type Extractor struct {
	browser  browser.Browser
	waiter   *render.Waiter
	throttle *throttle.Throttle
}

// NewExtractor creates an Extractor. A nil throttle applies the default delay.
func NewExtractor(b browser.Browser, w *render.Waiter, th *throttle.Throttle) *Extractor {
	if w == nil {
		w = render.NewWaiter(0, 0)
	}
	if th == nil {
		th = throttle.New(throttle.DefaultDelay)
	}
	return &Extractor{browser: b, waiter: w, throttle: th}
}

// crashCounter is implemented by browsers that relaunch after a crash
type crashCounter interface {
	Crashes() int
}

func crashes(b browser.Browser) int {
	if c, ok := b.(crashCounter); ok {
		return c.Crashes()
	}
	return 0
}

// field fills one part of rec and reports whether it was found
type field struct {
	name    string
	extract func(ctx context.Context, rec *models.ActivityRecord) (bool, error)
}

func (e *Extractor) fields() []field {
	return []field{
		{"title", e.title},
		{"homepage", e.homepage},
		{"categories", e.categories},
		{"start_date", e.startDate},
		{"end_date", e.endDate},
		{"image", e.image},
	}
}

// Extract visits detailURL and returns its record. A nil record with a nil
// error means the page itself failed: navigation error, the header never
// rendered, or the browser crashed before every field was read. A missing
// field only leaves that field nil.
func (e *Extractor) Extract(ctx context.Context, detailURL string) (*models.ActivityRecord, error) {
	ctx = reqctx.WithVisit(ctx, detailURL)
	logger := reqctx.Logger(ctx, log.Logger)
	start := time.Now()

	logger.Info().Msg("Visiting detail page")

	if err := e.browser.Navigate(ctx, detailURL); err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return nil, ferr
		}
		logger.Error().Err(err).Msg("Failed to open detail page, skipping")
		return nil, nil
	}

	if err := e.waiter.Wait(ctx, e.browser, SelectorDetailHeader); err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return nil, ferr
		}
		e.throttle.Observe(errors.Is(err, browser.ErrRenderTimeout))
		logger.Warn().Err(err).Msg("Detail page did not render, skipping")
		return nil, nil
	}

	// backoff from earlier timeouts applies before the streak resets
	if err := e.throttle.Wait(ctx); err != nil {
		return nil, err
	}
	e.throttle.Observe(false)

	crashed := crashes(e.browser)
	rec := models.NewActivityRecord(detailURL)
	found := 0
	for _, f := range e.fields() {
		ok, err := f.extract(ctx, rec)
		if err != nil {
			return nil, err
		}
		// the next query would relaunch onto a blank page
		if crashes(e.browser) != crashed {
			logger.Warn().Str("field", f.name).Msg("Browser session crashed while reading detail page, skipping")
			return nil, nil
		}
		if !ok {
			logger.Debug().Str("field", f.name).Msg("Field not found")
			continue
		}
		found++
	}

	logger.Info().
		Int("fields", found).
		Dur("elapsed", time.Since(start)).
		Msg("Extracted detail page")
	return rec, nil
}

func (e *Extractor) title(ctx context.Context, rec *models.ActivityRecord) (bool, error) {
	return e.setText(ctx, SelectorTitle, &rec.Title)
}

func (e *Extractor) startDate(ctx context.Context, rec *models.ActivityRecord) (bool, error) {
	return e.setText(ctx, SelectorStartDate, &rec.StartDate)
}

func (e *Extractor) endDate(ctx context.Context, rec *models.ActivityRecord) (bool, error) {
	return e.setText(ctx, SelectorEndDate, &rec.EndDate)
}

func (e *Extractor) homepage(ctx context.Context, rec *models.ActivityRecord) (bool, error) {
	return e.setURL(ctx, rec.DetailURL, SelectorHomepage, "href", &rec.HomepageURL)
}

// image prefers the card image and falls back to the poster. The fallback
// also runs when the card image is there but has no usable src.
func (e *Extractor) image(ctx context.Context, rec *models.ActivityRecord) (bool, error) {
	for _, sel := range []string{SelectorCardImage, SelectorPosterImage} {
		ok, err := e.setURL(ctx, rec.DetailURL, sel, "src", &rec.ImageURL)
		if err != nil || ok {
			return ok, err
		}
		log.Debug().Str("selector", sel).Msg("Image selector missed, trying next")
	}
	return false, nil
}

func (e *Extractor) categories(ctx context.Context, rec *models.ActivityRecord) (bool, error) {
	elements, err := e.browser.QueryAll(ctx, SelectorCategories)
	if err != nil {
		return false, fatal(ctx, err)
	}

	texts := make([]string, 0, len(elements))
	for _, el := range elements {
		text, err := el.Text(ctx)
		if err != nil {
			if ferr := fatal(ctx, err); ferr != nil {
				return false, ferr
			}
			continue
		}
		texts = append(texts, text)
	}

	rec.Categories = SplitCategories(texts)
	return len(rec.Categories) > 0, nil
}

func (e *Extractor) setText(ctx context.Context, selector string, dst **string) (bool, error) {
	text, ok, err := e.firstText(ctx, selector)
	if ok {
		*dst = models.StringPtr(text)
	}
	return ok, err
}

func (e *Extractor) setURL(ctx context.Context, base, selector, attr string, dst **string) (bool, error) {
	value, ok, err := e.firstAttr(ctx, selector, attr)
	if !ok {
		return false, err
	}
	abs, rerr := urlutil.ResolveURL(base, value)
	if rerr != nil {
		e.fieldError(rerr, selector)
		return false, nil
	}
	*dst = models.StringPtr(abs)
	return true, nil
}

// firstText returns the trimmed text of the first match. A match with blank
// text is still found and yields "".
func (e *Extractor) firstText(ctx context.Context, selector string) (string, bool, error) {
	elements, err := e.browser.QueryAll(ctx, selector)
	if err != nil || len(elements) == 0 {
		return "", false, fatal(ctx, err)
	}

	text, err := elements[0].Text(ctx)
	if err != nil {
		e.fieldError(err, selector)
		return "", false, fatal(ctx, err)
	}
	return strings.TrimSpace(text), true, nil
}

// firstAttr returns the trimmed attribute of the first match
func (e *Extractor) firstAttr(ctx context.Context, selector, name string) (string, bool, error) {
	elements, err := e.browser.QueryAll(ctx, selector)
	if err != nil || len(elements) == 0 {
		return "", false, fatal(ctx, err)
	}

	value, present, err := elements[0].Attribute(ctx, name)
	if err != nil {
		e.fieldError(err, selector)
		return "", false, fatal(ctx, err)
	}
	value = strings.TrimSpace(value)
	return value, present && value != "", nil
}

func (e *Extractor) fieldError(err error, selector string) {
	lvl := zerolog.DebugLevel
	if browser.IsSessionInit(err) {
		lvl = zerolog.ErrorLevel
	}
	log.WithLevel(lvl).Err(err).Str("selector", selector).Msg("Failed to read element")
}

// SplitCategories flattens category chip texts. Each text may hold several
// names joined by "/"; names are trimmed and blanks dropped. Only one level
// of splitting is applied.
func SplitCategories(texts []string) []string {
	out := []string{}
	for _, text := range texts {
		for _, part := range strings.Split(strings.TrimSpace(text), "/") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
