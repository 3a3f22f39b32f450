package linkareer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/browser"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/render"
	urlutil "github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/utils/url"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/pkg/models"
	"github.com/rs/zerolog/log"
)

// Collector turns listing pages into detail page URLs
type Collector struct {
	browser browser.Browser
	waiter  *render.Waiter
	baseURL string
}

// NewCollector creates a Collector. An empty baseURL means DefaultBaseURL.
func NewCollector(b browser.Browser, w *render.Waiter, baseURL string) *Collector {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if w == nil {
		w = render.NewWaiter(0, 0)
	}
	return &Collector{browser: b, waiter: w, baseURL: baseURL}
}

// Collect returns the listing page n with its detail URLs
func (c *Collector) Collect(ctx context.Context, n int) (models.ListingPage, error) {
	urls, err := c.CollectURLs(ctx, n)
	return models.ListingPage{Number: n, URLs: urls}, err
}

// CollectURLs returns the absolute detail URLs on listing page n, deduplicated
// in first-seen order. A page that fails to load or render yields an empty
// slice; only a session failure or cancellation is returned as an error.
func (c *Collector) CollectURLs(ctx context.Context, n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("invalid page number %d: must be >= 1", n)
	}

	start := time.Now()
	listURL := ListingURL(c.baseURL, n)
	log.Info().Int("page", n).Str("url", listURL).Msg("Opening listing page")

	if err := c.browser.Navigate(ctx, listURL); err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return nil, ferr
		}
		log.Error().Err(err).Int("page", n).Msg("Failed to open listing page")
		return []string{}, nil
	}

	if err := c.waiter.Wait(ctx, c.browser, SelectorListingItem); err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return nil, ferr
		}
		log.Warn().Err(err).Int("page", n).Msg("Listing page did not render, treating as empty")
		return []string{}, nil
	}

	anchors, err := c.browser.QueryAll(ctx, SelectorListingItem)
	if err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return nil, ferr
		}
		log.Warn().Err(err).Int("page", n).Msg("Failed to query listing anchors")
		return []string{}, nil
	}
	log.Debug().Int("page", n).Int("anchors", len(anchors)).Msg("Found listing anchors")

	seen := make(map[string]struct{}, len(anchors))
	urls := make([]string, 0, len(anchors))
	for i, a := range anchors {
		href, ok, err := a.Attribute(ctx, "href")
		if err != nil {
			if ferr := fatal(ctx, err); ferr != nil {
				return nil, ferr
			}
			log.Debug().Err(err).Int("index", i).Msg("Skipping unreadable anchor")
			continue
		}
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			continue
		}

		abs, err := urlutil.ResolveURL(c.baseURL, href)
		if err != nil {
			log.Warn().Err(err).Int("page", n).Int("index", i).Msg("Skipping anchor with unusable href")
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		urls = append(urls, abs)
	}

	log.Info().
		Int("page", n).
		Int("urls", len(urls)).
		Dur("elapsed", time.Since(start)).
		Msg("Collected activity URLs")
	return urls, nil
}
