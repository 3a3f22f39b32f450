// Package pipeline drives a full crawl: listing pages are collected into
// detail URLs, which a pool of workers turns into records for a sink.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/browser"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/linkareer"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/pkg/models"
	"github.com/rs/zerolog/log"
)

const MaxWorkers = 10

// Sink receives finished records
type Sink interface {
	Write(ctx context.Context, rec *models.ActivityRecord) error
}

// KnownChecker is implemented by sinks that remember earlier runs
type KnownChecker interface {
	Known(ctx context.Context, detailURL string) (bool, error)
}

// Worker is one independent crawler: its own browser session and the
// scrapers bound to it.
type Worker struct {
	ID        int
	Session   *browser.Session
	Collector *linkareer.Collector
	Extractor *linkareer.Extractor
}

// Close stops the worker's browser session
func (w *Worker) Close() {
	if w.Session != nil {
		w.Session.Stop()
	}
}

// Factory builds the worker with the given ID
type Factory func(id int) (*Worker, error)

// Options controls a crawl
type Options struct {
	StartPage   int
	Pages       int
	StopOnEmpty bool
	Limit       int
	SkipKnown   bool
	Workers     int
	Ordered     bool

	// Progress hooks, called from the goroutine running Run
	PageCollected func(page models.ListingPage)
	DetailsQueued func(total int)
	DetailDone    func(detailURL string, ok bool)
}

// Stats summarizes a crawl
type Stats struct {
	Pages    int
	URLs     int
	Known    int
	Records  int
	Failed   int
	Duration time.Duration
}

type job struct {
	index int
	url   string
}

type result struct {
	job
	rec *models.ActivityRecord
	err error
}

// Run crawls according to opts and writes every record to sink. Only a
// session failure, a sink failure or cancellation stops it early; failed
// pages are counted and skipped.
func Run(ctx context.Context, opts Options, factory Factory, sink Sink) (Stats, error) {
	start := time.Now()
	opts = normalize(opts)

	var stats Stats
	workers := []*Worker{}
	defer func() {
		for _, w := range workers {
			w.Close()
		}
	}()

	first, err := factory(0)
	if err != nil {
		return stats, fmt.Errorf("create worker 0: %w", err)
	}
	workers = append(workers, first)

	urls, err := collect(ctx, opts, first, sink, &stats)
	if err != nil {
		stats.Duration = time.Since(start)
		return stats, err
	}

	log.Info().
		Int("pages", stats.Pages).
		Int("urls", len(urls)).
		Int("known", stats.Known).
		Msg("Listing collection finished")
	if opts.DetailsQueued != nil {
		opts.DetailsQueued(len(urls))
	}

	n := opts.Workers
	if n > len(urls) {
		n = len(urls)
	}
	for id := 1; id < n; id++ {
		w, err := factory(id)
		if err != nil {
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("create worker %d: %w", id, err)
		}
		workers = append(workers, w)
	}

	err = extract(ctx, opts, workers[:max(n, 1)], urls, sink, &stats)
	stats.Duration = time.Since(start)
	return stats, err
}

func normalize(opts Options) Options {
	if opts.StartPage < 1 {
		opts.StartPage = 1
	}
	if opts.Pages < 1 {
		opts.Pages = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Workers > MaxWorkers {
		opts.Workers = MaxWorkers
	}
	return opts
}

// collect walks the listing pages with w and returns the URLs to visit
func collect(ctx context.Context, opts Options, w *Worker, sink Sink, stats *Stats) ([]string, error) {
	checker, _ := sink.(KnownChecker)
	seen := make(map[string]struct{})
	urls := []string{}

	for n := opts.StartPage; n < opts.StartPage+opts.Pages; n++ {
		page, err := w.Collector.Collect(ctx, n)
		if err != nil {
			return nil, err
		}
		stats.Pages++
		if opts.PageCollected != nil {
			opts.PageCollected(page)
		}

		if len(page.URLs) == 0 && opts.StopOnEmpty {
			log.Info().Int("page", n).Msg("Empty listing page, stopping collection")
			break
		}

		for _, u := range page.URLs {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			stats.URLs++

			if opts.SkipKnown && checker != nil {
				known, err := checker.Known(ctx, u)
				if err != nil {
					log.Warn().Err(err).Str("url", u).Msg("Failed to check sink for URL, visiting anyway")
				} else if known {
					stats.Known++
					continue
				}
			}

			urls = append(urls, u)
			if opts.Limit > 0 && len(urls) >= opts.Limit {
				log.Info().Int("limit", opts.Limit).Msg("URL limit reached")
				return urls, nil
			}
		}
	}
	return urls, nil
}

// extract fans urls out to workers and writes records as they complete, in
// input order when opts.Ordered is set.
func extract(ctx context.Context, opts Options, workers []*Worker, urls []string, sink Sink, stats *Stats) error {
	if len(urls) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job, len(urls))
	results := make(chan result, len(urls))

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go work(ctx, w, jobs, results, &wg)
	}

	for i, u := range urls {
		jobs <- job{index: i, url: u}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var runErr error
	fail := func(err error) {
		if runErr == nil {
			runErr = err
			cancel()
		}
	}

	emit := func(rec *models.ActivityRecord) {
		if rec == nil || runErr != nil {
			return
		}
		if err := sink.Write(ctx, rec); err != nil {
			fail(fmt.Errorf("write record %s: %w", rec.DetailURL, err))
			return
		}
		stats.Records++
	}

	pending := make(map[int]*models.ActivityRecord)
	next := 0

	for r := range results {
		if r.err != nil {
			fail(r.err)
			continue
		}
		if r.rec == nil {
			stats.Failed++
		}
		if opts.DetailDone != nil {
			opts.DetailDone(r.url, r.rec != nil)
		}

		if !opts.Ordered {
			emit(r.rec)
			continue
		}
		pending[r.index] = r.rec
		for {
			rec, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			emit(rec)
		}
	}

	if runErr == nil {
		runErr = ctx.Err()
	}
	if len(pending) > 0 {
		log.Debug().Int("records", len(pending)).Msg("Dropping records finished after the run failed")
	}
	return runErr
}

func work(ctx context.Context, w *Worker, jobs <-chan job, results chan<- result, wg *sync.WaitGroup) {
	defer wg.Done()

	log.Debug().Int("worker_id", w.ID).Msg("Worker started")
	for j := range jobs {
		if ctx.Err() != nil {
			log.Debug().Int("worker_id", w.ID).Msg("Worker cancelled")
			return
		}

		rec, err := w.Extractor.Extract(ctx, j.url)
		results <- result{job: j, rec: rec, err: err}
		if err != nil {
			return
		}
	}
	log.Debug().Int("worker_id", w.ID).Msg("Worker finished")
}
