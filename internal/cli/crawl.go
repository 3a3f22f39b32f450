package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/app"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/config"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/filter"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/pipeline"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/poster"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/store"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/ui"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/pkg/models"
)

var (
	startPage   int
	pageCount   int
	stopOnEmpty bool
	urlLimit    int
	skipKnown   bool
	ordered     bool
	filterExpr  string
	imagesDir   string
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	GroupID: groupCrawl,
	Use:     "crawl",
	Short:   "Collect contest records from listing pages",
	Long: `Walks listing pages for detail links and extracts a record from every
detail page.

Output format follows the file extension of --output:
  - .json    indented JSON array (default, also used for stdout)
  - .jsonl   one JSON object per line
  - .csv     CSV with a header row, categories joined by "|"
  - .md      Markdown table
  - .db      SQLite database, upserted by detail URL

Pages that fail to load or render are logged and skipped.`,
	Example: `  # First listing page to stdout
  linkareer crawl

  # Five pages with four browsers, in listing order
  linkareer crawl --pages 5 --workers 4 --ordered -o contests.json

  # Only visit contests not already in the database
  linkareer crawl --pages 20 --stop-on-empty --skip-known -o contests.db

  # Keep design contests and download their posters
  linkareer crawl --filter 'record.activity_category.indexOf("디자인") >= 0' --images-dir posters`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().IntVar(&startPage, "start-page", 1, "First listing page to collect")
	crawlCmd.Flags().IntVarP(&pageCount, "pages", "p", 1, "Number of listing pages to collect")
	crawlCmd.Flags().BoolVar(&stopOnEmpty, "stop-on-empty", false, "Stop at the first listing page without links")
	crawlCmd.Flags().IntVar(&urlLimit, "limit", 0, "Visit at most this many detail pages (0 = no limit)")
	crawlCmd.Flags().BoolVar(&skipKnown, "skip-known", false, "Skip detail pages already stored in the output database")
	crawlCmd.Flags().IntP("workers", "w", config.DefaultWorkers, fmt.Sprintf("Concurrent browser sessions (1-%d)", config.DefaultMaxWorkers))
	crawlCmd.Flags().BoolVar(&ordered, "ordered", true, "Write records in listing order")
	crawlCmd.Flags().StringP("output", "o", "", "Output file, format chosen by extension (default stdout)")
	crawlCmd.Flags().StringVar(&filterExpr, "filter", "", "JavaScript `expression` over the record object; only matching records are kept")
	crawlCmd.Flags().StringVar(&imagesDir, "images-dir", "", "Download poster images into this directory")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	a, err := mustApp(cmd)
	if err != nil {
		return err
	}
	cfg := a.Config
	ctx := cmd.Context()

	if startPage < 1 {
		return fmt.Errorf("--start-page must be at least 1, got %d", startPage)
	}
	if pageCount < 1 {
		return fmt.Errorf("--pages must be at least 1, got %d", pageCount)
	}

	var posters *poster.Collector
	var extra []store.Sink
	if imagesDir != "" {
		posters = &poster.Collector{}
		extra = append(extra, posters)
	}

	sink, err := a.OpenSink(ctx, cfg.Output, filterExpr, extra...)
	if err != nil {
		return err
	}

	bar := newCrawlBar(cfg)
	opts := pipeline.Options{
		StartPage:   startPage,
		Pages:       pageCount,
		StopOnEmpty: stopOnEmpty,
		Limit:       urlLimit,
		SkipKnown:   skipKnown,
		Workers:     cfg.Workers,
		Ordered:     ordered,
	}
	if bar != nil {
		opts.PageCollected = func(page models.ListingPage) {
			bar.Describe(fmt.Sprintf("listing page %d: %d links", page.Number, len(page.URLs)))
		}
		opts.DetailsQueued = func(total int) {
			bar.ChangeMax(total)
			bar.Describe("detail pages")
		}
		opts.DetailDone = func(string, bool) {
			_ = bar.Add(1)
		}
	}

	log.Debug().
		Int("start_page", startPage).
		Int("pages", pageCount).
		Int("workers", cfg.Workers).
		Str("engine", cfg.Engine).
		Str("output", cfg.Output).
		Msg("Starting crawl")

	stats, runErr := pipeline.Run(ctx, opts, a.NewWorker, sink)
	if bar != nil {
		_ = bar.Finish()
	}

	sum := summary{stats: stats, output: cfg.Output}
	if runErr == nil {
		sum.tallies, err = store.Tallies(ctx, sink)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to count stored activities")
		}
	}
	if fs, ok := sink.(*filter.Sink); ok {
		sum.filtered = fs.Dropped()
		sum.withFilter = true
	}
	closeErr := sink.Close()

	if runErr != nil {
		return fmt.Errorf("crawl failed: %w", runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to finalize output: %w", closeErr)
	}

	if posters != nil {
		sum.withPosters = true
		sum.downloaded, sum.failed = downloadPosters(cmd, a, posters.Records())
	}

	if cfg.LogLevel != "error" {
		sum.print(os.Stderr)
	}
	return nil
}

// newCrawlBar returns nil when the bar would interleave with log output
func newCrawlBar(cfg *config.Config) *progressbar.ProgressBar {
	if cfg.JSONLog || cfg.LogLevel == "debug" || cfg.LogLevel == "error" {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("listing pages"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func downloadPosters(cmd *cobra.Command, a *app.Application, records []*models.ActivityRecord) (int, int) {
	dir, err := filepath.Abs(imagesDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", imagesDir).Msg("Invalid images directory")
		return 0, 0
	}

	d := poster.NewDownloader(dir, a.Config.HTTPTimeout, a.Config.UserAgent, a.RateLimiter)
	results := poster.NewWorkerPool(d, a.Config.Workers*2).DownloadAll(cmd.Context(), records)

	var ok, failed int
	for _, r := range results {
		if r.Success {
			ok++
			continue
		}
		failed++
		log.Warn().Err(r.Error).Str("url", r.ImageURL).Msg("Poster download failed")
	}
	return ok, failed
}

// summary is what a finished crawl reports on stderr
type summary struct {
	stats      pipeline.Stats
	output     string
	tallies    []*store.Tally
	withFilter bool
	filtered   int

	withPosters bool
	downloaded  int
	failed      int
}

func (s summary) print(w io.Writer) {
	output := s.output
	if output == "" || output == "-" {
		output = "stdout"
	}
	stats := s.stats

	fmt.Fprintf(w, "\n%s\n", ui.Bold("Summary:"))
	fmt.Fprintf(w, "  %s %s\n", ui.ColorBold+"Listing pages:"+ui.ColorReset, ui.ColorWhite+fmt.Sprintf("%d", stats.Pages)+ui.ColorReset)
	fmt.Fprintf(w, "  %s %s\n", ui.ColorBold+"Detail URLs:"+ui.ColorReset, ui.ColorWhite+fmt.Sprintf("%d", stats.URLs)+ui.ColorReset)
	if stats.Known > 0 {
		fmt.Fprintf(w, "  %s %s\n", ui.ColorBold+"Already known:"+ui.ColorReset, ui.Info(fmt.Sprintf("%d", stats.Known)))
	}
	fmt.Fprintf(w, "  %s %s\n", ui.ColorBold+"Records:"+ui.ColorReset, ui.Success(fmt.Sprintf("%d", stats.Records)))
	if s.withFilter {
		fmt.Fprintf(w, "  %s %s\n", ui.ColorBold+"Filtered out:"+ui.ColorReset, ui.Info(fmt.Sprintf("%d", s.filtered)))
	}
	fmt.Fprintf(w, "  %s %s\n", ui.ColorBold+"Failed:"+ui.ColorReset, ui.Error(fmt.Sprintf("%d", stats.Failed)))
	if s.withPosters {
		fmt.Fprintf(w, "  %s %s / %s\n", ui.ColorBold+"Posters:"+ui.ColorReset, ui.Success(fmt.Sprintf("%d", s.downloaded)), ui.Error(fmt.Sprintf("%d failed", s.failed)))
	}
	fmt.Fprintf(w, "  %s %s\n", ui.ColorBold+"Duration:"+ui.ColorReset, ui.ColorWhite+stats.Duration.Round(time.Millisecond).String()+ui.ColorReset)
	fmt.Fprintf(w, "  %s %s\n", ui.ColorBold+"Output:"+ui.ColorReset, ui.ColorWhite+output+ui.ColorReset)
	for _, t := range s.tallies {
		fmt.Fprintf(w, "  %s %s\n", ui.ColorBold+"Database ("+t.Backend+"):"+ui.ColorReset,
			ui.ColorWhite+fmt.Sprintf("%d rows, %d from run %s", t.Total, t.Run, t.RunID)+ui.ColorReset)
	}
}
