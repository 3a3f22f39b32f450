// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/browser"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/config"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/filter"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/linkareer"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/pipeline"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/proxy"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/ratelimit"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/render"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/retry"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/secrets"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/store"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/throttle"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	RateLimiter ratelimit.RateLimiter
	Proxies     *proxy.Pool

	startTime time.Time
}

// New creates and initializes a new Application.
//
// It configures logging, creates the rate limiter shared by every worker
// and sets up proxy rotation. No browser is launched here; sessions start
// lazily when a command first navigates.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := setupLogger(cfg, os.Stderr)

	rateLimiter := ratelimit.NewHostLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	logger.Debug().
		Float64("rps", cfg.RateLimitRPS).
		Int("burst", cfg.RateLimitBurst).
		Msg("Rate limiter initialized")

	a := &Application{
		Config:      cfg,
		Logger:      &logger,
		RateLimiter: rateLimiter,
		Proxies:     proxy.NewPool(cfg.Proxies),
		startTime:   time.Now(),
	}

	logger.Debug().
		Str("engine", cfg.Engine).
		Int("proxies", a.Proxies.Len()).
		Msg("Application initialized successfully")
	return a, nil
}

// setupLogger points the global zerolog logger at w
func setupLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	var logWriter io.Writer = w
	if !cfg.JSONLog {
		logWriter = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(logWriter).With().Timestamp().Logger()
	return log.Logger
}

// engine builds the browser backend for worker id. Each worker takes the
// next proxy of the pool.
func (a *Application) engine(id int) (browser.Engine, error) {
	cfg := a.Config
	proxyURL := a.Proxies.Next()
	a.Logger.Debug().
		Int("worker_id", id).
		Str("engine", cfg.Engine).
		Bool("proxy", proxyURL != "").
		Msg("Creating browser engine")

	switch cfg.Engine {
	case config.EngineStatic:
		client, err := browser.NewStaticClient(cfg.HTTPTimeout, proxyURL)
		if err != nil {
			return nil, err
		}
		return browser.NewStaticEngine(client, cfg.UserAgent), nil
	default:
		return browser.NewChromeEngine(browser.ChromeOptions{
			Headless:   cfg.Headless,
			Width:      cfg.ViewportWidth,
			Height:     cfg.ViewportHeight,
			ChromePath: cfg.ChromePath,
			UserAgent:  cfg.UserAgent,
			Proxy:      proxyURL,
		}), nil
	}
}

// NewSession creates an unstarted browser session for worker id
func (a *Application) NewSession(id int) (*browser.Session, error) {
	engine, err := a.engine(id)
	if err != nil {
		return nil, err
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = a.Config.NavAttempts

	return browser.NewSession(engine,
		browser.WithRateLimiter(a.RateLimiter),
		browser.WithRetry(retryCfg),
		browser.WithNavigationTimeout(a.Config.NavTimeout),
	), nil
}

// NewWaiter returns a render waiter using the configured timeout and poll interval
func (a *Application) NewWaiter() *render.Waiter {
	return render.NewWaiter(a.Config.WaitTimeout, a.Config.PollInterval)
}

// NewThrottle returns a fresh per-worker throttle
func (a *Application) NewThrottle() *throttle.Throttle {
	if a.Config.AdaptiveThrottle {
		return throttle.NewAdaptive(a.Config.Throttle, a.Config.MaxThrottle)
	}
	return throttle.New(a.Config.Throttle)
}

// NewWorker builds an independent crawler with its own session
func (a *Application) NewWorker(id int) (*pipeline.Worker, error) {
	session, err := a.NewSession(id)
	if err != nil {
		return nil, err
	}

	waiter := a.NewWaiter()
	return &pipeline.Worker{
		ID:        id,
		Session:   session,
		Collector: linkareer.NewCollector(session, waiter, a.Config.BaseURL),
		Extractor: linkareer.NewExtractor(session, waiter, a.NewThrottle()),
	}, nil
}

// Sink is the record destination of a crawl
type Sink interface {
	store.Sink
	pipeline.KnownChecker
}

// OpenSink opens the configured output and, when a DSN is configured or
// stored in the keyring, mirrors records into PostgreSQL. Records also go to
// every sink in extra. A non-empty filterExpr only lets matching records
// through to any of them.
func (a *Application) OpenSink(ctx context.Context, output, filterExpr string, extra ...store.Sink) (Sink, error) {
	var f *filter.Filter
	if filterExpr != "" {
		var err error
		if f, err = filter.Compile(filterExpr); err != nil {
			return nil, err
		}
	}

	primary, err := store.Open(output)
	if err != nil {
		return nil, err
	}
	sinks := append([]store.Sink{primary}, extra...)

	if dsn := a.postgresDSN(); dsn != "" {
		pg, err := store.NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, errors.Join(err, primary.Close())
		}
		a.Logger.Debug().Msg("Mirroring records to PostgreSQL")
		sinks = append(sinks, pg)
	}

	multi := store.NewMultiSink(sinks...)
	if f == nil {
		return multi, nil
	}
	return filter.NewSink(multi, f), nil
}

// postgresDSN prefers explicit configuration over the keyring
func (a *Application) postgresDSN() string {
	if a.Config.PostgresDSN != "" {
		return a.Config.PostgresDSN
	}

	s, err := secrets.Open()
	if err != nil {
		a.Logger.Debug().Err(err).Msg("Secret store unavailable")
		return ""
	}
	dsn, err := s.Get(secrets.PostgresDSN)
	if err != nil {
		if !errors.Is(err, secrets.ErrNotFound) {
			a.Logger.Debug().Err(err).Msg("Failed to read PostgreSQL DSN from secret store")
		}
		return ""
	}
	return dsn
}

// Close releases application resources. Browser sessions are owned and
// stopped by whoever created them.
func (a *Application) Close(ctx context.Context) error {
	uptime := time.Since(a.startTime)
	a.Logger.Debug().Dur("uptime", uptime).Msg("Application shutdown complete")
	return nil
}
