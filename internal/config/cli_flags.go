package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	pf := cmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.BoolP("quiet", "q", false, "Suppress all output except errors")
	pf.Bool("json", false, "Log in JSON format")
	pf.String("config", "", "Path to configuration file (default ./"+DefaultConfigFile+" if present)")

	pf.String("engine", DefaultEngine, "Page engine: chrome (renders JavaScript) or static (plain HTTP)")
	pf.Bool("headless", DefaultHeadless, "Run Chrome without a window")
	pf.String("chrome-path", "", "Path to the Chrome/Chromium executable")
	pf.String("user-agent", "", "Custom user agent string")
	pf.String("proxy", "", "Comma separated HTTP/SOCKS5 proxies, rotated per worker")
	pf.String("viewport", fmt.Sprintf("%dx%d", DefaultViewportWidth, DefaultViewportHeight), "Browser viewport as WIDTHxHEIGHT")
	pf.String("timeout", DefaultHTTPTimeout.String(), "HTTP timeout of the static engine and poster downloads")

	pf.String("wait", "12", "Seconds to wait for a page to render")
	pf.String("poll-interval", DefaultPollInterval.String(), "How often to check whether a page rendered")
	pf.String("throttle", "1.0", "Seconds to pause on every detail page")
	pf.Bool("adaptive-throttle", DefaultAdaptiveThrottle, "Double the throttle after each consecutive render timeout")
	pf.String("max-throttle", DefaultMaxThrottle.String(), "Upper bound of the adaptive throttle")
	pf.String("nav-timeout", DefaultNavTimeout.String(), "Bound on a single navigation")
	pf.Int("nav-attempts", DefaultNavAttempts, "Attempts per navigation (retries on 429/5xx and network errors)")
	pf.Float64("rps", DefaultRateLimitRPS, "Maximum requests per second per host")
	pf.Int("burst", DefaultRateLimitBurst, "Rate limiter burst size")
	pf.String("base-url", DefaultBaseURL, "Site root used to build listing URLs")
	pf.String("postgres-dsn", "", "Also store records in PostgreSQL")
}

// applyFlags overrides cfg with every flag the user set explicitly
func applyFlags(cmd *cobra.Command, cfg *Config) error {
	flags := cmd.Flags()
	changed := func(name string) (string, bool) {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			return "", false
		}
		return f.Value.String(), true
	}

	var errs []error
	parseBool := func(name string, dst *bool) {
		if v, ok := changed(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("--%s: %w", name, err))
				return
			}
			*dst = b
		}
	}
	parseInt := func(name string, dst *int) {
		if v, ok := changed(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("--%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	parseDuration := func(name string, dst *time.Duration) {
		if v, ok := changed(name); ok {
			d, err := ParseSeconds(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("--%s: %w", name, err))
				return
			}
			*dst = d
		}
	}
	parseString := func(name string, dst *string) {
		if v, ok := changed(name); ok {
			*dst = v
		}
	}

	parseBool("json", &cfg.JSONLog)
	if v, ok := changed("verbose"); ok && v == "true" {
		cfg.LogLevel = "debug"
	}
	if v, ok := changed("quiet"); ok && v == "true" {
		cfg.LogLevel = "error"
	}

	parseString("engine", &cfg.Engine)
	parseBool("headless", &cfg.Headless)
	parseString("chrome-path", &cfg.ChromePath)
	parseString("user-agent", &cfg.UserAgent)
	if v, ok := changed("proxy"); ok {
		cfg.Proxies = splitList(v)
	}
	if v, ok := changed("viewport"); ok {
		w, h, err := ParseViewport(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("--viewport: %w", err))
		} else {
			cfg.ViewportWidth, cfg.ViewportHeight = w, h
		}
	}
	parseDuration("timeout", &cfg.HTTPTimeout)

	parseDuration("wait", &cfg.WaitTimeout)
	parseDuration("poll-interval", &cfg.PollInterval)
	parseDuration("throttle", &cfg.Throttle)
	parseBool("adaptive-throttle", &cfg.AdaptiveThrottle)
	parseDuration("max-throttle", &cfg.MaxThrottle)
	parseDuration("nav-timeout", &cfg.NavTimeout)
	parseInt("nav-attempts", &cfg.NavAttempts)
	parseInt("burst", &cfg.RateLimitBurst)
	if v, ok := changed("rps"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("--rps: %w", err))
		} else {
			cfg.RateLimitRPS = f
		}
	}
	parseString("base-url", &cfg.BaseURL)
	parseString("postgres-dsn", &cfg.PostgresDSN)

	// Command-local flags
	parseInt("workers", &cfg.Workers)
	parseString("output", &cfg.Output)

	return errors.Join(errs...)
}
