package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Browser
	Engine         string
	Headless       bool
	ChromePath     string
	UserAgent      string
	Proxies        []string
	ViewportWidth  int
	ViewportHeight int
	HTTPTimeout    time.Duration

	// Page synchronization
	WaitTimeout      time.Duration
	PollInterval     time.Duration
	Throttle         time.Duration
	AdaptiveThrottle bool
	MaxThrottle      time.Duration
	NavTimeout       time.Duration
	NavAttempts      int

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Crawl
	Workers int
	BaseURL string

	// Output
	Output      string
	PostgresDSN string
}

// Default returns a Config holding only the built-in defaults
func Default() *Config {
	return &Config{
		LogLevel:         DefaultLogLevel,
		JSONLog:          DefaultJSONLog,
		Engine:           DefaultEngine,
		Headless:         DefaultHeadless,
		UserAgent:        DefaultUserAgent,
		ViewportWidth:    DefaultViewportWidth,
		ViewportHeight:   DefaultViewportHeight,
		HTTPTimeout:      DefaultHTTPTimeout,
		WaitTimeout:      DefaultWaitTimeout,
		PollInterval:     DefaultPollInterval,
		Throttle:         DefaultThrottle,
		AdaptiveThrottle: DefaultAdaptiveThrottle,
		MaxThrottle:      DefaultMaxThrottle,
		NavTimeout:       DefaultNavTimeout,
		NavAttempts:      DefaultNavAttempts,
		RateLimitRPS:     DefaultRateLimitRPS,
		RateLimitBurst:   DefaultRateLimitBurst,
		Workers:          DefaultWorkers,
		BaseURL:          DefaultBaseURL,
	}
}

// Load builds a Config by combining defaults, an optional YAML file, a .env
// file and the environment, and CLI flags, in increasing precedence.
// Caller should pass the executing *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Default()

	path, explicit := configPath(cmd)
	fileCfg, err := LoadFile(path, explicit)
	if err != nil {
		return nil, err
	}
	if fileCfg != nil {
		if err := fileCfg.apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	}

	// A missing .env is normal; the process environment still applies
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg("Ignoring unreadable .env file")
	}
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if cmd != nil {
		if err := applyFlags(cmd, cfg); err != nil {
			return nil, fmt.Errorf("invalid flags: %w", err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// configPath returns the config file to read and whether the user named it
func configPath(cmd *cobra.Command) (string, bool) {
	if cmd != nil {
		if f := cmd.Flags().Lookup("config"); f != nil && f.Value.String() != "" {
			return f.Value.String(), true
		}
	}
	if v := os.Getenv(EnvPrefix + "CONFIG"); v != "" {
		return v, true
	}
	return DefaultConfigFile, false
}
