package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig represents the structure of linkareer.yaml. Durations are Go
// duration strings ("12s") or plain seconds ("1.5").
type FileConfig struct {
	LogLevel string `yaml:"log_level"`
	JSONLog  *bool  `yaml:"json_log"`

	Browser struct {
		Engine     string   `yaml:"engine"`
		Headless   *bool    `yaml:"headless"`
		ChromePath string   `yaml:"chrome_path"`
		UserAgent  string   `yaml:"user_agent"`
		Proxies    []string `yaml:"proxies"`
		Timeout    string   `yaml:"timeout"`
		Viewport   struct {
			Width  int `yaml:"width"`
			Height int `yaml:"height"`
		} `yaml:"viewport"`
	} `yaml:"browser"`

	Crawl struct {
		Wait             string  `yaml:"wait"`
		PollInterval     string  `yaml:"poll_interval"`
		Throttle         string  `yaml:"throttle"`
		AdaptiveThrottle *bool   `yaml:"adaptive_throttle"`
		MaxThrottle      string  `yaml:"max_throttle"`
		NavTimeout       string  `yaml:"nav_timeout"`
		NavAttempts      int     `yaml:"nav_attempts"`
		RPS              float64 `yaml:"rps"`
		Burst            int     `yaml:"burst"`
		Workers          int     `yaml:"workers"`
		BaseURL          string  `yaml:"base_url"`
	} `yaml:"crawl"`

	Output struct {
		Path        string `yaml:"path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"output"`
}

// LoadFile reads the YAML config at path. A missing file is not an error
// unless the user asked for it explicitly.
func LoadFile(path string, required bool) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// apply copies every value set in the file onto cfg
func (f *FileConfig) apply(cfg *Config) error {
	setString(&cfg.LogLevel, f.LogLevel)
	setBool(&cfg.JSONLog, f.JSONLog)

	setString(&cfg.Engine, f.Browser.Engine)
	setBool(&cfg.Headless, f.Browser.Headless)
	setString(&cfg.ChromePath, f.Browser.ChromePath)
	setString(&cfg.UserAgent, f.Browser.UserAgent)
	if len(f.Browser.Proxies) > 0 {
		cfg.Proxies = f.Browser.Proxies
	}
	setInt(&cfg.ViewportWidth, f.Browser.Viewport.Width)
	setInt(&cfg.ViewportHeight, f.Browser.Viewport.Height)

	setInt(&cfg.NavAttempts, f.Crawl.NavAttempts)
	setInt(&cfg.RateLimitBurst, f.Crawl.Burst)
	setInt(&cfg.Workers, f.Crawl.Workers)
	setBool(&cfg.AdaptiveThrottle, f.Crawl.AdaptiveThrottle)
	setString(&cfg.BaseURL, f.Crawl.BaseURL)
	if f.Crawl.RPS != 0 {
		cfg.RateLimitRPS = f.Crawl.RPS
	}

	setString(&cfg.Output, f.Output.Path)
	setString(&cfg.PostgresDSN, f.Output.PostgresDSN)

	return errors.Join(
		setDuration(&cfg.HTTPTimeout, "browser.timeout", f.Browser.Timeout),
		setDuration(&cfg.WaitTimeout, "crawl.wait", f.Crawl.Wait),
		setDuration(&cfg.PollInterval, "crawl.poll_interval", f.Crawl.PollInterval),
		setDuration(&cfg.Throttle, "crawl.throttle", f.Crawl.Throttle),
		setDuration(&cfg.MaxThrottle, "crawl.max_throttle", f.Crawl.MaxThrottle),
		setDuration(&cfg.NavTimeout, "crawl.nav_timeout", f.Crawl.NavTimeout),
	)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name, v string) error {
	if v == "" {
		return nil
	}
	d, err := ParseSeconds(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}
