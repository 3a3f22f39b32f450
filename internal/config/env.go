package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnv overrides cfg from LINKAREER_* variables
func applyEnv(cfg *Config) error {
	envString(&cfg.LogLevel, "LOG_LEVEL")
	envString(&cfg.Engine, "ENGINE")
	envString(&cfg.ChromePath, "CHROME_PATH")
	envString(&cfg.UserAgent, "USER_AGENT")
	envString(&cfg.BaseURL, "BASE_URL")
	envString(&cfg.Output, "OUTPUT")
	envString(&cfg.PostgresDSN, "POSTGRES_DSN")
	if v := getEnv("PROXIES"); v != "" {
		cfg.Proxies = splitList(v)
	}

	return errors.Join(
		envBool(&cfg.JSONLog, "JSON_LOG"),
		envBool(&cfg.Headless, "HEADLESS"),
		envBool(&cfg.AdaptiveThrottle, "ADAPTIVE_THROTTLE"),
		envViewport(cfg, "VIEWPORT"),
		envDuration(&cfg.HTTPTimeout, "TIMEOUT"),
		envDuration(&cfg.WaitTimeout, "WAIT"),
		envDuration(&cfg.PollInterval, "POLL_INTERVAL"),
		envDuration(&cfg.Throttle, "THROTTLE"),
		envDuration(&cfg.MaxThrottle, "MAX_THROTTLE"),
		envDuration(&cfg.NavTimeout, "NAV_TIMEOUT"),
		envInt(&cfg.NavAttempts, "NAV_ATTEMPTS"),
		envInt(&cfg.Workers, "WORKERS"),
		envInt(&cfg.RateLimitBurst, "BURST"),
		envFloat(&cfg.RateLimitRPS, "RPS"),
	)
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

func envString(dst *string, key string) {
	if v := getEnv(key); v != "" {
		*dst = v
	}
}

func envBool(dst *bool, key string) error {
	v := getEnv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = b
	return nil
}

func envInt(dst *int, key string) error {
	v := getEnv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = n
	return nil
}

func envFloat(dst *float64, key string) error {
	v := getEnv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = f
	return nil
}

func envDuration(dst *time.Duration, key string) error {
	v := getEnv(key)
	if v == "" {
		return nil
	}
	d, err := ParseSeconds(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = d
	return nil
}

func envViewport(cfg *Config, key string) error {
	v := getEnv(key)
	if v == "" {
		return nil
	}
	w, h, err := ParseViewport(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	cfg.ViewportWidth, cfg.ViewportHeight = w, h
	return nil
}

// ParseSeconds accepts a Go duration ("1500ms") or a number of seconds ("1.5")
func ParseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// ParseViewport parses WIDTHxHEIGHT
func ParseViewport(s string) (int, int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid viewport %q: want WIDTHxHEIGHT", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid viewport width %q", parts[0])
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid viewport height %q", parts[1])
	}
	return w, h, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
