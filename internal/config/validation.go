package config

import (
	"fmt"
	"strings"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/proxy"
	urlutil "github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/utils/url"
	"github.com/rs/zerolog"
)

func validate(c *Config) error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	c.Engine = strings.ToLower(c.Engine)
	if c.Engine != EngineChrome && c.Engine != EngineStatic {
		return fmt.Errorf("engine must be %q or %q, got %q", EngineChrome, EngineStatic, c.Engine)
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.ViewportWidth, c.ViewportHeight)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}

	if c.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be > 0")
	}
	if c.PollInterval <= 0 || c.PollInterval > c.WaitTimeout {
		return fmt.Errorf("poll interval must be > 0 and not longer than the wait timeout")
	}
	if c.Throttle < 0 {
		return fmt.Errorf("throttle must be >= 0")
	}
	if c.AdaptiveThrottle && c.MaxThrottle < c.Throttle {
		return fmt.Errorf("max throttle must be >= throttle")
	}
	if c.NavTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be > 0")
	}
	if c.NavAttempts < 1 || c.NavAttempts > DefaultMaxNavAttempts {
		return fmt.Errorf("navigation attempts must be between 1 and %d", DefaultMaxNavAttempts)
	}

	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit must be > 0 requests per second")
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit burst must be >= 1")
	}
	if c.Workers < 1 || c.Workers > DefaultMaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d", DefaultMaxWorkers)
	}
	if err := urlutil.ValidateURL(c.BaseURL); err != nil {
		return fmt.Errorf("base url: %w", err)
	}

	proxies, err := proxy.ParseList(strings.Join(c.Proxies, ","))
	if err != nil {
		return err
	}
	c.Proxies = proxies

	return nil
}
