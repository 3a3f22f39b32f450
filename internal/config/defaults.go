package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel         = "info"
	DefaultJSONLog          = false
	DefaultEngine           = EngineChrome
	DefaultHeadless         = true
	DefaultUserAgent        = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"
	DefaultWaitTimeout      = 12 * time.Second
	DefaultPollInterval     = 500 * time.Millisecond
	DefaultViewportWidth    = 1200
	DefaultViewportHeight   = 900
	DefaultThrottle         = 1 * time.Second
	DefaultAdaptiveThrottle = false
	DefaultMaxThrottle      = 16 * time.Second
	DefaultNavTimeout       = 60 * time.Second
	DefaultNavAttempts      = 1
	DefaultMaxNavAttempts   = 10
	DefaultRateLimitRPS     = 2.0
	DefaultRateLimitBurst   = 1
	DefaultWorkers          = 1
	DefaultMaxWorkers       = 10
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultBaseURL          = "https://linkareer.com"
	DefaultConfigFile       = "linkareer.yaml"

	// EnvPrefix prefixes every environment variable read by Load
	EnvPrefix = "LINKAREER_"
)

// Engines selectable with --engine
const (
	EngineChrome = "chrome"
	EngineStatic = "static"
)
