package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	RegisterFlags(cmd)
	cmd.Flags().Int("workers", DefaultWorkers, "")
	cmd.Flags().StringP("output", "o", "", "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newCommand(t))
	require.NoError(t, err)

	assert.Equal(t, EngineChrome, cfg.Engine)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 12*time.Second, cfg.WaitTimeout)
	assert.Equal(t, 1200, cfg.ViewportWidth)
	assert.Equal(t, 900, cfg.ViewportHeight)
	assert.Equal(t, time.Second, cfg.Throttle)
	assert.Equal(t, 1, cfg.NavAttempts)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crawler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: warn
browser:
  engine: static
  headless: false
  viewport:
    width: 800
    height: 600
  proxies: ["10.0.0.1:3128"]
crawl:
  wait: 20s
  throttle: "2.5"
  workers: 3
output:
  path: file.json
`), 0644))

	t.Setenv("LINKAREER_WORKERS", "4")
	t.Setenv("LINKAREER_THROTTLE", "0.5")

	cfg, err := Load(newCommand(t, "--config", path, "--workers", "5", "--wait", "3"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, EngineStatic, cfg.Engine)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 800, cfg.ViewportWidth)
	assert.Equal(t, []string{"http://10.0.0.1:3128"}, cfg.Proxies)
	assert.Equal(t, "file.json", cfg.Output)

	assert.Equal(t, 500*time.Millisecond, cfg.Throttle, "env beats file")
	assert.Equal(t, 5, cfg.Workers, "flag beats env")
	assert.Equal(t, 3*time.Second, cfg.WaitTimeout, "flag beats file")
}

func TestLoadVerboseAndQuiet(t *testing.T) {
	cfg, err := Load(newCommand(t, "-v"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)

	cfg, err = Load(newCommand(t, "-q", "--json"))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.True(t, cfg.JSONLog)
}

func TestLoadMissingExplicitConfig(t *testing.T) {
	_, err := Load(newCommand(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Error(t, err)
}

func TestLoadInvalidEnv(t *testing.T) {
	t.Setenv("LINKAREER_HEADLESS", "maybe")
	_, err := Load(newCommand(t))
	assert.ErrorContains(t, err, "LINKAREER_HEADLESS")
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"engine", []string{"--engine", "firefox"}},
		{"workers", []string{"--workers", "11"}},
		{"nav attempts", []string{"--nav-attempts", "0"}},
		{"viewport", []string{"--viewport", "1200"}},
		{"poll longer than wait", []string{"--wait", "1", "--poll-interval", "2s"}},
		{"negative throttle", []string{"--throttle=-1"}},
		{"base url", []string{"--base-url", "linkareer.com"}},
		{"proxy", []string{"--proxy", "ftp://proxy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newCommand(t, tt.args...))
			assert.Error(t, err)
		})
	}
}

func TestParseSeconds(t *testing.T) {
	tests := map[string]time.Duration{
		"12":    12 * time.Second,
		"1.5":   1500 * time.Millisecond,
		"250ms": 250 * time.Millisecond,
		" 2m ":  2 * time.Minute,
		"0":     0,
	}
	for in, want := range tests {
		got, err := ParseSeconds(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSeconds("soon")
	assert.Error(t, err)
}
