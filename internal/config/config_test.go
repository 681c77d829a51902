package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "csv", cfg.Cache.Backend)
	assert.Equal(t, 252, cfg.Market.TradingDaysPerYear)
	assert.Equal(t, 10, cfg.Market.TopN)
	assert.InDelta(t, 0.05547, cfg.Market.VolatilityAlpha, 1e-9)

	start, err := cfg.Market.StartDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), start)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
market:
  start: "2020-06-01"
  top_n: 5
cache:
  backend: sqlite
  sqlite_path: cache.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Market.TopN)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	// Untouched sections keep defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0644))

	t.Setenv("INDEXPULSE_SERVER_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad start date", func(c *Config) { c.Market.Start = "June 2020" }},
		{"zero top n", func(c *Config) { c.Market.TopN = 0 }},
		{"bad cache backend", func(c *Config) { c.Cache.Backend = "redis" }},
		{"csv cache without dir", func(c *Config) { c.Cache.Dir = "" }},
		{"bad feed url", func(c *Config) { c.Feed.BaseURL = "not a url" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.ReportsDir = filepath.Join(dir, "reports")
	cfg.Cache.Dir = filepath.Join(dir, "cache")

	require.NoError(t, cfg.EnsureDirectories())

	for _, p := range []string{cfg.Paths.DataDir, cfg.Paths.ReportsDir, cfg.Cache.Dir} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
