// Package config loads and validates the application configuration from
// defaults, an optional YAML file, and INDEXPULSE_* environment
// variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
	Feed    FeedConfig    `yaml:"feed" envconfig:"FEED"`
	Cache   CacheConfig   `yaml:"cache" envconfig:"CACHE"`
	Market  MarketConfig  `yaml:"market" envconfig:"MARKET"`
}

// ServerConfig contains HTTP server configuration for -serve mode
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir        string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	MembershipFile string `yaml:"membership_file" envconfig:"MEMBERSHIP_FILE" validate:"required"`
	ChangeLogFile  string `yaml:"change_log_file" envconfig:"CHANGE_LOG_FILE" validate:"required"`
	OverridesDir   string `yaml:"overrides_dir" envconfig:"OVERRIDES_DIR"`
	ReportsDir     string `yaml:"reports_dir" envconfig:"REPORTS_DIR" validate:"required"`
}

// FeedConfig contains data feed configuration. The secondary provider is
// only consulted for tickers missing from both the primary feed and the
// local cache, and its requests are rate limited.
type FeedConfig struct {
	BaseURL          string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	APIKey           string        `yaml:"api_key" envconfig:"API_KEY"`
	Timeout          time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	SecondaryBaseURL string        `yaml:"secondary_base_url" envconfig:"SECONDARY_BASE_URL" validate:"omitempty,url"`
	SecondaryAPIKey  string        `yaml:"secondary_api_key" envconfig:"SECONDARY_API_KEY"`
	SecondaryRPS     float64       `yaml:"secondary_rps" envconfig:"SECONDARY_RPS" validate:"gt=0"`
	SecondaryBurst   int           `yaml:"secondary_burst" envconfig:"SECONDARY_BURST" validate:"min=1"`
}

// CacheConfig selects the historical fallback cache backend
type CacheConfig struct {
	Backend    string `yaml:"backend" envconfig:"BACKEND" validate:"oneof=csv sqlite"`
	Dir        string `yaml:"dir" envconfig:"DIR"`
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
}

// MarketConfig contains the market construction parameters
type MarketConfig struct {
	Start               string  `yaml:"start" envconfig:"START" validate:"required,datetime=2006-01-02"`
	BenchmarkTicker     string  `yaml:"benchmark_ticker" envconfig:"BENCHMARK_TICKER"`
	TopN                int     `yaml:"top_n" envconfig:"TOP_N" validate:"min=1"`
	TradingDaysPerYear  int     `yaml:"trading_days_per_year" envconfig:"TRADING_DAYS_PER_YEAR" validate:"min=1"`
	VolatilityAlpha     float64 `yaml:"volatility_alpha" envconfig:"VOLATILITY_ALPHA" validate:"gt=0,lt=1"`
	MultiClassTolerance float64 `yaml:"multi_class_tolerance" envconfig:"MULTI_CLASS_TOLERANCE" validate:"gt=0"`
}

// StartDate parses the configured market start date.
func (m MarketConfig) StartDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", m.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid market start date %q: %w", m.Start, err)
	}
	return t.UTC(), nil
}

// Default returns the configuration defaults applied before any file or
// environment overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/indexpulse.log",
		},
		Paths: PathsConfig{
			DataDir:        "data",
			MembershipFile: "data/membership.csv",
			ChangeLogFile:  "data/membership_changes.csv",
			OverridesDir:   "data/shares_overrides",
			ReportsDir:     "reports",
		},
		Feed: FeedConfig{
			BaseURL:        "https://api.twelvedata.com",
			Timeout:        30 * time.Second,
			SecondaryRPS:   0.2,
			SecondaryBurst: 1,
		},
		Cache: CacheConfig{
			Backend:    "csv",
			Dir:        "data/historical_cache",
			SQLitePath: "data/historical_cache.db",
		},
		Market: MarketConfig{
			Start:              "2019-01-01",
			BenchmarkTicker:    "SPX",
			TopN:               10,
			TradingDaysPerYear: 252,
			// 1 - 0.94453, the decay the volatility model was calibrated with.
			VolatilityAlpha:     0.05547,
			MultiClassTolerance: 0.2,
		},
	}
}

// Load builds the configuration. Precedence, lowest to highest:
// defaults, the YAML file at configPath (skipped when absent),
// INDEXPULSE_* environment variables.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := loadFromFile(configPath, cfg); err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	}

	if err := envconfig.Process("INDEXPULSE", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML file values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	return nil
}

// Validate checks the configuration against its struct constraints and
// cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Cache.Backend == "csv" && c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required for the csv cache backend")
	}
	if c.Cache.Backend == "sqlite" && c.Cache.SQLitePath == "" {
		return fmt.Errorf("cache.sqlite_path is required for the sqlite cache backend")
	}
	if _, err := c.Market.StartDate(); err != nil {
		return err
	}
	return nil
}

// EnsureDirectories creates the directories the pipeline writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.ReportsDir}
	if c.Cache.Backend == "csv" {
		dirs = append(dirs, c.Cache.Dir)
	} else {
		dirs = append(dirs, filepath.Dir(c.Cache.SQLitePath))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
