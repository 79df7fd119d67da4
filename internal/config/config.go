package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration. Values come from an
// optional tilth.yaml file, overridden by TILTH_* environment variables.
type Config struct {
	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Scheduler configuration
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Retention holds event retention and cleanup settings
	Retention RetentionConfig `yaml:"retention"`
}

// DatabaseConfig selects and configures the storage backend.
// When PostgresDSN is set the Postgres backend is used; otherwise
// SQLite at Path.
type DatabaseConfig struct {
	// Path is the SQLite database file path
	// Default: ".tilth/tilth.db"
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string `yaml:"path"`

	// PostgresDSN is a postgres:// connection string. When non-empty,
	// the Postgres backend is selected and Path is ignored.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	// Addr is the listen address
	// Default: ":8337"
	Addr string `yaml:"addr"`

	// RateLimit is the sustained requests-per-second allowed per server
	// Default: 50, Range: 1-10000
	RateLimit int `yaml:"rate_limit"`

	// RateBurst is the burst size for the rate limiter
	// Default: 100
	RateBurst int `yaml:"rate_burst"`

	// CacheTTL is how long cached read responses stay fresh
	// Default: 30s
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// ShutdownTimeout bounds graceful shutdown
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SchedulerConfig configures the recurring-activity scheduler
type SchedulerConfig struct {
	// Enabled controls whether the scheduler runs under `tilth serve`
	// Default: true
	Enabled bool `yaml:"enabled"`

	// TickInterval is how often due schedules are checked
	// Default: 1m
	TickInterval time.Duration `yaml:"tick_interval"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: ".tilth/tilth.db",
		},
		Server: ServerConfig{
			Addr:            ":8337",
			RateLimit:       50,
			RateBurst:       100,
			CacheTTL:        30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			TickInterval: 1 * time.Minute,
		},
		Retention: DefaultRetentionConfig(),
	}
}

// DefaultPath is where Load looks when no config path is given
const DefaultPath = ".tilth/config.yaml"

// Load reads configuration from the given YAML file (if it exists),
// applies TILTH_* environment overrides, and validates the result.
// An empty path falls back to DefaultPath; a missing file just means
// defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		// Missing file is fine; defaults apply
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays TILTH_* environment variables onto the config.
//
// Environment variables:
//   - TILTH_DB_PATH: SQLite database path
//   - TILTH_POSTGRES_DSN: Postgres connection string (selects the Postgres backend)
//   - TILTH_ADDR: HTTP listen address
//   - TILTH_RATE_LIMIT: sustained requests per second
//   - TILTH_RATE_BURST: rate limiter burst size
//   - TILTH_CACHE_TTL: cache freshness window (Go duration, e.g. "30s")
//   - TILTH_SCHEDULER_ENABLED: enable the recurring-activity scheduler
//   - TILTH_SCHEDULER_TICK: scheduler tick interval (Go duration)
func (c *Config) applyEnv() error {
	if err := parseEnvString("TILTH_DB_PATH", &c.Database.Path); err != nil {
		return err
	}
	if err := parseEnvString("TILTH_POSTGRES_DSN", &c.Database.PostgresDSN); err != nil {
		return err
	}
	if err := parseEnvString("TILTH_ADDR", &c.Server.Addr); err != nil {
		return err
	}
	if err := parseEnvInt("TILTH_RATE_LIMIT", &c.Server.RateLimit); err != nil {
		return err
	}
	if err := parseEnvInt("TILTH_RATE_BURST", &c.Server.RateBurst); err != nil {
		return err
	}
	if err := parseEnvDuration("TILTH_CACHE_TTL", &c.Server.CacheTTL); err != nil {
		return err
	}
	if err := parseEnvBool("TILTH_SCHEDULER_ENABLED", &c.Scheduler.Enabled); err != nil {
		return err
	}
	if err := parseEnvDuration("TILTH_SCHEDULER_TICK", &c.Scheduler.TickInterval); err != nil {
		return err
	}
	return c.Retention.applyEnv()
}

// Validate checks if the configuration has valid values
func (c *Config) Validate() error {
	if c.Database.Path == "" && c.Database.PostgresDSN == "" {
		return fmt.Errorf("database.path or database.postgres_dsn must be set")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must be set")
	}
	if c.Server.RateLimit < 1 || c.Server.RateLimit > 10000 {
		return fmt.Errorf("server.rate_limit must be between 1 and 10000 (got %d)", c.Server.RateLimit)
	}
	if c.Server.RateBurst < c.Server.RateLimit {
		return fmt.Errorf("server.rate_burst (%d) must be >= server.rate_limit (%d)",
			c.Server.RateBurst, c.Server.RateLimit)
	}
	if c.Server.CacheTTL < 0 {
		return fmt.Errorf("server.cache_ttl cannot be negative")
	}
	if c.Scheduler.TickInterval < time.Second {
		return fmt.Errorf("scheduler.tick_interval must be at least 1s (got %s)", c.Scheduler.TickInterval)
	}
	return c.Retention.Validate()
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}

// parseEnvDuration parses a time.Duration from an environment variable
func parseEnvDuration(key string, dest *time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}
