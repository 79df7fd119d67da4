package config

import "fmt"

// RetentionConfig holds configuration for planting-event retention and
// cleanup. The event log grows with every lifecycle write; cleanup keeps
// it bounded while preserving lifecycle-transition events longer than
// notes and field edits.
type RetentionConfig struct {
	// RetentionDays is the retention period for regular events (in days)
	// Events older than this are eligible for deletion
	// Default: 365, Range: 1-3650
	RetentionDays int `yaml:"retention_days"`

	// RetentionCriticalDays is the retention period for lifecycle
	// transition events (created, transplanted, harvested, removed).
	// These are the crop history and are kept longer.
	// Must be >= RetentionDays
	// Default: 1825 (5 seasons' worth), Range: 1-7300
	RetentionCriticalDays int `yaml:"retention_critical_days"`

	// CleanupIntervalHours is how often to run cleanup (in hours)
	// Default: 24, Range: 1-168 (1 week)
	CleanupIntervalHours int `yaml:"cleanup_interval_hours"`

	// CleanupBatchSize is the number of events to delete per transaction
	// Larger batches = faster cleanup but longer locks
	// Default: 1000, Range: 100-10000
	CleanupBatchSize int `yaml:"cleanup_batch_size"`

	// CleanupEnabled controls whether automatic cleanup is enabled
	// Default: true
	CleanupEnabled bool `yaml:"cleanup_enabled"`

	// CleanupVacuum controls whether to run VACUUM after cleanup
	// VACUUM reclaims disk space but can lock the database
	// Default: false
	CleanupVacuum bool `yaml:"cleanup_vacuum"`
}

// DefaultRetentionConfig returns the default retention configuration
//
// These defaults are chosen to:
// - Keep a full season of routine event history (365 days)
// - Keep lifecycle transitions for five seasons (crop rotation planning)
// - Run cleanup daily in bounded batches
// - Use non-blocking cleanup (no VACUUM by default)
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		RetentionDays:         365,
		RetentionCriticalDays: 1825,
		CleanupIntervalHours:  24,
		CleanupBatchSize:      1000,
		CleanupEnabled:        true,
		CleanupVacuum:         false,
	}
}

// Validate checks if the configuration has valid values
func (c RetentionConfig) Validate() error {
	if c.RetentionDays < 1 || c.RetentionDays > 3650 {
		return fmt.Errorf("retention_days must be between 1 and 3650 (got %d)", c.RetentionDays)
	}
	if c.RetentionCriticalDays < 1 || c.RetentionCriticalDays > 7300 {
		return fmt.Errorf("retention_critical_days must be between 1 and 7300 (got %d)",
			c.RetentionCriticalDays)
	}
	if c.RetentionCriticalDays < c.RetentionDays {
		return fmt.Errorf("retention_critical_days (%d) must be >= retention_days (%d)",
			c.RetentionCriticalDays, c.RetentionDays)
	}
	if c.CleanupIntervalHours < 1 {
		return fmt.Errorf("cleanup_interval_hours must be at least 1 (got %d)",
			c.CleanupIntervalHours)
	}
	if c.CleanupIntervalHours > 168 {
		return fmt.Errorf("cleanup_interval_hours too large (got %d, max 168)",
			c.CleanupIntervalHours)
	}
	if c.CleanupBatchSize < 100 {
		return fmt.Errorf("cleanup_batch_size must be at least 100 (got %d)",
			c.CleanupBatchSize)
	}
	if c.CleanupBatchSize > 10000 {
		return fmt.Errorf("cleanup_batch_size too large (got %d, max 10000)",
			c.CleanupBatchSize)
	}
	return nil
}

// applyEnv overlays TILTH_RETENTION_* environment variables.
//
// Environment variables:
//   - TILTH_RETENTION_DAYS: retention period for regular events in days
//   - TILTH_RETENTION_CRITICAL_DAYS: retention period for lifecycle events in days
//   - TILTH_CLEANUP_INTERVAL_HOURS: how often to run cleanup in hours
//   - TILTH_CLEANUP_BATCH_SIZE: events to delete per transaction
//   - TILTH_CLEANUP_ENABLED: enable automatic cleanup
//   - TILTH_CLEANUP_VACUUM: run VACUUM after cleanup
func (c *RetentionConfig) applyEnv() error {
	if err := parseEnvInt("TILTH_RETENTION_DAYS", &c.RetentionDays); err != nil {
		return err
	}
	if err := parseEnvInt("TILTH_RETENTION_CRITICAL_DAYS", &c.RetentionCriticalDays); err != nil {
		return err
	}
	if err := parseEnvInt("TILTH_CLEANUP_INTERVAL_HOURS", &c.CleanupIntervalHours); err != nil {
		return err
	}
	if err := parseEnvInt("TILTH_CLEANUP_BATCH_SIZE", &c.CleanupBatchSize); err != nil {
		return err
	}
	if err := parseEnvBool("TILTH_CLEANUP_ENABLED", &c.CleanupEnabled); err != nil {
		return err
	}
	return parseEnvBool("TILTH_CLEANUP_VACUUM", &c.CleanupVacuum)
}
