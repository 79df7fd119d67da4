package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file should succeed: %v", err)
	}
	if cfg.Database.Path != ".tilth/tilth.db" {
		t.Errorf("expected default db path, got %q", cfg.Database.Path)
	}
	if cfg.Server.Addr != ":8337" {
		t.Errorf("expected default addr, got %q", cfg.Server.Addr)
	}
}

func TestLoadEmptyPathUsesDefaultLocation(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := os.MkdirAll(".tilth", 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	content := "server:\n  addr: \":9100\"\n"
	if err := os.WriteFile(DefaultPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9100" {
		t.Errorf("expected addr from %s, got %q", DefaultPath, cfg.Server.Addr)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilth.yaml")
	content := `
database:
  path: /tmp/farm.db
server:
  addr: ":9000"
  rate_limit: 10
  rate_burst: 20
scheduler:
  enabled: false
  tick_interval: 30s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "/tmp/farm.db" {
		t.Errorf("expected /tmp/farm.db, got %q", cfg.Database.Path)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("expected :9000, got %q", cfg.Server.Addr)
	}
	if cfg.Scheduler.Enabled {
		t.Error("expected scheduler disabled")
	}
	if cfg.Scheduler.TickInterval != 30*time.Second {
		t.Errorf("expected 30s tick, got %s", cfg.Scheduler.TickInterval)
	}
	// Unset fields keep defaults
	if cfg.Retention.RetentionDays != 365 {
		t.Errorf("expected default retention days, got %d", cfg.Retention.RetentionDays)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TILTH_ADDR", ":7000")
	t.Setenv("TILTH_RATE_LIMIT", "5")
	t.Setenv("TILTH_RATE_BURST", "10")
	t.Setenv("TILTH_CACHE_TTL", "5s")
	t.Setenv("TILTH_RETENTION_DAYS", "30")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("expected :7000, got %q", cfg.Server.Addr)
	}
	if cfg.Server.RateLimit != 5 {
		t.Errorf("expected rate limit 5, got %d", cfg.Server.RateLimit)
	}
	if cfg.Server.CacheTTL != 5*time.Second {
		t.Errorf("expected 5s cache ttl, got %s", cfg.Server.CacheTTL)
	}
	if cfg.Retention.RetentionDays != 30 {
		t.Errorf("expected retention 30, got %d", cfg.Retention.RetentionDays)
	}
}

func TestEnvInvalidValue(t *testing.T) {
	t.Setenv("TILTH_RATE_LIMIT", "lots")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-numeric rate limit")
	}
}

func TestValidateRejectsBadRanges(t *testing.T) {
	cfg := Default()
	cfg.Server.RateLimit = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero rate limit")
	}

	cfg = Default()
	cfg.Server.RateBurst = cfg.Server.RateLimit - 1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for burst < limit")
	}

	cfg = Default()
	cfg.Scheduler.TickInterval = 100 * time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for sub-second tick interval")
	}
}

func TestRetentionValidate(t *testing.T) {
	c := DefaultRetentionConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("default retention config should validate: %v", err)
	}

	c.RetentionCriticalDays = c.RetentionDays - 1
	if err := c.Validate(); err == nil {
		t.Error("expected error when critical retention < regular retention")
	}

	c = DefaultRetentionConfig()
	c.CleanupBatchSize = 10
	if err := c.Validate(); err == nil {
		t.Error("expected error for tiny batch size")
	}
}
