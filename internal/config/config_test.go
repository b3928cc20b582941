package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Scheduler.Schedule != "@every 1m" {
		t.Errorf("schedule = %q", cfg.Scheduler.Schedule)
	}
	if cfg.Scheduler.Grace() != 10*time.Minute {
		t.Errorf("grace = %v", cfg.Scheduler.Grace())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
http:
  addr: ":9999"
feed:
  url: https://feed.example.com/results
  rate_per_minute: 5
scheduler:
  grace_minutes: 3
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Errorf("addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Feed.URL != "https://feed.example.com/results" || cfg.Feed.RatePerMinute != 5 {
		t.Errorf("feed = %+v", cfg.Feed)
	}
	if cfg.Scheduler.Grace() != 3*time.Minute {
		t.Errorf("grace = %v", cfg.Scheduler.Grace())
	}
	// Unset fields keep their defaults.
	if cfg.Scheduler.Schedule != "@every 1m" {
		t.Errorf("schedule = %q", cfg.Scheduler.Schedule)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/override")
	t.Setenv("SCHEDULER_GRACE_MINUTES", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.URL != "postgres://env/override" {
		t.Errorf("database url = %q", cfg.Database.URL)
	}
	if cfg.Scheduler.GraceMinutes != 7 {
		t.Errorf("grace minutes = %d", cfg.Scheduler.GraceMinutes)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
