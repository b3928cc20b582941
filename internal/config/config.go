// Package config loads engine configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Feed      FeedConfig      `yaml:"feed"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	LogLevel  string          `yaml:"log_level"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig configures postgres persistence. An empty URL selects the
// in-memory store.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig configures event publishing. An empty address disables it.
type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// FeedConfig configures the external result feed.
type FeedConfig struct {
	URL           string `yaml:"url"`
	APIKey        string `yaml:"api_key"`
	APISecret     string `yaml:"api_secret"`
	RatePerMinute int    `yaml:"rate_per_minute"`
}

// SchedulerConfig configures the recovery sweep.
type SchedulerConfig struct {
	Schedule     string        `yaml:"schedule"`
	GraceMinutes int           `yaml:"grace_minutes"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		HTTP:     HTTPConfig{Addr: ":8080"},
		Redis:    RedisConfig{Channel: "matka.events"},
		Feed:     FeedConfig{RatePerMinute: 30},
		LogLevel: "info",
		Scheduler: SchedulerConfig{
			Schedule:     "@every 1m",
			GraceMinutes: 10,
			FetchTimeout: 30 * time.Second,
		},
	}
}

// Load reads the YAML file at path (optional) and applies environment
// overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if cfg.Scheduler.GraceMinutes < 0 {
		return Config{}, fmt.Errorf("scheduler grace_minutes must not be negative")
	}
	return cfg, nil
}

// Grace returns the sweep grace window as a duration.
func (c SchedulerConfig) Grace() time.Duration {
	return time.Duration(c.GraceMinutes) * time.Minute
}

func applyEnv(cfg *Config) {
	setString(&cfg.HTTP.Addr, "HTTP_ADDR")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Channel, "REDIS_CHANNEL")
	setString(&cfg.Feed.URL, "FEED_URL")
	setString(&cfg.Feed.APIKey, "FEED_API_KEY")
	setString(&cfg.Feed.APISecret, "FEED_API_SECRET")
	setString(&cfg.Scheduler.Schedule, "SCHEDULER_SCHEDULE")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setInt(&cfg.Feed.RatePerMinute, "FEED_RATE_PER_MINUTE")
	setInt(&cfg.Scheduler.GraceMinutes, "SCHEDULER_GRACE_MINUTES")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
