// Package config defines the TOML-backed configuration for cardpulse and its
// environment-variable override layer.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration object, decoded from a TOML file and then
// overlaid with CARDPULSE_* environment variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Engine   EngineConfig   `toml:"engine"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Notify   NotifyConfig   `toml:"notify"`

	// Mode selects which subsystems run: "server", "archive", "warm", "full".
	Mode string `toml:"mode"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters. An explicit DSN wins
// over the individual fields.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds object-storage parameters for the observation archive. Any
// S3-compatible provider works; leave Endpoint empty for AWS S3 proper.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`

	// APIKey, when non-empty, is required in the X-API-Key header on every
	// request except the health endpoint.
	APIKey string `toml:"api_key"`

	// RateLimit is the number of requests allowed per client IP per
	// RateWindow. Zero disables rate limiting.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// EngineConfig tunes the metric computations and their result cache.
type EngineConfig struct {
	// CacheTTL is how long a computed metric stays valid in Redis.
	CacheTTL duration `toml:"cache_ttl"`

	// DeltaBoundary is the width of the reference window used when
	// computing price deltas.
	DeltaBoundary duration `toml:"delta_boundary"`

	// MinSales is the default sample-size threshold for floor prices.
	MinSales int `toml:"min_sales"`
}

// PipelineConfig holds background job parameters for archival and cache
// warming.
type PipelineConfig struct {
	// ArchiveCron is a 5-field cron expression controlling when the
	// archive sweep runs.
	ArchiveCron string `toml:"archive_cron"`

	// RetentionDays is how long raw observations stay in PostgreSQL before
	// being exported to object storage.
	RetentionDays int `toml:"retention_days"`

	// Watchlist is the set of card IDs the warmer recomputes on a cycle.
	Watchlist []string `toml:"watchlist"`

	// WarmInterval is how often the warmer refreshes the watchlist.
	WarmInterval duration `toml:"warm_interval"`

	// WarmConcurrency bounds how many cards are warmed at once.
	WarmConcurrency int `toml:"warm_concurrency"`

	// AlertThresholdPct is the absolute 24h delta percentage at or above
	// which a price alert is sent. Zero disables alerts.
	AlertThresholdPct float64 `toml:"alert_threshold_pct"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`

	// Events restricts which alert types are delivered. An empty list
	// allows everything.
	Events []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. These
// match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "cardpulse",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "cardpulse-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   0,
			RateWindow:  duration{time.Second},
		},
		Engine: EngineConfig{
			CacheTTL:      duration{5 * time.Minute},
			DeltaBoundary: duration{24 * time.Hour},
			MinSales:      3,
		},
		Pipeline: PipelineConfig{
			ArchiveCron:       "0 3 * * *",
			RetentionDays:     180,
			WarmInterval:      duration{5 * time.Minute},
			WarmConcurrency:   4,
			AlertThresholdPct: 10.0,
		},
		Notify: NotifyConfig{
			Events: []string{"price_spike", "price_drop", "archive_complete"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"archive": true,
	"warm":    true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, archive, warm, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 checks apply only when the archive sweep can run.
	if c.Mode == "archive" || c.Mode == "full" {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty for mode "+c.Mode)
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty for mode "+c.Mode)
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	// Engine
	if c.Engine.CacheTTL.Duration < 0 {
		errs = append(errs, "engine: cache_ttl must be >= 0")
	}
	if c.Engine.DeltaBoundary.Duration <= 0 {
		errs = append(errs, "engine: delta_boundary must be > 0")
	}
	if c.Engine.MinSales < 1 {
		errs = append(errs, "engine: min_sales must be >= 1")
	}

	// Pipeline
	if c.Mode == "archive" || c.Mode == "full" {
		if strings.TrimSpace(c.Pipeline.ArchiveCron) == "" {
			errs = append(errs, "pipeline: archive_cron must not be empty for mode "+c.Mode)
		}
		if c.Pipeline.RetentionDays < 1 {
			errs = append(errs, "pipeline: retention_days must be >= 1")
		}
	}
	if c.Mode == "warm" || c.Mode == "full" {
		if c.Pipeline.WarmInterval.Duration <= 0 {
			errs = append(errs, "pipeline: warm_interval must be > 0")
		}
		if c.Pipeline.WarmConcurrency < 1 {
			errs = append(errs, "pipeline: warm_concurrency must be >= 1")
		}
	}
	if c.Pipeline.AlertThresholdPct < 0 {
		errs = append(errs, "pipeline: alert_threshold_pct must be >= 0")
	}

	// Telegram chat ID and token travel together.
	tk := c.Notify.TelegramToken != ""
	ch := c.Notify.TelegramChatID != ""
	if tk != ch {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must both be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
