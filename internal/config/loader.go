package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CARDPULSE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CARDPULSE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "CARDPULSE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CARDPULSE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CARDPULSE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CARDPULSE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CARDPULSE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CARDPULSE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CARDPULSE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CARDPULSE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CARDPULSE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CARDPULSE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "CARDPULSE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CARDPULSE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CARDPULSE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CARDPULSE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CARDPULSE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CARDPULSE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "CARDPULSE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CARDPULSE_S3_REGION")
	setStr(&cfg.S3.Bucket, "CARDPULSE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CARDPULSE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CARDPULSE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CARDPULSE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CARDPULSE_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "CARDPULSE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "CARDPULSE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CARDPULSE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "CARDPULSE_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "CARDPULSE_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "CARDPULSE_SERVER_RATE_WINDOW")

	// ── Engine ──
	setDuration(&cfg.Engine.CacheTTL, "CARDPULSE_ENGINE_CACHE_TTL")
	setDuration(&cfg.Engine.DeltaBoundary, "CARDPULSE_ENGINE_DELTA_BOUNDARY")
	setInt(&cfg.Engine.MinSales, "CARDPULSE_ENGINE_MIN_SALES")

	// ── Pipeline ──
	setStr(&cfg.Pipeline.ArchiveCron, "CARDPULSE_PIPELINE_ARCHIVE_CRON")
	setInt(&cfg.Pipeline.RetentionDays, "CARDPULSE_PIPELINE_RETENTION_DAYS")
	setStringSlice(&cfg.Pipeline.Watchlist, "CARDPULSE_PIPELINE_WATCHLIST")
	setDuration(&cfg.Pipeline.WarmInterval, "CARDPULSE_PIPELINE_WARM_INTERVAL")
	setInt(&cfg.Pipeline.WarmConcurrency, "CARDPULSE_PIPELINE_WARM_CONCURRENCY")
	setFloat64(&cfg.Pipeline.AlertThresholdPct, "CARDPULSE_PIPELINE_ALERT_THRESHOLD_PCT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CARDPULSE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CARDPULSE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CARDPULSE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CARDPULSE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CARDPULSE_MODE")
	setStr(&cfg.LogLevel, "CARDPULSE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
