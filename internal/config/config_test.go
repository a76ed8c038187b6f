package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate, got: %v", err)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeTempConfig(t, `
mode = "server"

[postgres]
database = "cards_test"

[engine]
cache_ttl = "90s"
min_sales = 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "server" {
		t.Errorf("Mode = %q, want server", cfg.Mode)
	}
	if cfg.Postgres.Database != "cards_test" {
		t.Errorf("Postgres.Database = %q, want cards_test", cfg.Postgres.Database)
	}
	// Untouched fields keep their defaults.
	if cfg.Postgres.Host != "localhost" {
		t.Errorf("Postgres.Host = %q, want localhost", cfg.Postgres.Host)
	}
	if cfg.Engine.CacheTTL.Duration != 90*time.Second {
		t.Errorf("Engine.CacheTTL = %v, want 90s", cfg.Engine.CacheTTL.Duration)
	}
	if cfg.Engine.MinSales != 5 {
		t.Errorf("Engine.MinSales = %d, want 5", cfg.Engine.MinSales)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeTempConfig(t, `
[redis]
addr = "file-redis:6379"
`)

	t.Setenv("CARDPULSE_REDIS_ADDR", "env-redis:6379")
	t.Setenv("CARDPULSE_PIPELINE_WATCHLIST", "card-1, card-2 ,card-3")
	t.Setenv("CARDPULSE_ENGINE_DELTA_BOUNDARY", "12h")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Redis.Addr != "env-redis:6379" {
		t.Errorf("Redis.Addr = %q, want env-redis:6379", cfg.Redis.Addr)
	}
	want := []string{"card-1", "card-2", "card-3"}
	if len(cfg.Pipeline.Watchlist) != len(want) {
		t.Fatalf("Watchlist = %v, want %v", cfg.Pipeline.Watchlist, want)
	}
	for i, id := range want {
		if cfg.Pipeline.Watchlist[i] != id {
			t.Errorf("Watchlist[%d] = %q, want %q", i, cfg.Pipeline.Watchlist[i], id)
		}
	}
	if cfg.Engine.DeltaBoundary.Duration != 12*time.Hour {
		t.Errorf("Engine.DeltaBoundary = %v, want 12h", cfg.Engine.DeltaBoundary.Duration)
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "replay"
	cfg.Redis.Addr = ""
	cfg.Engine.MinSales = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown mode", "redis: addr", "engine: min_sales"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestValidateTelegramFieldsTravelTogether(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.TelegramToken = "tok"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "telegram_token and telegram_chat_id") {
		t.Fatalf("expected paired telegram error, got: %v", err)
	}
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.S3.SecretKey = "s3cret"
	cfg.Server.APIKey = "key"
	cfg.Notify.DiscordWebhookURL = "https://discord.example/hook"

	red := RedactedConfig(&cfg)

	if red.Postgres.Password != redacted || red.S3.SecretKey != redacted ||
		red.Server.APIKey != redacted || red.Notify.DiscordWebhookURL != redacted {
		t.Errorf("secrets not redacted: %+v", red)
	}
	// Original is untouched.
	if cfg.Postgres.Password != "hunter2" {
		t.Errorf("original mutated: %q", cfg.Postgres.Password)
	}
	// Empty fields stay empty rather than becoming the placeholder.
	if red.Redis.Password != "" {
		t.Errorf("empty password should stay empty, got %q", red.Redis.Password)
	}
}
