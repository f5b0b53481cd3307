package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/igdb-proxy/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("TWITCH_CLIENT_ID", "")
	t.Setenv("TWITCH_CLIENT_SECRET", "")
	t.Setenv("PORT", "")

	cfg, err := config.Load(writeConfig(t, "twitch:\n  client_id: abc\n  client_secret: def\n"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Server.Transport != "chi" {
		t.Fatalf("expected chi transport, got %q", cfg.Server.Transport)
	}
	if cfg.Twitch.TokenURL != "https://id.twitch.tv/oauth2/token" {
		t.Fatalf("unexpected token url %q", cfg.Twitch.TokenURL)
	}
	if cfg.IGDB.BaseURL != "https://api.igdb.com/v4" || cfg.IGDB.PageSize != 50 || cfg.IGDB.MinRatingCount != 50 {
		t.Fatalf("unexpected igdb defaults: %+v", cfg.IGDB)
	}
	if cfg.Redis.CacheTTL != 10*time.Minute {
		t.Fatalf("unexpected cache ttl %v", cfg.Redis.CacheTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("TWITCH_CLIENT_ID", "env-id")
	t.Setenv("TWITCH_CLIENT_SECRET", "env-secret")
	t.Setenv("PORT", "8081")

	cfg, err := config.Load(writeConfig(t, "server:\n  port: 9000\ntwitch:\n  client_id: file-id\n"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Twitch.ClientID != "env-id" || cfg.Twitch.ClientSecret != "env-secret" {
		t.Fatalf("expected env credentials, got %+v", cfg.Twitch)
	}
	if cfg.Server.Port != 8081 {
		t.Fatalf("expected env port 8081, got %d", cfg.Server.Port)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TWITCH_CLIENT_ID", "")
	t.Setenv("IGDB_TEST_TZ", "America/Sao_Paulo")

	cfg, err := config.Load(writeConfig(t, "format:\n  time_zone: ${IGDB_TEST_TZ}\n"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Format.TimeZone != "America/Sao_Paulo" {
		t.Fatalf("expected expanded time zone, got %q", cfg.Format.TimeZone)
	}
}

func TestValidateRequiresCredentials(t *testing.T) {
	t.Setenv("TWITCH_CLIENT_ID", "")
	t.Setenv("TWITCH_CLIENT_SECRET", "")

	cfg := config.DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when credentials are missing")
	}

	cfg.Twitch.ClientID = "id"
	cfg.Twitch.ClientSecret = "secret"
	cfg.Server.Transport = "grpc"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown transport")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadDotEnvMissingFileIsIgnored(t *testing.T) {
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
}
