package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig err: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Model.Dir != "artifacts" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Audit.QueueSize != 256 || cfg.Audit.Workers != 1 || cfg.Audit.WriteTimeout != 5*time.Second {
		t.Fatalf("unexpected audit defaults %+v", cfg.Audit)
	}
	if cfg.Dashboard.CacheTTL != 30*time.Second || cfg.Dashboard.Limit != 1000 || cfg.Dashboard.FetchTimeout != 10*time.Second {
		t.Fatalf("unexpected dashboard defaults %+v", cfg.Dashboard)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
telegram:
  token: file-token
model:
  dir: /srv/model
audit:
  queue_size: 16
  write_timeout: 2s
database:
  use_in_memory: true
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig err: %v", err)
	}
	if cfg.Telegram.Token != "file-token" || cfg.Model.Dir != "/srv/model" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Audit.QueueSize != 16 || cfg.Audit.WriteTimeout != 2*time.Second {
		t.Fatalf("unexpected audit config %+v", cfg.Audit)
	}
	if !cfg.Database.UseInMemory || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "env-token")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("AUDIT_WORKERS", "4")
	t.Setenv("DATABASE_URL", "postgres://bot:pw@db.internal:6543/logs?sslmode=require")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig err: %v", err)
	}
	if cfg.Telegram.Token != "env-token" || cfg.Auth.JWTSecret != "s3cret" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Audit.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Audit.Workers)
	}
	want := DatabaseConfig{Host: "db.internal", Port: 6543, User: "bot", Password: "pw", DBName: "logs", SSLMode: "require"}
	if cfg.Database != want {
		t.Fatalf("database = %+v, want %+v", cfg.Database, want)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Setenv("AUDIT_QUEUE_SIZE", "0")
	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestParseDatabaseURL(t *testing.T) {
	got, err := parseDatabaseURL("postgres://u@localhost/db")
	if err != nil {
		t.Fatalf("parseDatabaseURL err: %v", err)
	}
	if got.Port != 5432 || got.SSLMode != "disable" || got.DBName != "db" {
		t.Fatalf("unexpected config %+v", got)
	}

	for _, bad := range []string{"postgres://u@host:port/db", "not a url", "::"} {
		if _, err := parseDatabaseURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
