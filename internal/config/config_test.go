package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "5000" {
		t.Errorf("expected default port 5000, got %s", cfg.Server.Port)
	}
	if cfg.Workers.RetryDelay != 500*time.Millisecond {
		t.Errorf("expected default retry delay, got %s", cfg.Workers.RetryDelay)
	}
	if got := cfg.Database.DSN(); got != "host=localhost port=5432 user=surveyflow password=surveyflow dbname=surveyflow sslmode=disable" {
		t.Errorf("unexpected dsn %q", got)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "config"), 0755); err != nil {
		t.Fatal(err)
	}
	yaml := "server:\n  port: \"9000\"\nlogging:\n  level: debug\n"
	if err := os.WriteFile(filepath.Join(root, "config", "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SURVEYFLOW_DATABASE_HOST", "db.internal")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "9000" {
		t.Errorf("expected port from file, got %s", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level from file, got %s", cfg.Logging.Level)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("expected host from env, got %s", cfg.Database.Host)
	}
}

func TestLoad_BrokenFile(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "config"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "config", "config.yaml"), []byte("server: [\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(root); err == nil {
		t.Errorf("expected error for malformed config")
	}
}
