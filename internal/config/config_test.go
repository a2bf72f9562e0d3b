package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opshq/backoffice/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("addr default: %q", cfg.Addr)
	}
	if cfg.DatabasePath != "backoffice.db" {
		t.Errorf("database path default: %q", cfg.DatabasePath)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("worker count default: %d", cfg.WorkerCount)
	}
	if cfg.Rates.BaseCurrency != "USD" || cfg.Rates.CacheTTL != time.Hour {
		t.Errorf("rates defaults: %+v", cfg.Rates)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("BACKOFFICE_ADDR", ":9999")
	t.Setenv("BACKOFFICE_WORKERS", "12")
	t.Setenv("BACKOFFICE_RATES_URL", "http://rates.internal")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Addr != ":9999" {
		t.Errorf("addr: %q", cfg.Addr)
	}
	if cfg.WorkerCount != 12 {
		t.Errorf("workers: %d", cfg.WorkerCount)
	}
	if cfg.Rates.BaseURL != "http://rates.internal" {
		t.Errorf("rates url: %q", cfg.Rates.BaseURL)
	}
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
addr: ":7070"
jwt_secret: "from-yaml"
rates:
  base_url: "http://yaml-rates"
  retries: 7
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Addr != ":7070" || cfg.JWTSecret != "from-yaml" {
		t.Errorf("yaml overlay not applied: %+v", cfg)
	}
	if cfg.Rates.BaseURL != "http://yaml-rates" || cfg.Rates.Retries != 7 {
		t.Errorf("nested yaml overlay not applied: %+v", cfg.Rates)
	}
	// fields absent from the file keep their defaults
	if cfg.DatabasePath != "backoffice.db" {
		t.Errorf("unrelated default lost: %q", cfg.DatabasePath)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadConfigInvalidWorkerEnv(t *testing.T) {
	t.Setenv("BACKOFFICE_WORKERS", "not-a-number")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("bad env value should fall back to default, got %d", cfg.WorkerCount)
	}
}
