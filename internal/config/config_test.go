package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("KITCHEN_POLL_SECONDS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Backend != BackendMemory {
		t.Fatalf("expected memory backend by default, got %q", cfg.Backend)
	}
	if cfg.KitchenPollSeconds != 20 || cfg.SellerPollSeconds != 60 {
		t.Fatalf("unexpected poll defaults: %d/%d", cfg.KitchenPollSeconds, cfg.SellerPollSeconds)
	}
	if cfg.AutosaveDelay().Seconds() != 1 {
		t.Fatalf("expected one second autosave, got %v", cfg.AutosaveDelay())
	}
}

func TestEnvOverridesFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restodesk.yaml")
	body := "backend: sqlite\nsqlite_path: /var/lib/restodesk.db\nkitchen_sla_minutes: 25\nport: \"9000\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("PORT", "7070")
	t.Setenv("KITCHEN_SLA_MINUTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Backend != BackendSQLite || cfg.SQLitePath != "/var/lib/restodesk.db" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.KitchenSLAMinutes != 25 {
		t.Fatalf("expected sla from file, got %d", cfg.KitchenSLAMinutes)
	}
	if cfg.Port != "7070" {
		t.Fatalf("expected env port to win, got %s", cfg.Port)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DELIVERY_SLA_MINUTES", "soon")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DeliverySLAMinutes != 45 {
		t.Fatalf("expected fallback 45, got %d", cfg.DeliverySLAMinutes)
	}
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cfg.Backend = BackendPostgres
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected postgres without DATABASE_URL to fail")
	}

	cfg = defaults()
	cfg.Backend = "mongo"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown backend to fail")
	}

	cfg = defaults()
	cfg.AllowedOrigin = "*"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected wildcard origin to fail")
	}
}
