package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8474 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8474)
	}
	if cfg.Economy.Timezone != "UTC" {
		t.Errorf("Economy.Timezone = %q, want UTC", cfg.Economy.Timezone)
	}
	if !cfg.Telemetry.Prometheus {
		t.Error("Telemetry.Prometheus should default on")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("MEMEFORGE_HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 8474 {
		t.Errorf("missing file must yield defaults, got port %d", cfg.API.Port)
	}
}

func TestLoadConfig_PartialOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("MEMEFORGE_HOME", home)

	body := `
[api]
port = 9000

[economy]
timezone = "Europe/Berlin"
global_daily_cap = 500
`
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(body), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.API.Port)
	}
	if cfg.Economy.Timezone != "Europe/Berlin" || cfg.Economy.GlobalDailyCap != 500 {
		t.Errorf("economy = %+v", cfg.Economy)
	}
	// Untouched sections keep their defaults.
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("host = %q, want default", cfg.API.Host)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("MEMEFORGE_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.API.Port = 9999
	cfg.Economy.LevelThresholds = []int64{0, 10, 20}
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.API.Port != 9999 {
		t.Errorf("port = %d, want 9999", got.API.Port)
	}
	if len(got.Economy.LevelThresholds) != 3 {
		t.Errorf("thresholds = %v", got.Economy.LevelThresholds)
	}
}
