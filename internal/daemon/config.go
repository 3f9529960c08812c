// Package daemon manages the MemeForge daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Economy   EconomyConfig   `toml:"economy"`
	Quests    QuestsConfig    `toml:"quests"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Logging   LoggingConfig   `toml:"logging"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	AdminToken string `toml:"admin_token"`
}

// EconomyConfig tunes the reward economy. Zero values fall back to the
// built-in defaults so a partial config file stays valid.
type EconomyConfig struct {
	Timezone        string  `toml:"timezone"` // IANA name, "" = UTC
	GlobalDailyCap  int64   `toml:"global_daily_cap"`
	GlobalWeeklyCap int64   `toml:"global_weekly_cap"`
	LevelThresholds []int64 `toml:"level_thresholds"`
}

// QuestsConfig points at the weekly quest definition file.
type QuestsConfig struct {
	ConfigPath string `toml:"config_path"`
}

// TelemetryConfig controls the Prometheus endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := memeforgeHome()
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8474,
		},
		Economy: EconomyConfig{
			Timezone: "UTC",
		},
		Quests: QuestsConfig{
			ConfigPath: filepath.Join(homeDir, "quests.toml"),
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(homeDir, "memeforge.log"),
		},
	}
}

// LoadConfig reads config from $MEMEFORGE_HOME/config.toml, falling back
// to defaults when no file exists yet.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(memeforgeHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the config to $MEMEFORGE_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(memeforgeHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// memeforgeHome returns the MemeForge data directory.
func memeforgeHome() string {
	if env := os.Getenv("MEMEFORGE_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".memeforge")
}

// Home is exported for use by other packages.
func Home() string {
	return memeforgeHome()
}
