// Package daemon manages the WattQuest daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Engine    EngineConfig    `toml:"engine"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Logging   LoggingConfig   `toml:"logging"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// EngineConfig controls quest generation and progress tracking.
type EngineConfig struct {
	MaxActiveQuests    int    `toml:"max_active_quests"`
	ThrottleWindow     string `toml:"throttle_window"`
	ProgressInterval   string `toml:"progress_interval"`
	GenerationInterval string `toml:"generation_interval"`
	AutoGenerate       bool   `toml:"auto_generate"`
}

// TelemetryConfig controls metering sources and metrics exposure.
type TelemetryConfig struct {
	Prometheus       bool     `toml:"prometheus"`
	SimulateReadings bool     `toml:"simulate_readings"`
	SimulateInterval string   `toml:"simulate_interval"`
	Seed             int64    `toml:"seed"`
	Users            []string `toml:"users"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultConfig returns the shipped defaults.
func DefaultConfig() Config {
	homeDir := wattquestHome()
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8732,
			CORSOrigins: []string{"*"},
		},
		Engine: EngineConfig{
			MaxActiveQuests:    3,
			ThrottleWindow:     "10s",
			ProgressInterval:   "60s",
			GenerationInterval: "24h",
			AutoGenerate:       true,
		},
		Telemetry: TelemetryConfig{
			Prometheus:       true,
			SimulateReadings: true,
			SimulateInterval: "15s",
			Seed:             1,
			Users:            []string{"local"},
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(homeDir, "wattquest.log"),
		},
	}
}

// LoadConfig reads config from ~/.wattquest/config.toml, falling back to
// defaults when the file is absent.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(wattquestHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config to ~/.wattquest/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(wattquestHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// wattquestHome returns the data directory.
func wattquestHome() string {
	if env := os.Getenv("WATTQUEST_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wattquest")
}

// Home is exported for use by other packages.
func Home() string {
	return wattquestHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
