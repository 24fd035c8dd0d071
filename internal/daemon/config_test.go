package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Port != 8732 {
		t.Errorf("API.Port = %d, want 8732", cfg.API.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want 127.0.0.1", cfg.API.Host)
	}
	if cfg.Engine.MaxActiveQuests != 3 {
		t.Errorf("Engine.MaxActiveQuests = %d, want 3", cfg.Engine.MaxActiveQuests)
	}
	if !cfg.Engine.AutoGenerate {
		t.Error("Engine.AutoGenerate should default on")
	}
	if !cfg.Telemetry.SimulateReadings {
		t.Error("Telemetry.SimulateReadings should default on")
	}
	if len(cfg.Telemetry.Users) != 1 || cfg.Telemetry.Users[0] != "local" {
		t.Errorf("Telemetry.Users = %v, want [local]", cfg.Telemetry.Users)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("WATTQUEST_HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("Port = %d, want default", cfg.API.Port)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	t.Setenv("WATTQUEST_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.API.Port = 9000
	cfg.Engine.MaxActiveQuests = 5
	cfg.Engine.ThrottleWindow = "30s"
	cfg.Telemetry.Users = []string{"alice", "bob"}

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if loaded.API.Port != 9000 {
		t.Errorf("Port = %d, want 9000", loaded.API.Port)
	}
	if loaded.Engine.MaxActiveQuests != 5 {
		t.Errorf("MaxActiveQuests = %d, want 5", loaded.Engine.MaxActiveQuests)
	}
	if loaded.Engine.ThrottleWindow != "30s" {
		t.Errorf("ThrottleWindow = %q, want 30s", loaded.Engine.ThrottleWindow)
	}
	if len(loaded.Telemetry.Users) != 2 {
		t.Errorf("Users = %v, want two entries", loaded.Telemetry.Users)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("WATTQUEST_HOME", home)

	partial := "[api]\nport = 9100\n"
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(partial), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.API.Port)
	}
	// Untouched sections keep their defaults.
	if cfg.Engine.MaxActiveQuests != 3 {
		t.Errorf("MaxActiveQuests = %d, want default 3", cfg.Engine.MaxActiveQuests)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in       string
		fallback time.Duration
		want     time.Duration
	}{
		{"10s", time.Minute, 10 * time.Second},
		{"24h", time.Minute, 24 * time.Hour},
		{"", time.Minute, time.Minute},
		{"garbage", time.Minute, time.Minute},
	}
	for _, tt := range tests {
		if got := parseDuration(tt.in, tt.fallback); got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
