package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfigFile writes a temporary YAML config and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfigFile(t, `
bulbs:
  lamp: "192.168.1.45"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Transport.Port != 5577 {
		t.Errorf("Transport.Port = %d, want 5577", cfg.Transport.Port)
	}
	if cfg.Engine.MinCommandInterval != 120 {
		t.Errorf("Engine.MinCommandInterval = %d, want 120", cfg.Engine.MinCommandInterval)
	}
	if cfg.Engine.GroupCommandSpacing != 20 {
		t.Errorf("Engine.GroupCommandSpacing = %d, want 20", cfg.Engine.GroupCommandSpacing)
	}
	if cfg.Poller.Cadence != 10 {
		t.Errorf("Poller.Cadence = %d, want 10", cfg.Poller.Cadence)
	}
	if cfg.Poller.SkipAfterCommand != 10 {
		t.Errorf("Poller.SkipAfterCommand = %d, want 10", cfg.Poller.SkipAfterCommand)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadBulbsAndGroups(t *testing.T) {
	path := writeConfigFile(t, `
bulbs:
  lamp: "192.168.1.45"
  sconce: "192.168.1.46"
groups:
  livingroom:
    - lamp
    - sconce
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.Bulbs["lamp"]; got != "192.168.1.45" {
		t.Errorf("Bulbs[lamp] = %q, want 192.168.1.45", got)
	}
	members := cfg.Groups["livingroom"]
	if len(members) != 2 || members[0] != "lamp" || members[1] != "sconce" {
		t.Errorf("Groups[livingroom] = %v, want [lamp sconce]", members)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(_ *Config) {},
		},
		{
			name: "empty bulb address",
			mutate: func(c *Config) {
				c.Bulbs["lamp"] = ""
			},
			wantErr: "address is required",
		},
		{
			name: "group shadows bulb",
			mutate: func(c *Config) {
				c.Bulbs["lamp"] = "192.168.1.45"
				c.Groups["lamp"] = []string{"lamp"}
			},
			wantErr: "collides with a bulb name",
		},
		{
			name: "bad api port",
			mutate: func(c *Config) {
				c.API.Port = 0
			},
			wantErr: "api.port",
		},
		{
			name: "bad qos",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.QoS = 3
			},
			wantErr: "mqtt.qos",
		},
		{
			name: "provisioner without ssid",
			mutate: func(c *Config) {
				c.Provisioner.Enabled = true
			},
			wantErr: "provisioner.ssid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BULBSYNC_MQTT_PASSWORD", "hunter2")
	t.Setenv("BULBSYNC_DATABASE_PATH", "/tmp/override.db")

	path := writeConfigFile(t, `
bulbs:
  lamp: "192.168.1.45"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Auth.Password != "hunter2" {
		t.Errorf("MQTT password override not applied")
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("Database.Path = %q, want /tmp/override.db", cfg.Database.Path)
	}
}
