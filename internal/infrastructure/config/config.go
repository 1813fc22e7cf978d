package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for bulbsync.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bulbs       map[string]string   `yaml:"bulbs"`
	Groups      map[string][]string `yaml:"groups"`
	Transport   TransportConfig     `yaml:"transport"`
	Engine      EngineConfig        `yaml:"engine"`
	Poller      PollerConfig        `yaml:"poller"`
	API         APIConfig           `yaml:"api"`
	WebSocket   WebSocketConfig     `yaml:"websocket"`
	MQTT        MQTTConfig          `yaml:"mqtt"`
	InfluxDB    InfluxDBConfig      `yaml:"influxdb"`
	Database    DatabaseConfig      `yaml:"database"`
	Provisioner ProvisionerConfig   `yaml:"provisioner"`
	Logging     LoggingConfig       `yaml:"logging"`
}

// TransportConfig contains device socket timings.
type TransportConfig struct {
	Port           int `yaml:"port"`
	ConnectTimeout int `yaml:"connect_timeout"` // seconds
	ReadTimeout    int `yaml:"read_timeout"`    // seconds
}

// EngineConfig contains synchronisation engine timings.
type EngineConfig struct {
	// MinCommandInterval is the minimum spacing between consecutive
	// transport commands to the same bulb, in milliseconds.
	MinCommandInterval int `yaml:"min_command_interval_ms"`

	// GroupCommandSpacing is the pause between bulbs during a group
	// fan-out, in milliseconds. Bounds the connection burst a network
	// segment sees when a group command hits many bulbs.
	GroupCommandSpacing int `yaml:"group_command_spacing_ms"`

	// RecentCommandGuard suppresses a refresh's network query when a
	// command was sent to the bulb this recently, in seconds.
	RecentCommandGuard int `yaml:"recent_command_guard"`

	// RefreshAllTimeout bounds ForceRefreshAll, in seconds.
	RefreshAllTimeout int `yaml:"refresh_all_timeout"`
}

// PollerConfig contains adaptive background poller settings.
type PollerConfig struct {
	Enabled bool `yaml:"enabled"`

	// Cadence is the outer loop interval in seconds.
	Cadence int `yaml:"cadence"`

	// SkipAfterCommand skips scheduling a poll for a bulb commanded this
	// recently, in seconds. Deliberately coarser than the engine's
	// recent_command_guard; the two are independent knobs.
	SkipAfterCommand int `yaml:"skip_after_command"`

	// RoundTimeout bounds one concurrent poll round, in seconds.
	RoundTimeout int `yaml:"round_timeout"`

	// MaxConcurrent limits refreshes in flight during a round.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB telemetry settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DatabaseConfig contains SQLite state-history settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// ProvisionerConfig contains Wi-Fi bulb provisioning settings.
type ProvisionerConfig struct {
	Enabled bool `yaml:"enabled"`

	// Interface is the wireless interface used to join bulb APs.
	Interface string `yaml:"interface"`

	// SSID and Key are the home network credentials pushed to the bulb.
	SSID string `yaml:"ssid"`
	Key  string `yaml:"key"`

	// WatchInterval is the seconds between AP scans in watch mode.
	WatchInterval int `yaml:"watch_interval"`

	// MACToName maps bulb MAC addresses (colon-separated, upper case) to
	// configured bulb names so a freshly provisioned bulb can be probed
	// at its expected address.
	MACToName map[string]string `yaml:"mac_to_name"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BULBSYNC_SECTION_KEY
// For example: BULBSYNC_API_PORT, BULBSYNC_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bulbs:  map[string]string{},
		Groups: map[string][]string{},
		Transport: TransportConfig{
			Port:           5577,
			ConnectTimeout: 3,
			ReadTimeout:    2,
		},
		Engine: EngineConfig{
			MinCommandInterval:  120,
			GroupCommandSpacing: 20,
			RecentCommandGuard:  5,
			RefreshAllTimeout:   30,
		},
		Poller: PollerConfig{
			Enabled:          true,
			Cadence:          10,
			SkipAfterCommand: 10,
			RoundTimeout:     30,
			MaxConcurrent:    8,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "bulbsync",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/bulbsync.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Provisioner: ProvisionerConfig{
			Interface:     "wlan0",
			WatchInterval: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BULBSYNC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("BULBSYNC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("BULBSYNC_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// MQTT
	if v := os.Getenv("BULBSYNC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BULBSYNC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BULBSYNC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("BULBSYNC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Database
	if v := os.Getenv("BULBSYNC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Provisioner credentials
	if v := os.Getenv("BULBSYNC_WIFI_SSID"); v != "" {
		cfg.Provisioner.SSID = v
	}
	if v := os.Getenv("BULBSYNC_WIFI_KEY"); v != "" {
		cfg.Provisioner.Key = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Bulb addresses must parse as IPs or resolvable host strings; an
	// empty address would silently produce a bulb that never connects.
	for name, addr := range c.Bulbs {
		if name == "" {
			errs = append(errs, "bulbs: bulb name cannot be empty")
			continue
		}
		if addr == "" {
			errs = append(errs, fmt.Sprintf("bulbs.%s: address is required", name))
			continue
		}
		if ip := net.ParseIP(addr); ip == nil && strings.ContainsAny(addr, " /") {
			errs = append(errs, fmt.Sprintf("bulbs.%s: %q is not a valid address", name, addr))
		}
	}

	// Group names must not shadow bulb names; the resolver treats the
	// union as one target namespace and a collision would be ambiguous.
	for group := range c.Groups {
		if _, exists := c.Bulbs[group]; exists {
			errs = append(errs, fmt.Sprintf("groups.%s: name collides with a bulb name", group))
		}
	}

	if c.Transport.Port < 1 || c.Transport.Port > 65535 {
		errs = append(errs, "transport.port must be between 1 and 65535")
	}
	if c.Engine.MinCommandInterval < 0 {
		errs = append(errs, "engine.min_command_interval_ms must not be negative")
	}
	if c.Poller.Cadence < 1 {
		errs = append(errs, "poller.cadence must be at least 1 second")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Provisioner.Enabled && c.Provisioner.SSID == "" {
		errs = append(errs, "provisioner.ssid is required when the provisioner is enabled (set BULBSYNC_WIFI_SSID)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetConnectTimeout returns the transport connect timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Transport.ConnectTimeout) * time.Second
}

// GetReadTimeout returns the transport read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Transport.ReadTimeout) * time.Second
}
