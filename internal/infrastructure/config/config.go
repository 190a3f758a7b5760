package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Amparo Core.
// All configuration is loaded from YAML and secrets can be overridden
// by environment variables.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	Security  SecurityConfig  `yaml:"security"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Pairing   PairingConfig   `yaml:"pairing"`
	Notify    NotifyConfig    `yaml:"notify"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig contains service identity information.
type ServiceConfig struct {
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// SecurityConfig contains authentication settings.
type SecurityConfig struct {
	// JWTSecret signs/verifies caregiver bearer tokens (HS256).
	// Override with AMPARO_JWT_SECRET.
	JWTSecret string `yaml:"jwt_secret"`

	// AuthScanLimit bounds the candidate set for device credential
	// resolution. Exceeding it without a match is an authentication
	// failure, not an error.
	AuthScanLimit int `yaml:"auth_scan_limit"`
}

// IngestionConfig contains event ingestion settings.
type IngestionConfig struct {
	// MaxEventsPerDevice is the retention cap: only the newest N fall
	// events are kept per device.
	MaxEventsPerDevice int `yaml:"max_events_per_device"`

	// PostIngestTimeout bounds retention and notification work that
	// runs after an event is persisted (seconds).
	PostIngestTimeout int `yaml:"post_ingest_timeout"`
}

// PairingConfig contains device pairing settings.
type PairingConfig struct {
	// PairCodeTTL is how long an issued one-time pair code stays
	// valid (seconds).
	PairCodeTTL int `yaml:"pair_code_ttl"`
}

// NotifyConfig contains notification fanout settings.
type NotifyConfig struct {
	// Channel selects the delivery transport: "mqtt", "fcm" or "none".
	Channel string `yaml:"channel"`

	// Workers bounds fanout parallelism.
	Workers int `yaml:"workers"`

	// AttemptTimeout is the per-recipient delivery timeout (seconds).
	AttemptTimeout int `yaml:"attempt_timeout"`

	// FCMCredentials is the Google service account JSON used when
	// channel is "fcm". Override with AMPARO_FCM_CREDENTIALS.
	FCMCredentials string `yaml:"fcm_credentials"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      int    `yaml:"qos"`
}

// TelemetryConfig contains InfluxDB telemetry settings.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file at the given path.
//
// Environment overrides applied after parsing:
//   - AMPARO_JWT_SECRET      -> security.jwt_secret
//   - AMPARO_MQTT_PASSWORD   -> mqtt.password
//   - AMPARO_INFLUX_TOKEN    -> telemetry.token
//   - AMPARO_FCM_CREDENTIALS -> notify.fcm_credentials
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with sensible defaults so a
// minimal YAML file is enough to run.
func defaults() *Config {
	return &Config{
		Service: ServiceConfig{Name: "amparo-core"},
		Database: DatabaseConfig{
			Path:        "data/amparo.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host:     "0.0.0.0",
			Port:     8080,
			Timeouts: APITimeoutConfig{Read: 15, Write: 15, Idle: 60},
		},
		Security: SecurityConfig{AuthScanLimit: 1000},
		Ingestion: IngestionConfig{
			MaxEventsPerDevice: 500,
			PostIngestTimeout:  30,
		},
		Pairing: PairingConfig{PairCodeTTL: 600},
		Notify: NotifyConfig{
			Channel:        "none",
			Workers:        4,
			AttemptTimeout: 5,
		},
		MQTT: MQTTConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "amparo-core",
			QoS:      1,
		},
		Telemetry: TelemetryConfig{BatchSize: 100, FlushInterval: 10},
		Logging:   LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

// applyEnvOverrides replaces secret values with environment variables
// when set, keeping secrets out of the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AMPARO_JWT_SECRET"); v != "" {
		cfg.Security.JWTSecret = v
	}
	if v := os.Getenv("AMPARO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("AMPARO_INFLUX_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
	if v := os.Getenv("AMPARO_FCM_CREDENTIALS"); v != "" {
		cfg.Notify.FCMCredentials = v
	}
}

// Validate checks the configuration for values that would prevent the
// service from starting correctly.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be between 1 and 65535, got %d", c.API.Port)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required (set AMPARO_JWT_SECRET)")
	}
	if c.Security.AuthScanLimit <= 0 {
		return fmt.Errorf("security.auth_scan_limit must be positive")
	}
	if c.Ingestion.MaxEventsPerDevice <= 0 {
		return fmt.Errorf("ingestion.max_events_per_device must be positive")
	}
	switch c.Notify.Channel {
	case "mqtt", "fcm", "none":
	default:
		return fmt.Errorf("notify.channel must be mqtt, fcm or none, got %q", c.Notify.Channel)
	}
	if c.Notify.Channel == "fcm" && c.Notify.FCMCredentials == "" {
		return fmt.Errorf("notify.fcm_credentials is required when notify.channel is fcm")
	}
	if c.Telemetry.Enabled && c.Telemetry.URL == "" {
		return fmt.Errorf("telemetry.url is required when telemetry is enabled")
	}
	return nil
}
