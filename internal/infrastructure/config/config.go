package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable override.
const EnvPrefix = "REPLAYOBSERVER_"

// Config is the root configuration structure for the replay observer.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt" envPrefix:"MQTT_"`
	Logging  LoggingConfig  `yaml:"logging" envPrefix:"LOG_"`
	InfluxDB InfluxDBConfig `yaml:"influxdb" envPrefix:"INFLUXDB_"`
	Journal  JournalConfig  `yaml:"journal" envPrefix:"JOURNAL_"`
}

// MQTTConfig contains MQTT broker connection settings and the replay topic.
//
// It is loaded once and treated as immutable; bridges receive it by value.
type MQTTConfig struct {
	Broker   MQTTBrokerConfig  `yaml:"broker"`
	Auth     MQTTAuthConfig    `yaml:"auth"`
	Topic    string            `yaml:"topic" env:"TOPIC"`
	Timeouts MQTTTimeoutConfig `yaml:"timeouts"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	TLS      bool   `yaml:"tls" env:"TLS"`
	ClientID string `yaml:"client_id" env:"CLIENT_ID"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
}

// MQTTTimeoutConfig bounds broker round-trips.
//
// Zero values mean "wait until the broker answers": connect, publish and
// disconnect block the caller for as long as the transport does.
type MQTTTimeoutConfig struct {
	Connect           int `yaml:"connect"`            // seconds
	Publish           int `yaml:"publish"`            // seconds
	DisconnectQuiesce int `yaml:"disconnect_quiesce"` // milliseconds
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	Output string `yaml:"output" env:"OUTPUT"`
}

// InfluxDBConfig contains InfluxDB connection settings for delivery metrics.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled" env:"ENABLED"`
	URL           string `yaml:"url" env:"URL"`
	Token         string `yaml:"token" env:"TOKEN"`
	Org           string `yaml:"org" env:"ORG"`
	Bucket        string `yaml:"bucket" env:"BUCKET"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// JournalConfig contains settings for the SQLite session journal.
type JournalConfig struct {
	Enabled     bool   `yaml:"enabled" env:"ENABLED"`
	Path        string `yaml:"path" env:"PATH"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. .env file in the working directory, if present
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: REPLAYOBSERVER_SECTION_KEY
// For example: REPLAYOBSERVER_MQTT_HOST, REPLAYOBSERVER_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// A missing .env is the normal case outside development.
	_ = godotenv.Load() //nolint:errcheck // optional file

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 8883,
				TLS:  true,
			},
			Timeouts: MQTTTimeoutConfig{
				DisconnectQuiesce: 250,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Journal: JournalConfig{
			Path:        "./data/replay-observer.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
	}
}

// applyEnvOverrides applies REPLAYOBSERVER_* environment variables on top of
// the file values. Unset variables leave the loaded value untouched.
func applyEnvOverrides(cfg *Config) error {
	return env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix})
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if strings.TrimSpace(c.MQTT.Broker.Host) == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if strings.TrimSpace(c.MQTT.Topic) == "" {
		errs = append(errs, "mqtt.topic is required")
	}
	if c.MQTT.Timeouts.Connect < 0 || c.MQTT.Timeouts.Publish < 0 || c.MQTT.Timeouts.DisconnectQuiesce < 0 {
		errs = append(errs, "mqtt.timeouts must not be negative")
	}

	// InfluxDB validation (only when enabled)
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	// Journal validation (only when enabled)
	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, "journal.path is required when journal is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ConnectTimeout returns the connect timeout as a Duration (0 = no timeout).
func (c MQTTConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.Timeouts.Connect) * time.Second
}

// PublishTimeout returns the publish timeout as a Duration (0 = no timeout).
func (c MQTTConfig) PublishTimeout() time.Duration {
	return time.Duration(c.Timeouts.Publish) * time.Second
}

// BrokerAddress returns host:port for log lines.
func (c MQTTConfig) BrokerAddress() string {
	return fmt.Sprintf("%s:%d", c.Broker.Host, c.Broker.Port)
}
