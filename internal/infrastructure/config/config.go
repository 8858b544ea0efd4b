package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for graydb.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig selects a registered driver and describes how to reach it.
//
// Path is used by the SQLite drivers; Host, Port, User, Password and Schema
// by the server drivers. Params are passed to the driver's DSN unchanged.
type DatabaseConfig struct {
	Driver      string            `yaml:"driver"`
	Path        string            `yaml:"path"`
	Host        string            `yaml:"host"`
	Port        int               `yaml:"port"`
	User        string            `yaml:"user"`
	Password    string            `yaml:"password"`
	Schema      string            `yaml:"schema"`
	Params      map[string]string `yaml:"params"`
	WALMode     bool              `yaml:"wal_mode"`
	BusyTimeout int               `yaml:"busy_timeout"`

	// Attributes are initial connection attributes keyed by canonical name,
	// e.g. errmode: warning, case: lower, timeout: 10.
	Attributes map[string]any `yaml:"attributes"`
}

// SessionConfig contains session storage settings.
type SessionConfig struct {
	Handler     string `yaml:"handler"` // "db" or "file"
	Name        string `yaml:"name"`
	Table       string `yaml:"table"`
	SavePath    string `yaml:"save_path"`
	MaxLifetime int    `yaml:"max_lifetime"` // seconds
	GCInterval  int    `yaml:"gc_interval"`  // seconds
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

// APIConfig contains admin HTTP server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
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
// Environment variables follow the pattern: GRAYDB_SECTION_KEY
// For example: GRAYDB_DATABASE_DRIVER, GRAYDB_DATABASE_PASSWORD
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

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied. It is used when no config file is given.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:      "sqlite3",
			Path:        "./data/graydb.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Session: SessionConfig{
			Handler:     "db",
			Name:        "GRAYDBSESSID",
			Table:       "sessions",
			MaxLifetime: 1440,
			GCInterval:  300,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graydb",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8089,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "graydb",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// envOverrides maps GRAYDB_SECTION_KEY variables onto fields. Empty
// variables are ignored, as are ports that do not parse.
var envOverrides = []struct {
	name  string
	apply func(cfg *Config, v string)
}{
	{"GRAYDB_DATABASE_DRIVER", func(c *Config, v string) { c.Database.Driver = v }},
	{"GRAYDB_DATABASE_PATH", func(c *Config, v string) { c.Database.Path = v }},
	{"GRAYDB_DATABASE_HOST", func(c *Config, v string) { c.Database.Host = v }},
	{"GRAYDB_DATABASE_PORT", func(c *Config, v string) { setPort(&c.Database.Port, v) }},
	{"GRAYDB_DATABASE_USER", func(c *Config, v string) { c.Database.User = v }},
	{"GRAYDB_DATABASE_PASSWORD", func(c *Config, v string) { c.Database.Password = v }},
	{"GRAYDB_DATABASE_SCHEMA", func(c *Config, v string) { c.Database.Schema = v }},
	{"GRAYDB_MQTT_HOST", func(c *Config, v string) { c.MQTT.Broker.Host = v }},
	{"GRAYDB_MQTT_USERNAME", func(c *Config, v string) { c.MQTT.Auth.Username = v }},
	{"GRAYDB_MQTT_PASSWORD", func(c *Config, v string) { c.MQTT.Auth.Password = v }},
	{"GRAYDB_API_HOST", func(c *Config, v string) { c.API.Host = v }},
	{"GRAYDB_INFLUXDB_TOKEN", func(c *Config, v string) { c.InfluxDB.Token = v }},
	{"GRAYDB_LOG_LEVEL", func(c *Config, v string) { c.Logging.Level = v }},
}

func applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			o.apply(cfg, v)
		}
	}
}

func setPort(dst *int, v string) {
	if port, err := strconv.Atoi(v); err == nil {
		*dst = port
	}
}

// Validate checks the configuration for errors.
//
// All problems are collected so a single run reports every mistake.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.Driver == "" {
		errs = append(errs, "database.driver is required")
	}
	if isSQLite(c.Database.Driver) {
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for "+c.Database.Driver)
		}
	} else if c.Database.Driver != "" && c.Database.Host == "" {
		errs = append(errs, "database.host is required for "+c.Database.Driver)
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		errs = append(errs, "database.port must be between 0 and 65535")
	}
	if c.Database.BusyTimeout < 0 {
		errs = append(errs, "database.busy_timeout must not be negative")
	}
	if _, err := parseAttributes(c.Database.Attributes); err != nil {
		errs = append(errs, err.Error())
	}

	// Session validation
	switch c.Session.Handler {
	case "db":
		if c.Session.Table == "" {
			errs = append(errs, "session.table is required for the db handler")
		}
	case "file":
		if c.Session.SavePath == "" {
			errs = append(errs, "session.save_path is required for the file handler")
		}
	default:
		errs = append(errs, "session.handler must be db or file")
	}
	if c.Session.MaxLifetime < 1 {
		errs = append(errs, "session.max_lifetime must be positive")
	}
	if c.Session.GCInterval < 0 {
		errs = append(errs, "session.gc_interval must not be negative")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	// Metrics validation
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		errs = append(errs, "metrics.namespace is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// ReadTimeout also bounds reading request headers.
func (a APIConfig) ReadTimeout() time.Duration  { return seconds(a.Timeouts.Read) }
func (a APIConfig) WriteTimeout() time.Duration { return seconds(a.Timeouts.Write) }
func (a APIConfig) IdleTimeout() time.Duration  { return seconds(a.Timeouts.Idle) }

// Lifetime is how long an untouched session survives garbage collection.
func (s SessionConfig) Lifetime() time.Duration { return seconds(s.MaxLifetime) }

// GCPeriod is the interval between collections. Zero disables them.
func (s SessionConfig) GCPeriod() time.Duration { return seconds(s.GCInterval) }

func isSQLite(driver string) bool {
	return driver == "sqlite3" || driver == "sqlite"
}
