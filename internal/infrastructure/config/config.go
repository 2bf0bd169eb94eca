package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment profiles.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// profileSessionTTL is the default session lifetime per environment, in seconds.
var profileSessionTTL = map[string]int{
	EnvDevelopment: 3600,
	EnvProduction:  28800,
	EnvTesting:     1800,
}

// Config is the root configuration structure.
type Config struct {
	Site        SiteConfig     `yaml:"site"`
	Environment string         `yaml:"environment"`
	Database    DatabaseConfig `yaml:"database"`
	MQTT        MQTTConfig     `yaml:"mqtt"`
	API         APIConfig      `yaml:"api"`
	InfluxDB    InfluxDBConfig `yaml:"influxdb"`
	Logging     LoggingConfig  `yaml:"logging"`
	Security    SecurityConfig `yaml:"security"`
}

// SiteConfig identifies the store running this instance.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig selects and configures the user store.
type DatabaseConfig struct {
	Driver      string `yaml:"driver"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// DSN is the PostgreSQL connection string, used when Driver is "postgres".
	DSN string `yaml:"dsn"`
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

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
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

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig groups session and password settings.
type SecurityConfig struct {
	Session  SessionConfig  `yaml:"session"`
	Password PasswordConfig `yaml:"password"`
}

// SessionConfig controls the in-memory session table. All values are seconds.
type SessionConfig struct {
	// TTL is the session lifetime. 0 selects the environment profile default.
	TTL int `yaml:"ttl"`

	// SweepInterval is how often expired sessions are purged. 0 disables
	// the background sweep; expired tokens are still rejected on read.
	SweepInterval int `yaml:"sweep_interval"`

	// StatsInterval is how often auth counters are published.
	StatsInterval int `yaml:"stats_interval"`
}

// PasswordConfig bounds password hashing work.
type PasswordConfig struct {
	// MaxConcurrentHashes limits simultaneous hash/verify calls. 0 means one per CPU.
	MaxConcurrentHashes int `yaml:"max_concurrent_hashes"`
}

// Load reads configuration from a YAML file and applies environment overrides.
//
// The loading order is:
//  1. Default values
//  2. YAML file values
//  3. BACKOFFICE_* environment variables
//
// An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "store-001",
			Name: "Back Office",
		},
		Environment: EnvProduction,
		Database: DatabaseConfig{
			Driver:      DriverSQLite,
			Path:        "./data/backoffice.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "backoffice-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "backoffice",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			Session: SessionConfig{
				SweepInterval: 600,
				StatsInterval: 60,
			},
		},
	}
}

// applyEnvOverrides applies BACKOFFICE_SECTION_KEY environment variables.
func applyEnvOverrides(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []error
	setInt := func(key string, dst *int) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
			return
		}
		*dst = n
	}

	setString("BACKOFFICE_ENVIRONMENT", &cfg.Environment)

	setString("BACKOFFICE_DATABASE_DRIVER", &cfg.Database.Driver)
	setString("BACKOFFICE_DATABASE_PATH", &cfg.Database.Path)
	setString("BACKOFFICE_DATABASE_DSN", &cfg.Database.DSN)

	setString("BACKOFFICE_MQTT_HOST", &cfg.MQTT.Broker.Host)
	setString("BACKOFFICE_MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	setString("BACKOFFICE_MQTT_PASSWORD", &cfg.MQTT.Auth.Password)

	setString("BACKOFFICE_API_HOST", &cfg.API.Host)
	setInt("BACKOFFICE_API_PORT", &cfg.API.Port)

	setString("BACKOFFICE_INFLUXDB_TOKEN", &cfg.InfluxDB.Token)

	setString("BACKOFFICE_LOG_LEVEL", &cfg.Logging.Level)

	setInt("BACKOFFICE_SESSION_TTL", &cfg.Security.Session.TTL)

	return errors.Join(errs...)
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if _, ok := profileSessionTTL[c.Environment]; !ok {
		errs = append(errs, "environment must be development, production or testing")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, "database.dsn is required for the postgres driver (set BACKOFFICE_DATABASE_DSN)")
		}
	default:
		errs = append(errs, "database.driver must be sqlite or postgres")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		errs = append(errs, "api.tls.cert_file and api.tls.key_file are required when TLS is enabled")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when enabled")
	}

	s := c.Security.Session
	if s.TTL < 0 {
		errs = append(errs, "security.session.ttl must not be negative")
	}
	if s.SweepInterval < 0 {
		errs = append(errs, "security.session.sweep_interval must not be negative")
	}
	if s.StatsInterval < 0 {
		errs = append(errs, "security.session.stats_interval must not be negative")
	}
	if c.Security.Password.MaxConcurrentHashes < 0 {
		errs = append(errs, "security.password.max_concurrent_hashes must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// SessionTTL returns the configured session lifetime, falling back to the
// environment profile default.
func (c *Config) SessionTTL() time.Duration {
	ttl := c.Security.Session.TTL
	if ttl == 0 {
		ttl = profileSessionTTL[c.Environment]
	}
	return time.Duration(ttl) * time.Second
}

// SweepInterval returns the background sweep period; 0 means disabled.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Security.Session.SweepInterval) * time.Second
}

// StatsInterval returns the auth stats publishing period; 0 means disabled.
func (c *Config) StatsInterval() time.Duration {
	return time.Duration(c.Security.Session.StatsInterval) * time.Second
}

// GetReadTimeout returns the read timeout as a Duration.
func (t APITimeoutConfig) GetReadTimeout() time.Duration {
	return time.Duration(t.Read) * time.Second
}

// GetWriteTimeout returns the write timeout as a Duration.
func (t APITimeoutConfig) GetWriteTimeout() time.Duration {
	return time.Duration(t.Write) * time.Second
}

// GetIdleTimeout returns the idle timeout as a Duration.
func (t APITimeoutConfig) GetIdleTimeout() time.Duration {
	return time.Duration(t.Idle) * time.Second
}
