package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/casestudio/pkg/auth"
	"github.com/JaimeStill/casestudio/pkg/database"
	"github.com/JaimeStill/casestudio/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvCasestudioEnv             = "CASESTUDIO_ENV"
	EnvCasestudioShutdownTimeout = "CASESTUDIO_SHUTDOWN_TIMEOUT"
	EnvCasestudioVersion         = "CASESTUDIO_VERSION"
	EnvTelemetryBuffer           = "CASESTUDIO_TELEMETRY_BUFFER"
)

var databaseEnv = &database.Env{
	Host:             "CASESTUDIO_DB_HOST",
	Port:             "CASESTUDIO_DB_PORT",
	Name:             "CASESTUDIO_DB_NAME",
	User:             "CASESTUDIO_DB_USER",
	Password:         "CASESTUDIO_DB_PASSWORD",
	SSLMode:          "CASESTUDIO_DB_SSL_MODE",
	ApplicationName:  "CASESTUDIO_DB_APPLICATION_NAME",
	StatementTimeout: "CASESTUDIO_DB_STATEMENT_TIMEOUT",
	MaxOpenConns:     "CASESTUDIO_DB_MAX_OPEN_CONNS",
	MaxIdleConns:     "CASESTUDIO_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime:  "CASESTUDIO_DB_CONN_MAX_LIFETIME",
	ConnTimeout:      "CASESTUDIO_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "CASESTUDIO_STORAGE_CONTAINER_NAME",
	ConnectionString: "CASESTUDIO_STORAGE_CONNECTION_STRING",
	ServiceURL:       "CASESTUDIO_STORAGE_SERVICE_URL",
}

var authEnv = &auth.Env{
	Enabled:  "CASESTUDIO_AUTH_ENABLED",
	Issuer:   "CASESTUDIO_AUTH_ISSUER",
	ClientID: "CASESTUDIO_AUTH_CLIENT_ID",
	Tokens:   "CASESTUDIO_AUTH_TOKENS",
}

// TelemetryConfig sizes the asynchronous telemetry recorder.
type TelemetryConfig struct {
	Buffer int `toml:"buffer"`
}

// Config is the root configuration for the casestudio service.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Database        database.Config  `toml:"database"`
	Storage         storage.Config   `toml:"storage"`
	API             APIConfig        `toml:"api"`
	Auth            auth.Config      `toml:"auth"`
	Generation      GenerationConfig `toml:"generation"`
	Logging         LoggingConfig    `toml:"logging"`
	Telemetry       TelemetryConfig  `toml:"telemetry"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the CASESTUDIO_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvCasestudioEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// LoadDatabase reads the same files and environment as Load but finalizes
// only the database section.
func LoadDatabase() (*database.Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Database.Finalize(databaseEnv); err != nil {
		return nil, fmt.Errorf("finalize config: database: %w", err)
	}

	return &cfg.Database, nil
}

func read() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Auth.Merge(&overlay.Auth)
	c.Generation.Merge(&overlay.Generation)
	c.Logging.Merge(&overlay.Logging)
	if overlay.Telemetry.Buffer > 0 {
		c.Telemetry.Buffer = overlay.Telemetry.Buffer
	}
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Generation.Finalize(); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	if err := c.Logging.Finalize(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.Telemetry.Buffer <= 0 {
		c.Telemetry.Buffer = 256
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvCasestudioShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvCasestudioVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvTelemetryBuffer); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Telemetry.Buffer = n
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	if c.Telemetry.Buffer < 1 {
		return fmt.Errorf("telemetry buffer must be positive")
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvCasestudioEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
