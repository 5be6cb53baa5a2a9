// Package config loads server and CLI settings from defaults, an optional
// YAML file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig configures the RPC host.
type ServerConfig struct {
	Port int `mapstructure:"port"`

	// Settle a rotation cycle as soon as its last payout is processed.
	AutoSettle bool `mapstructure:"auto_settle"`

	LeaseTTL time.Duration `mapstructure:"lease_ttl"`
}

// DatabaseConfig selects and configures the storage adapter.
type DatabaseConfig struct {
	// sqlite, postgres or memory
	Driver      string `mapstructure:"driver"`
	Path        string `mapstructure:"path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// RedisConfig configures the settlement lease. An empty Addr selects the
// in-process lease.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig configures bearer token validation.
type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	Disabled bool          `mapstructure:"disabled"`
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8080,
			LeaseTTL: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "./data/stokvel.db",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

var envBindings = map[string]string{
	"server.port":           "PORT",
	"server.auto_settle":    "AUTO_SETTLE",
	"server.lease_ttl":      "LEASE_TTL",
	"database.driver":       "DB_DRIVER",
	"database.path":         "DB_PATH",
	"database.postgres_dsn": "POSTGRES_DSN",
	"redis.addr":            "REDIS_ADDR",
	"redis.password":        "REDIS_PASSWORD",
	"redis.db":              "REDIS_DB",
	"auth.secret":           "JWT_SECRET",
	"auth.token_ttl":        "TOKEN_TTL",
	"auth.disabled":         "AUTH_DISABLED",
	"log.level":             "LOG_LEVEL",
	"log.format":            "LOG_FORMAT",
}

// Load builds a Config. path may be empty, in which case only defaults and
// the environment apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.LeaseTTL <= 0 {
		return errors.New("lease_ttl must be positive")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("sqlite driver requires database.path")
		}
	case DriverPostgres:
		if c.Database.PostgresDSN == "" {
			return errors.New("postgres driver requires database.postgres_dsn")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if !c.Auth.Disabled && c.Auth.Secret == "" {
		return errors.New("auth.secret is required unless auth.disabled is set")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("token_ttl must be positive")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
