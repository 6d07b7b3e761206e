// Package config loads rowmap's CLI configuration from rowmap.yml, with
// environment variable overrides.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config represents the rowmap configuration
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StoreConfig selects and configures the backing column store
type StoreConfig struct {
	// Backend is "redis" or "sqlite"
	Backend string       `mapstructure:"backend"`
	Redis   RedisConfig  `mapstructure:"redis"`
	SQLite  SQLiteConfig `mapstructure:"sqlite"`
}

// RedisConfig represents Redis connection configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// SQLiteConfig represents SQLite configuration
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads the configuration from rowmap.yml or rowmap.yaml
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("store.backend", "redis")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.prefix", "rowmap:")
	v.SetDefault("store.sqlite.path", "rowmap.db")
	v.SetDefault("logging.level", "info")

	v.SetConfigName("rowmap")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ROWMAP")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Store.Backend {
	case "redis", "sqlite":
	default:
		return fmt.Errorf("store.backend must be redis or sqlite, got: %s", cfg.Store.Backend)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got: %s", cfg.Logging.Level)
	}
	return nil
}
