// Package config loads torq settings from defaults, a torq.yaml file, a .env
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/TechXTT/torq/pkg/runtime"
)

// EnvPrefix prefixes every environment variable, e.g. TORQ_DATABASE_URL.
const EnvPrefix = "TORQ"

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "torq.yaml"

// Config holds connection and session settings.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
}

// DatabaseConfig holds connection pool settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	Driver       string `mapstructure:"driver"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// SessionConfig mirrors runtime.Options.
type SessionConfig struct {
	AutoRelease    bool `mapstructure:"auto_release"`
	CaseConversion bool `mapstructure:"case_conversion"`
	DryRun         bool `mapstructure:"dry_run"`
	LogQueries     bool `mapstructure:"log_queries"`
}

// Load reads .env (if present) and then the config file at path, or
// torq.yaml in the working directory when path is empty. Environment
// variables override the file and defaults; DATABASE_URL is honoured when
// TORQ_DATABASE_URL is unset.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("binding env: %w", err)
	}

	configPath, err := findConfigFile(path)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.url", "")
	v.SetDefault("database.driver", runtime.DriverPQ)
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 0)

	v.SetDefault("session.auto_release", true)
	v.SetDefault("session.case_conversion", false)
	v.SetDefault("session.dry_run", false)
	v.SetDefault("session.log_queries", false)
}

// findConfigFile validates an explicit path or falls back to DefaultFile
// when it exists.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}
	path := filepath.Join(cwd, DefaultFile)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return "", nil
}

// Validate checks values that would otherwise fail at connect time.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case runtime.DriverPQ, runtime.DriverPgx:
	default:
		return fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database: pool limits must not be negative")
	}
	return nil
}

// Pool returns the connection settings for runtime.Open.
func (c *Config) Pool() runtime.PoolConfig {
	return runtime.PoolConfig{
		Driver:       c.Database.Driver,
		DSN:          c.Database.URL,
		MaxOpenConns: c.Database.MaxOpenConns,
		MaxIdleConns: c.Database.MaxIdleConns,
	}
}

// SessionOptions returns the session settings. The logger is left unset.
func (c *Config) SessionOptions() runtime.Options {
	return runtime.Options{
		KeepConnection: !c.Session.AutoRelease,
		CaseConversion: c.Session.CaseConversion,
		DryRun:         c.Session.DryRun,
		LogQueries:     c.Session.LogQueries,
	}
}
