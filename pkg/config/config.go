// Package config loads ferdinand settings from an optional YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "ferdinand.yaml"

// Config holds all configuration for ferdinand.
// Environment variables always override YAML values.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Import   ImportConfig   `yaml:"import"`
	// Dictionary is where seed-definitions looks for, or downloads, JMdict.
	Dictionary string `yaml:"dictionary" env:"FERDINAND_DICTIONARY" env-default:"jmdict-eng-common.json"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path        string        `yaml:"path" env:"FERDINAND_DB" env-default:"ferdinand.db"`
	BusyTimeout time.Duration `yaml:"busy_timeout" env:"FERDINAND_DB_BUSY_TIMEOUT" env-default:"5s"`
}

// LogConfig selects the logger flavour.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"FERDINAND_LOG_LEVEL" env-default:"info"`
	// Format is json (production encoder) or console (development encoder).
	Format string `yaml:"format" env:"FERDINAND_LOG_FORMAT" env-default:"console"`
}

// ImportConfig tunes article import.
type ImportConfig struct {
	Workers       int           `yaml:"workers" env:"FERDINAND_IMPORT_WORKERS" env-default:"4"`
	BatchSize     int           `yaml:"batch_size" env:"FERDINAND_IMPORT_BATCH_SIZE" env-default:"50"`
	FlushInterval time.Duration `yaml:"flush_interval" env:"FERDINAND_IMPORT_FLUSH_INTERVAL" env-default:"100ms"`
	Timeout       time.Duration `yaml:"timeout" env:"FERDINAND_IMPORT_TIMEOUT" env-default:"30s"`
	UserAgent     string        `yaml:"user_agent" env:"FERDINAND_IMPORT_USER_AGENT" env-default:""`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" env:"FERDINAND_IMPORT_MAX_BODY_BYTES" env-default:"10485760"`
}

// Load reads configuration. An explicit path must exist; an empty path falls
// back to DefaultFile when present and to the environment alone otherwise.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path must not be empty")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log format %q must be json or console", c.Log.Format)
	}
	if c.Import.Workers < 1 {
		return fmt.Errorf("import workers must be positive, got %d", c.Import.Workers)
	}
	if c.Import.BatchSize < 1 {
		return fmt.Errorf("import batch size must be positive, got %d", c.Import.BatchSize)
	}
	return nil
}

// Usage describes every environment variable, for the CLI help text.
func Usage() string {
	var b strings.Builder
	header := "Environment variables:"
	if desc, err := cleanenv.GetDescription(&Config{}, &header); err == nil {
		b.WriteString(desc)
	}
	return b.String()
}
