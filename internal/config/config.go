// Package config loads client settings from a YAML file, SPLITSYNC_*
// environment variables, and built-in defaults, in that order of
// precedence from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all settings of the client.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig points at the remote ledger service.
type ServerConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects the durable store for the cache and the queue.
type StorageConfig struct {
	// Backend is one of "sqlite", "badger", or "memory".
	Backend string `mapstructure:"backend"`
	// Path is the data directory. Ignored by the memory backend.
	Path string `mapstructure:"path"`
}

// SyncConfig tunes the background connectivity probe.
type SyncConfig struct {
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
}

// DefaultDir is where config and data live unless overridden.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".splitsync"
	}
	return filepath.Join(home, ".splitsync")
}

// Load reads configuration. With an empty path it looks for
// config.yaml in DefaultDir and the working directory; a missing file
// is fine then, defaults apply. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.url", "http://localhost:8080")
	v.SetDefault("server.timeout", "15s")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", DefaultDir())
	v.SetDefault("sync.probe_interval", "30s")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("SPLITSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultDir())
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	switch c.Storage.Backend {
	case "sqlite", "badger", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q, want sqlite, badger, or memory", c.Storage.Backend)
	}
	if c.Storage.Backend != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if c.Sync.ProbeInterval <= 0 {
		return fmt.Errorf("sync.probe_interval must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}
