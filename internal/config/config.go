// Package config loads the clamdctl configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the clamdctl settings. Flags override anything loaded here.
type Config struct {
	// Address is the daemon endpoint: "unix:///path", "tcp://host:port", a
	// bare socket path, or host:port.
	Address string `toml:"address"`
	// TimeoutSeconds bounds every connect/read/write; 0 blocks indefinitely.
	TimeoutSeconds float64 `toml:"timeout_seconds"`
	// ChunkSize is the INSTREAM upload chunk size in bytes.
	ChunkSize int `toml:"chunk_size"`
	// Framing is "newline" or "null", matching the daemon configuration.
	Framing string `toml:"framing"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		Address:        "unix:///var/run/clamav/clamd.ctl",
		TimeoutSeconds: 30,
		ChunkSize:      8192,
		Framing:        "newline",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "clamdctl", "config.toml")
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file at the default location falls back to Default; an
// explicitly named file must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a command.
func (c Config) Validate() error {
	if c.Address == "" {
		return errors.New("address must not be empty")
	}
	if c.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds must not be negative")
	}
	if c.ChunkSize < 0 {
		return errors.New("chunk_size must not be negative")
	}
	switch c.Framing {
	case "newline", "null":
	default:
		return fmt.Errorf("framing must be \"newline\" or \"null\", got %q", c.Framing)
	}
	return nil
}

// Timeout converts the configured seconds to a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}
