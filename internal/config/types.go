// Package config provides startup-time configuration for pgstar. It is
// decoupled from CLI concerns so embedding programs can load the same file
// and environment settings without pulling in cobra.
package config

import (
	"fmt"
	"log/slog"

	"github.com/pgstar/pgstar/pkg/codec"
)

// Config holds all startup-time settings. Conversion behavior is fixed at
// load time; there are no per-call overrides.
type Config struct {
	// CheckIntegerOverflow range-checks narrow integer targets instead of
	// truncating out-of-range input.
	CheckIntegerOverflow bool `koanf:"check_integer_overflow"`

	// Int64Mode is "exact" or "graceful".
	Int64Mode string `koanf:"int64_mode"`

	// JSONStrategy is "direct" or "text".
	JSONStrategy string `koanf:"json_strategy"`

	// StrictJSONLeaves makes unconvertible JSON leaves a hard error.
	StrictJSONLeaves bool `koanf:"strict_json_leaves"`

	// DatabaseEncoding is the engine's server encoding name.
	DatabaseEncoding string `koanf:"database_encoding"`

	Catalog CatalogConfig `koanf:"catalog"`
	Logging LoggingConfig `koanf:"logging"`
}

// CatalogConfig selects the type catalog backend.
type CatalogConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `koanf:"backend"`

	// Path is the database file for the sqlite backend.
	Path string `koanf:"path"`
}

// LoggingConfig holds diagnostic output settings.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `koanf:"level"`

	// Format is "text" or "json".
	Format string `koanf:"format"`
}

// Validate checks that every enumerated setting holds a known value.
func (c *Config) Validate() error {
	switch c.Int64Mode {
	case "exact", "graceful":
	default:
		return fmt.Errorf("int64_mode must be exact or graceful, got %q", c.Int64Mode)
	}
	switch c.JSONStrategy {
	case "direct", "text":
	default:
		return fmt.Errorf("json_strategy must be direct or text, got %q", c.JSONStrategy)
	}
	switch c.Catalog.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("catalog.backend must be memory or sqlite, got %q", c.Catalog.Backend)
	}
	if c.Catalog.Backend == "sqlite" && c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required for the sqlite backend")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// CodecOptions converts the loaded settings to conversion options.
func (c *Config) CodecOptions() codec.Options {
	opts := codec.Options{
		CheckIntegerOverflow: c.CheckIntegerOverflow,
		StrictJSONLeaves:     c.StrictJSONLeaves,
		DatabaseEncoding:     c.DatabaseEncoding,
	}
	if c.Int64Mode == "graceful" {
		opts.Int64 = codec.Int64Graceful
	}
	if c.JSONStrategy == "text" {
		opts.JSON = codec.JSONTextRelay
	}
	return opts
}

// LogLevel converts the configured level name to a slog level.
func (c *Config) LogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
