package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgstar/pgstar/pkg/codec"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	// An explicit but missing file is an error; loading with no file at all
	// is not.
	require.Error(t, err)

	cfg, err = Load("", nil)
	require.NoError(t, err)
	assert.False(t, cfg.CheckIntegerOverflow)
	assert.Equal(t, "exact", cfg.Int64Mode)
	assert.Equal(t, "direct", cfg.JSONStrategy)
	assert.Equal(t, "UTF8", cfg.DatabaseEncoding)
	assert.Equal(t, "memory", cfg.Catalog.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pgstar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
check_integer_overflow: true
int64_mode: graceful
json_strategy: text
catalog:
  backend: sqlite
  path: /tmp/catalog.db
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.True(t, cfg.CheckIntegerOverflow)
	assert.Equal(t, "graceful", cfg.Int64Mode)
	assert.Equal(t, "text", cfg.JSONStrategy)
	assert.Equal(t, "sqlite", cfg.Catalog.Backend)
	assert.Equal(t, "/tmp/catalog.db", cfg.Catalog.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pgstar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("int64_mode: exact\n"), 0o644))

	t.Setenv("PGSTAR_INT64_MODE", "graceful")
	t.Setenv("PGSTAR_CATALOG__BACKEND", "memory")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "graceful", cfg.Int64Mode)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("PGSTAR_JSON_STRATEGY", "text")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("json-strategy", "direct", "")
	require.NoError(t, flags.Parse([]string{"--json-strategy=direct"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "direct", cfg.JSONStrategy)
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"int64 mode", func(c *Config) { c.Int64Mode = "fuzzy" }},
		{"json strategy", func(c *Config) { c.JSONStrategy = "binary" }},
		{"catalog backend", func(c *Config) { c.Catalog.Backend = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Catalog.Backend = "sqlite"; c.Catalog.Path = "" }},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("", nil)
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCodecOptions(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	cfg.Int64Mode = "graceful"
	cfg.JSONStrategy = "text"
	cfg.CheckIntegerOverflow = true

	opts := cfg.CodecOptions()
	assert.True(t, opts.CheckIntegerOverflow)
	assert.Equal(t, codec.Int64Graceful, opts.Int64)
	assert.Equal(t, codec.JSONTextRelay, opts.JSON)
	assert.Equal(t, "UTF8", opts.DatabaseEncoding)
}
