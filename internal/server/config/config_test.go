package config

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, StorageMemory, c.StorageDriver)
	assert.Equal(t, "stream123", c.ModeratorSecret)
	assert.Equal(t, 1000, c.Retention)
	assert.Equal(t, 20*time.Second, c.PresenceTimeout)
	assert.Equal(t, 5*time.Second, c.SweepInterval)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.NoError(t, c.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "drawsync.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"DRAWSYNC_ADDR=:7000\nDRAWSYNC_RETENTION=50\nMODERATOR_PASSWORD=from-file\nDRAWSYNC_LOG_LEVEL=debug\n",
	), 0o600))

	env := mapLookup(map[string]string{
		"DRAWSYNC_RETENTION":        "60",
		"DRAWSYNC_PRESENCE_TIMEOUT": "30s",
		"DRAWSYNC_ALLOWED_ORIGINS":  "http://a.local, http://b.local",
	})

	cfg, err := load([]string{"-env-file", envFile, "-retention", "70", "-storage=sqlite"}, env, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Addr, "value from env file")
	assert.Equal(t, "from-file", cfg.ModeratorSecret)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.PresenceTimeout, "value from environment")
	assert.Equal(t, 70, cfg.Retention, "flags win over environment and file")
	assert.Equal(t, StorageSQLite, cfg.StorageDriver)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.AllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	cfg, err := load([]string{"-env-file=" + filepath.Join(t.TempDir(), "absent.env")}, mapLookup(nil), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		env  map[string]string
		name string
		args []string
	}{
		{name: "bad duration", env: map[string]string{"DRAWSYNC_TOKEN_TTL": "soon"}},
		{name: "bad number", env: map[string]string{"DRAWSYNC_RETENTION": "many"}},
		{name: "bad bool", env: map[string]string{"DRAWSYNC_DRAWING_DISABLED": "maybe"}},
		{name: "unknown flag", args: []string{"-nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-env-file="}, tt.args...)
			_, err := load(args, mapLookup(tt.env), io.Discard)
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		mutate func(c *Config)
		name   string
		errMsg string
	}{
		{name: "unknown storage", mutate: func(c *Config) { c.StorageDriver = "redis" }, errMsg: "unknown storage"},
		{name: "sqlite without path", mutate: func(c *Config) { c.StorageDriver = StorageSQLite; c.DatabasePath = "" }, errMsg: "database path"},
		{name: "empty secret", mutate: func(c *Config) { c.ModeratorSecret = "" }, errMsg: "moderator secret"},
		{name: "zero retention", mutate: func(c *Config) { c.Retention = 0 }, errMsg: "retention"},
		{name: "timeout too short", mutate: func(c *Config) { c.PresenceTimeout = 10 * time.Second }, errMsg: "at least 3x"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, errMsg: "invalid log level"},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, errMsg: "log format"},
		{name: "empty addr", mutate: func(c *Config) { c.Addr = "" }, errMsg: "listen address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)

			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.LogFormat = "json"
	c.LogLevel = "warn"

	var buf bytes.Buffer
	logger, err := c.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}
