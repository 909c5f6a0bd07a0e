// Package config handles configuration for the drawsync server:
// defaults, an optional .env file, environment variables and command-line flags,
// applied in that order.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Storage drivers
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// DefaultModeratorSecret общий секрет модератора по умолчанию.
// Должен быть переопределен через MODERATOR_PASSWORD вне локальной разработки.
const DefaultModeratorSecret = "stream123"

// Config holds runtime settings for the drawsync server
type Config struct {
	AllowedOrigins    []string
	Addr              string
	StorageDriver     string
	DatabasePath      string
	LogLevel          string
	LogFormat         string
	ModeratorSecret   string
	TokenSecret       string
	EnvFile           string
	TokenTTL          time.Duration
	PresenceTimeout   time.Duration
	SweepInterval     time.Duration
	HeartbeatInterval time.Duration
	ShutdownTimeout   time.Duration
	RateWindow        time.Duration
	Retention         int
	SubscriberBuffer  int
	RateLimit         int
	LoginRateLimit    int
	DrawingDisabled   bool
	ShowVersion       bool
}

// LoadDefaults populates Config with development defaults
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.StorageDriver = StorageMemory
	c.DatabasePath = "drawsync.db"
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.ModeratorSecret = DefaultModeratorSecret
	c.TokenSecret = ""
	c.EnvFile = ".env"
	c.AllowedOrigins = []string{"*"}
	c.TokenTTL = 12 * time.Hour
	c.PresenceTimeout = 20 * time.Second
	c.SweepInterval = 5 * time.Second
	c.HeartbeatInterval = 5 * time.Second
	c.ShutdownTimeout = 10 * time.Second
	c.RateWindow = 10 * time.Second
	c.Retention = 1000
	c.SubscriberBuffer = 256
	c.RateLimit = 1200
	c.LoginRateLimit = 5
}

// Validate checks that settings are consistent
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}

	switch c.StorageDriver {
	case StorageMemory:
	case StorageSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("database path is required for %s storage", StorageSQLite)
		}
	default:
		return fmt.Errorf("unknown storage driver %q (want %s or %s)", c.StorageDriver, StorageMemory, StorageSQLite)
	}

	if c.ModeratorSecret == "" {
		return fmt.Errorf("moderator secret cannot be empty")
	}

	if c.Retention <= 0 {
		return fmt.Errorf("retention must be positive, got %d", c.Retention)
	}

	if c.SubscriberBuffer <= 0 {
		return fmt.Errorf("subscriber buffer must be positive, got %d", c.SubscriberBuffer)
	}

	if c.HeartbeatInterval <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("heartbeat and sweep intervals must be positive")
	}

	// Клиент должен успеть пропустить пару heartbeat, прежде чем его сочтут ушедшим
	if c.PresenceTimeout < 3*c.HeartbeatInterval {
		return fmt.Errorf("presence timeout %s must be at least 3x heartbeat interval %s",
			c.PresenceTimeout, c.HeartbeatInterval)
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}

	if c.RateLimit <= 0 || c.LoginRateLimit <= 0 || c.RateWindow <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q (want text or json)", c.LogFormat)
	}

	return nil
}

// NewLogger builds the slog logger described by LogLevel and LogFormat
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
