package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LookupFunc возвращает значение переменной окружения
type LookupFunc func(key string) (string, bool)

// envLookup объединяет окружение процесса и значения из .env файла.
// Переменные процесса имеют приоритет, как у godotenv.Load.
func envLookup(base LookupFunc, envFile string) (LookupFunc, error) {
	if envFile == "" {
		return base, nil
	}

	values, err := godotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return base, nil
		}
		return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
	}

	return func(key string) (string, bool) {
		if v, ok := base(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}, nil
}

// parseEnv overlays values from environment variables
func parseEnv(c *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("DRAWSYNC_ADDR", &c.Addr)
	str("DRAWSYNC_STORAGE", &c.StorageDriver)
	str("DRAWSYNC_DB_PATH", &c.DatabasePath)
	str("DRAWSYNC_LOG_LEVEL", &c.LogLevel)
	str("DRAWSYNC_LOG_FORMAT", &c.LogFormat)
	str("MODERATOR_PASSWORD", &c.ModeratorSecret)
	str("DRAWSYNC_TOKEN_SECRET", &c.TokenSecret)

	if v, ok := lookup("DRAWSYNC_ALLOWED_ORIGINS"); ok && v != "" {
		c.AllowedOrigins = splitList(v)
	}

	if v, ok := lookup("DRAWSYNC_DRAWING_DISABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DRAWSYNC_DRAWING_DISABLED: %w", err)
		}
		c.DrawingDisabled = b
	}

	for key, dst := range map[string]*time.Duration{
		"DRAWSYNC_TOKEN_TTL":          &c.TokenTTL,
		"DRAWSYNC_PRESENCE_TIMEOUT":   &c.PresenceTimeout,
		"DRAWSYNC_SWEEP_INTERVAL":     &c.SweepInterval,
		"DRAWSYNC_HEARTBEAT_INTERVAL": &c.HeartbeatInterval,
		"DRAWSYNC_SHUTDOWN_TIMEOUT":   &c.ShutdownTimeout,
		"DRAWSYNC_RATE_WINDOW":        &c.RateWindow,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}

	for key, dst := range map[string]*int{
		"DRAWSYNC_RETENTION":         &c.Retention,
		"DRAWSYNC_SUBSCRIBER_BUFFER": &c.SubscriberBuffer,
		"DRAWSYNC_RATE_LIMIT":        &c.RateLimit,
		"DRAWSYNC_LOGIN_RATE_LIMIT":  &c.LoginRateLimit,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}

	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// osLookup адаптер os.LookupEnv
var osLookup LookupFunc = os.LookupEnv
