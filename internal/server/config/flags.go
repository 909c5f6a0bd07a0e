package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// newFlagSet binds command-line flags to c.
// Current values of c become the flag defaults, so flags win over env and .env.
func newFlagSet(c *Config, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("drawsync-server", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&c.Addr, "addr", c.Addr, "HTTP listen address")
	fs.StringVar(&c.StorageDriver, "storage", c.StorageDriver, "event/presence store: memory or sqlite")
	fs.StringVar(&c.DatabasePath, "db", c.DatabasePath, "SQLite database path (sqlite storage)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text or json")
	fs.StringVar(&c.EnvFile, "env-file", c.EnvFile, "optional .env file")
	fs.DurationVar(&c.TokenTTL, "token-ttl", c.TokenTTL, "moderator token lifetime")
	fs.DurationVar(&c.PresenceTimeout, "presence-timeout", c.PresenceTimeout, "client is gone after this long without contact")
	fs.DurationVar(&c.SweepInterval, "sweep-interval", c.SweepInterval, "presence sweep period")
	fs.DurationVar(&c.HeartbeatInterval, "heartbeat-interval", c.HeartbeatInterval, "heartbeat interval advertised to clients")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "graceful shutdown timeout")
	fs.DurationVar(&c.RateWindow, "rate-window", c.RateWindow, "rate limit window")
	fs.IntVar(&c.Retention, "retention", c.Retention, "number of events kept when no clear happens")
	fs.IntVar(&c.SubscriberBuffer, "subscriber-buffer", c.SubscriberBuffer, "per-subscriber notification buffer")
	fs.IntVar(&c.RateLimit, "rate-limit", c.RateLimit, "requests per client IP per rate window")
	fs.IntVar(&c.LoginRateLimit, "login-rate-limit", c.LoginRateLimit, "moderator login attempts per client IP per minute")
	fs.BoolVar(&c.DrawingDisabled, "drawing-disabled", c.DrawingDisabled, "start with drawing paused")
	fs.BoolVar(&c.ShowVersion, "version", c.ShowVersion, "show version information")
	fs.Func("allowed-origins", "comma separated CORS origins (default \"*\")", func(v string) error {
		c.AllowedOrigins = splitList(v)
		return nil
	})

	return fs
}

// envFileFromArgs достает -env-file до полного разбора флагов:
// файл нужно прочитать раньше, чем флаги перекроют его значения.
func envFileFromArgs(args []string, def string) string {
	for i, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if v, ok := strings.CutPrefix(name, "env-file="); ok {
			return v
		}
		if name == "env-file" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return def
}

// Load builds a Config from defaults, the .env file, the environment and args
func Load(args []string, output io.Writer) (*Config, error) {
	return load(args, osLookup, output)
}

func load(args []string, lookup LookupFunc, output io.Writer) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	cfg.EnvFile = envFileFromArgs(args, cfg.EnvFile)

	merged, err := envLookup(lookup, cfg.EnvFile)
	if err != nil {
		return nil, err
	}

	if err := parseEnv(cfg, merged); err != nil {
		return nil, err
	}

	if err := newFlagSet(cfg, output).Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	return cfg, nil
}
