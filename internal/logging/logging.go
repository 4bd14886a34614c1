// Package logging configures the process-wide zerolog logger for shipset.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

const (
	EnvLogLevel     = "SHIPSET_LOG_LEVEL"
	EnvLogTimestamp = "SHIPSET_LOG_TIMESTAMP"
	EnvLogNoColor   = "SHIPSET_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config is the resolved logger configuration.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	Out       io.Writer
}

// Option adjusts a profile's defaults before env overrides apply.
type Option func(*Config)

// WithDebug lowers the level to debug.
func WithDebug(debug bool) Option {
	return func(c *Config) {
		if debug {
			c.Level = zerolog.DebugLevel
		}
	}
}

// WithNoColor disables ANSI colors.
func WithNoColor(noColor bool) Option {
	return func(c *Config) {
		if noColor {
			c.NoColor = true
		}
	}
}

// WithOutput redirects log output.
func WithOutput(w io.Writer) Option {
	return func(c *Config) {
		c.Out = w
	}
}

var testOnce sync.Once

// ConfigureTests configures the test profile exactly once per process.
func ConfigureTests() {
	testOnce.Do(func() {
		Configure(ProfileTest)
	})
}

// Configure installs a console logger as the global zerolog logger.
func Configure(profile Profile, opts ...Option) zerolog.Logger {
	cfg := defaultConfig(profile)
	for _, opt := range opts {
		opt(&cfg)
	}
	applyEnvOverrides(&cfg)

	output := zerolog.ConsoleWriter{
		Out:        cfg.Out,
		NoColor:    cfg.NoColor,
		TimeFormat: time.TimeOnly,
	}
	if !cfg.Timestamp {
		output.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	ctx := zerolog.New(output).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	logger := ctx.Logger()
	log.Logger = logger
	zerolog.SetGlobalLevel(cfg.Level)
	return logger
}

func defaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{
			Level:   zerolog.WarnLevel,
			NoColor: true,
			Out:     os.Stderr,
		}
	default:
		return Config{
			Level:     zerolog.InfoLevel,
			Timestamp: false,
			NoColor:   !term.IsTerminal(int(os.Stderr.Fd())),
			Out:       os.Stderr,
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if raw := strings.TrimSpace(os.Getenv(EnvLogNoColor)); raw != "" {
		if v, ok := parseBool(raw); ok {
			cfg.NoColor = v
		} else {
			cfg.NoColor = true
		}
	}
}

// ParseLevel maps a level name to a zerolog level.
// The boolean is false for empty or unknown names.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
