// Package logging provides the process-wide structured logger: a
// lazily-initialised slog.Logger, JSON by default, level configurable from
// Config.
package logging

import (
	"log/slog"
	"os"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// Config controls the global logger's verbosity and encoding.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // json, text
}

// Init sets up the global logger. Safe to call once; later calls are no-ops.
func Init(cfg Config) {
	once.Do(func() {
		logger = build(cfg)
		slog.SetDefault(logger)
	})
}

func build(cfg Config) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// Get returns the global logger, initialising it with defaults if Init was
// never called.
func Get() *slog.Logger {
	if logger == nil {
		Init(Config{Level: "INFO", Format: "json"})
	}
	return logger
}

// FailedBuild logs a Builder failure, always including the subquery text
// that triggered it.
func FailedBuild(subquery string, err error) {
	Get().Error("rds build failed", "subquery", subquery, "error", err)
}
