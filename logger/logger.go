// Package logger wraps log/slog with a process-wide default logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[slog.Logger]

// Init installs the process-wide logger writing to stderr. Level is one of
// debug, info, warn or error; json selects the JSON handler.
func Init(level string, json bool) *slog.Logger {
	return InitWriter(os.Stderr, level, json)
}

// InitWriter is Init with an explicit destination
func InitWriter(w io.Writer, level string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	defaultLogger.Store(l)
	slog.SetDefault(l)
	return l
}

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the process-wide logger, installing an info-level text logger on first use
func Get() *slog.Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	return Init("info", false)
}

// Discard returns a logger that drops everything (tests)
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// With returns the default logger with the given attributes
func With(args ...any) *slog.Logger {
	return Get().With(args...)
}

// Info logs at info level
func Info(msg string, args ...any) { Get().Info(msg, args...) }

// Debug logs at debug level
func Debug(msg string, args ...any) { Get().Debug(msg, args...) }

// Warn logs at warn level
func Warn(msg string, args ...any) { Get().Warn(msg, args...) }

// Error logs at error level
func Error(msg string, args ...any) { Get().Error(msg, args...) }

// Fatal logs at error level and exits
func Fatal(msg string, args ...any) {
	Get().Error(msg, args...)
	os.Exit(1)
}
