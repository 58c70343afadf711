// Package log provides the leveled, structured logger used across memfs.
package log

import (
	"context"
	"fmt"
	"strings"
)

type contextKey string

const (
	loggerKey contextKey = "memfs.logger"
)

const defaultLevel = LevelWarn

// Logger is the logging interface accepted by memfs components. It mirrors
// slog so that other libraries can be plugged in through small adapters.
type Logger interface {
	// Debug logs a message at debug level with optional key-value pairs
	Debug(msg string, args ...any)

	// Info logs a message at info level with optional key-value pairs
	Info(msg string, args ...any)

	// Warn logs a message at warn level with optional key-value pairs
	Warn(msg string, args ...any)

	// Error logs a message at error level with optional key-value pairs
	Error(msg string, args ...any)

	// With returns a Logger that includes the given attributes in each
	// output operation.
	With(args ...any) Logger
}

// WithLogger returns a new context with the given logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Ctx returns the logger from the given context, or a NullLogger when the
// context carries none.
func Ctx(ctx context.Context) Logger {
	if ctx == nil {
		return NewNullLogger()
	}
	logger, ok := ctx.Value(loggerKey).(Logger)
	if !ok {
		return NewNullLogger()
	}
	return logger
}

// ParseLevel converts a level name to a Level. Unlike LevelFromString it
// reports unknown names.
func ParseLevel(value string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return defaultLevel, fmt.Errorf("unknown log level %q", value)
}

// LevelFromString converts a string to a Level, falling back to the default.
func LevelFromString(value string) Level {
	level, err := ParseLevel(value)
	if err != nil {
		return defaultLevel
	}
	return level
}
