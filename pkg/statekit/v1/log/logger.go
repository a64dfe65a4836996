// Package log defines the public logging interface used across statekit packages.
package log

import (
	"context"
	"log/slog"
)

// Logger defines the public interface for logging operations within statekit.
// Stores, buses and the CLI log through this interface so embedding
// applications can plug in their own implementation.
type Logger interface {
	// Debugf logs a formatted message at the DEBUG level.
	Debugf(format string, args ...interface{})
	// Infof logs a formatted message at the INFO level.
	Infof(format string, args ...interface{})
	// Warnf logs a formatted message at the WARN level.
	Warnf(format string, args ...interface{})
	// Errorf logs a formatted message at the ERROR level. Implementations
	// should log a trailing error argument structurally.
	Errorf(format string, args ...interface{})

	// Log logs a message at the given level with key-value attributes.
	Log(level slog.Level, msg string, args ...interface{})
	// LogCtx is Log with a context, allowing trace correlation.
	LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{})

	// With returns a Logger that adds the given attributes to every entry.
	With(args ...interface{}) Logger
	// IsEnabled reports whether entries at level would be emitted.
	IsEnabled(level slog.Level) bool
}
