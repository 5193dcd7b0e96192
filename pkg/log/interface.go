// Package log provides the structured logging interface used by romprep transformers.
//
// The interface is slog-shaped (Debug/Info/Warn/Error with key-value fields)
// and is backed by zerolog. Transformers log fit events at debug level and
// emit their verbose summaries at info level, so that a verbose transformer is
// audible under the default configuration while routine fits stay quiet.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("preprocessing").With(
//	    log.ModelNameKey, "ShiftScaleTransformer",
//	)
//	logger.Info("fitted",
//	    log.OperationKey, log.OperationFitTransform,
//	    log.StateDimensionKey, 128,
//	    log.SnapshotsKey, 500,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If the first field is an error value it is attached as the error of the
	// record, including its stack trace when one is available.
	//
	// Example:
	//   logger.Error("save failed", err, log.OperationKey, log.OperationSave)
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider defines an interface for creating and configuring loggers.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger with a specific component identifier.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
