// Package log provides the structured logging surface used across the
// workflow packages.
//
// The Logger interface mirrors log/slog's key/value calling convention so
// the backing implementation can be swapped. The default provider is backed
// by zerolog; SetupLogger installs a slog JSON handler for programs that
// prefer the standard library sink.
//
//	logger := log.GetLoggerWithName("tune").With(log.ModelNameKey, "forest")
//	logger.Info("grid evaluated", log.CandidatesKey, 9, log.FoldsKey, 5)
package log

import (
	"context"
)

// Logger is a leveled structured logger. Fields are alternating key/value
// pairs. A leading error value in the fields of Error is recorded under the
// "error" key.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a child logger that always carries the given fields.
	With(fields ...any) Logger

	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging severity. The numeric values match slog.Level.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

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

// LoggerProvider hands out loggers sharing one sink and level.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}
