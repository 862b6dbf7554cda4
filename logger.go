package meshgo

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with meshgo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithRank adds a rank field to the logger.
func (l *Logger) WithRank(rank int) *Logger {
	return &Logger{
		Logger: l.Logger.With("rank", rank),
	}
}

// WithResolution adds a resolution field to the logger.
func (l *Logger) WithResolution(resolution int) *Logger {
	return &Logger{
		Logger: l.Logger.With("resolution", resolution),
	}
}

// LogBuild logs a mesh construction.
func (l *Logger) LogBuild(ctx context.Context, resolution int, particles int64, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "mesh build failed",
			"resolution", resolution,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "mesh build completed",
			"resolution", resolution,
			"particles", particles,
			"duration", duration,
		)
	}
}

// LogQuery logs a query operation.
func (l *Logger) LogQuery(ctx context.Context, kind string, found int, duration time.Duration) {
	l.DebugContext(ctx, "query completed",
		"kind", kind,
		"found", found,
		"duration", duration,
	)
}

// LogFree logs the release of a mesh.
func (l *Logger) LogFree(ctx context.Context, err error) {
	if err != nil {
		l.ErrorContext(ctx, "mesh free failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "mesh freed")
	}
}
