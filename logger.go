package anytable

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with table-specific context.
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

// WithTable adds the table name to the logger.
func (l *Logger) WithTable(table string) *Logger {
	return &Logger{
		Logger: l.Logger.With("table", table),
	}
}

// LogSchemaFetch logs the initial schema fetch.
func (l *Logger) LogSchemaFetch(ctx context.Context, table string, columns int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "schema fetch failed",
			"table", table,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "schema fetched",
			"table", table,
			"columns", columns,
		)
	}
}

// LogQueryError logs a failed query execution. Prior rows stay visible;
// the next window, sort or filter change retries implicitly.
func (l *Logger) LogQueryError(ctx context.Context, table string, err error) {
	l.WarnContext(ctx, "query failed",
		"table", table,
		"error", err,
	)
}

// LogFetchWindow logs a fetch-window change.
func (l *Logger) LogFetchWindow(ctx context.Context, offset, limit int) {
	l.DebugContext(ctx, "fetch window changed",
		"offset", offset,
		"limit", limit,
	)
}

// LogSortChange logs a sort rewrite.
func (l *Logger) LogSortChange(ctx context.Context, table string, terms int) {
	l.DebugContext(ctx, "sort changed",
		"table", table,
		"terms", terms,
	)
}
