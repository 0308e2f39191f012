package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type contextKey string

// Context keys whose values WithContext copies onto log lines.
const (
	RequestIDKey contextKey = "request_id"
	ActorIDKey   contextKey = "actor_id"
	ClubIDKey    contextKey = "club_id"
)

var contextFields = []contextKey{RequestIDKey, ActorIDKey, ClubIDKey}

// Logger is a structured logger wrapper around slog
type Logger struct {
	*slog.Logger
}

// New creates a logger for env; LOG_FORMAT=json switches development output to JSON
func New(env string, output io.Writer) *Logger {
	return NewWithFormat(env, os.Getenv("LOG_FORMAT"), output)
}

// NewWithFormat creates a logger with an explicit format.
// Production is always JSON at info level; development logs debug.
func NewWithFormat(env, format string, output io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		AddSource:   true,
		ReplaceAttr: replaceAttr,
	}

	var h slog.Handler
	switch {
	case env == "production":
		opts.Level = slog.LevelInfo
		h = slog.NewJSONHandler(output, opts)
	case format == "json":
		h = slog.NewJSONHandler(output, opts)
	default:
		h = slog.NewTextHandler(output, opts)
	}

	return &Logger{Logger: slog.New(h)}
}

// replaceAttr shortens timestamps to RFC3339 and sources to file:line
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.Format(time.RFC3339))
		}
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok {
			a.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	}
	return a
}

// NewDefault creates a logger writing to stdout
func NewDefault(env string) *Logger {
	return New(env, os.Stdout)
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithContext adds the request, actor and club IDs found on ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	var args []any
	for _, key := range contextFields {
		if v := ctx.Value(key); v != nil {
			args = append(args, string(key), v)
		}
	}
	if len(args) == 0 {
		return l
	}
	return &Logger{Logger: l.With(args...)}
}

// WithFields creates a new logger with additional fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.With(args...)}
}

// WithField creates a new logger with an additional field
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Logger: l.With(key, value)}
}

// WithError creates a new logger with an error field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With("error", err.Error())}
}

// WithDuration creates a new logger with a duration_ms field
func (l *Logger) WithDuration(d time.Duration) *Logger {
	return &Logger{Logger: l.With("duration_ms", d.Milliseconds())}
}
