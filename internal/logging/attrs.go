package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so callers can build structured fields without
// importing slog directly.
type Attr = slog.Attr

// Any wraps slog.Any.
func Any(key string, value any) Attr { return slog.Any(key, value) }

// Bool wraps slog.Bool.
func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

// Duration wraps slog.Duration.
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Float64 wraps slog.Float64.
func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

// Int wraps slog.Int.
func Int(key string, value int) Attr { return slog.Int(key, value) }

// Int64 wraps slog.Int64.
func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

// Uint64 wraps slog.Uint64.
func Uint64(key string, value uint64) Attr { return slog.Uint64(key, value) }

// String wraps slog.String.
func String(key, value string) Attr { return slog.String(key, value) }

// Group wraps slog.Group.
func Group(key string, attrs ...any) Attr { return slog.Group(key, attrs...) }

// Error renders err under the conventional "error" key. A nil error becomes
// an empty string so the field is stable across call sites.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Args converts attrs into the variadic ...any shape slog methods accept.
func Args(attrs ...Attr) []any {
	out := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, attr)
	}
	return out
}

// NewNop returns a logger that discards everything. Useful in tests and as a
// safe default when a component receives a nil logger.
func NewNop() *slog.Logger {
	return slog.New(noopHandler{})
}

// NewComponentLogger tags every record emitted through the returned logger
// with the component name so console output groups by subsystem.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if component == "" {
		return logger
	}
	return logger.With(String(FieldComponent, component))
}

// WarnWithContext logs at warn level, merging any correlation fields carried
// in ctx into the record.
func WarnWithContext(ctx context.Context, logger *slog.Logger, msg string, attrs ...Attr) {
	if logger == nil {
		return
	}
	logger.LogAttrs(ctx, slog.LevelWarn, msg, append(ContextFields(ctx), attrs...)...)
}

// ErrorWithContext logs at error level, merging any correlation fields
// carried in ctx into the record.
func ErrorWithContext(ctx context.Context, logger *slog.Logger, msg string, attrs ...Attr) {
	if logger == nil {
		return
	}
	logger.LogAttrs(ctx, slog.LevelError, msg, append(ContextFields(ctx), attrs...)...)
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (noopHandler) Handle(context.Context, slog.Record) error { return nil }
func (noopHandler) WithAttrs([]slog.Attr) slog.Handler        { return noopHandler{} }
func (noopHandler) WithGroup(string) slog.Handler             { return noopHandler{} }
