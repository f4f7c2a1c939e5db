package logging

import (
	"context"
	"log/slog"

	"clipbook/internal/services"
)

// Shared field names. Keeping these as constants stops near-miss keys
// (jobID vs job_id) from fragmenting log queries.
const (
	FieldComponent     = "component"
	FieldJobID         = "job_id"
	FieldStage         = "stage"
	FieldKind          = "kind"
	FieldCacheKey      = "cache_key"
	FieldProvider      = "provider"
	FieldAttempt       = "attempt"
	FieldDurationMS    = "duration_ms"
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts the correlation attributes stored on ctx by the
// services context helpers.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	attrs := make([]Attr, 0, 3)
	if id, ok := services.JobIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldJobID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		attrs = append(attrs, String(FieldStage, stage))
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldCorrelationID, id))
	}
	return attrs
}

// WithContext returns a logger pre-tagged with ctx correlation fields.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
