package logging

import (
	"context"
	"log/slog"

	"hanziblur/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized key for the analysis run correlation identifier.
	FieldRunID = "run_id"
	// FieldVideo is the standardized key for the source video path.
	FieldVideo = "video"
	// FieldSegment is the standardized key for segment names (segment_1, ...).
	FieldSegment = "segment"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

func contextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	var fields []Attr
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, String(FieldRunID, id))
	}
	if video, ok := services.VideoFromContext(ctx); ok {
		fields = append(fields, String(FieldVideo, video))
	}
	if segment, ok := services.SegmentFromContext(ctx); ok {
		fields = append(fields, String(FieldSegment, segment))
	}
	return fields
}

// WithContext tags logger with the run ID, video and segment carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
