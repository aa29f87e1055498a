package logging

import (
	"context"
	"log/slog"
	"strings"
)

// componentLevelHandler gates records on the global level until a component
// attribute is attached; from then on the component's own level applies when
// one is configured. The wrapped handler must accept the most verbose level.
type componentLevelHandler struct {
	next      slog.Handler
	global    slog.Level
	overrides map[string]slog.Level
	level     slog.Level
}

func newComponentLevelHandler(next slog.Handler, global slog.Level, overrides map[string]slog.Level) slog.Handler {
	return &componentLevelHandler{next: next, global: global, overrides: overrides, level: global}
}

func (h *componentLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level && h.next.Enabled(ctx, level)
}

func (h *componentLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.level {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *componentLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	for _, attr := range attrs {
		if attr.Key != FieldComponent {
			continue
		}
		clone.level = h.global
		if lvl, ok := h.overrides[strings.ToLower(attr.Value.String())]; ok {
			clone.level = lvl
		}
	}
	return &clone
}

func (h *componentLevelHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	return &clone
}
