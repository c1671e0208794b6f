package logger

import (
	"context"
	"log/slog"
)

// ContextExtractor pulls one attribute out of a context, reporting whether
// the context carried a value for it.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// contextHandler runs the configured extractors against the record's context
// before handing it to the wrapped handler. Records logged at a disabled
// level never reach Handle, so extraction costs nothing for them.
type contextHandler struct {
	next       slog.Handler
	extractors []ContextExtractor
}

func newContextHandler(next slog.Handler, extractors []ContextExtractor) slog.Handler {
	if len(extractors) == 0 {
		return next
	}
	return &contextHandler{next: next, extractors: extractors}
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	for _, extract := range h.extractors {
		if attr, ok := extract(ctx); ok {
			rec.AddAttrs(attr)
		}
	}
	return h.next.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), extractors: h.extractors}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), extractors: h.extractors}
}
