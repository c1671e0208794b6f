package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/campushub/notify/pkg/requestid"
)

// Writer stores a single audit event.
type Writer interface {
	Store(ctx context.Context, event Event) error
}

// Logger records audit events best-effort: storage failures are logged but
// never propagated, so an unavailable audit store cannot block deliveries.
type Logger struct {
	writer Writer
	log    *slog.Logger
}

// Option configures a Logger.
type Option func(*Logger)

// WithErrorLog sets the slog.Logger used to report storage failures.
func WithErrorLog(log *slog.Logger) Option {
	return func(l *Logger) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLogger creates an audit logger over the given writer.
func NewLogger(writer Writer, opts ...Option) *Logger {
	l := &Logger{
		writer: writer,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log records a successful action.
func (l *Logger) Log(ctx context.Context, action string, opts ...EventOption) {
	l.record(ctx, action, ResultSuccess, "", opts)
}

// LogError records a failed action.
func (l *Logger) LogError(ctx context.Context, action string, actionErr error, opts ...EventOption) {
	msg := ""
	if actionErr != nil {
		msg = actionErr.Error()
	}
	l.record(ctx, action, ResultFailure, msg, opts)
}

func (l *Logger) record(ctx context.Context, action string, result Result, errMsg string, opts []EventOption) {
	event := Event{
		ID:        uuid.New().String(),
		Action:    action,
		Result:    result,
		Error:     errMsg,
		RequestID: requestid.FromContext(ctx),
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&event)
	}

	if err := event.Validate(); err != nil {
		l.log.WarnContext(ctx, "audit event dropped", slog.Any("error", err))
		return
	}

	if err := l.writer.Store(ctx, event); err != nil {
		l.log.WarnContext(ctx, "audit event not stored",
			slog.String("action", action),
			slog.Any("error", err),
		)
	}
}
