package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// NotificationID records the notification identifier under "notification_id".
// If id is nil, it returns an empty Attr.
func NotificationID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("notification_id", id)
}

// TaskID records the delivery task identifier under "task_id".
// If id is nil, it returns an empty Attr.
func TaskID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("task_id", id)
}

// RecipientID records the recipient identifier under "recipient_id".
func RecipientID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("recipient_id", id)
}

// Channel records the delivery channel under "channel".
func Channel(ch any) slog.Attr {
	if ch == nil {
		return slog.Attr{}
	}
	return slog.Any("channel", ch)
}

// Attempt records the delivery attempt number under "attempt".
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// WorkerID records the worker identifier under "worker_id".
// If id is nil, it returns an empty Attr.
func WorkerID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("worker_id", id)
}

// RequestID records the request identifier under "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
