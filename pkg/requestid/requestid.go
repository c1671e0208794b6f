// Package requestid assigns a correlation ID to every HTTP request and
// propagates it through the context, response headers, structured logs, and
// the audit trail.
package requestid

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// Header is the request and response header carrying the correlation ID.
const Header = "X-Request-ID"

const maxIDLength = 128

var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type contextKey struct{}

// WithContext stores a request ID in the context.
func WithContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

// FromContext returns the request ID, or "" when none is set.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(contextKey{}).(string)
	return requestID
}

// Middleware attaches a request ID to every request. A client-supplied
// X-Request-ID is reused when it is well formed; anything else is replaced
// with a fresh UUID. The chosen ID is echoed back on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if !acceptable(requestID) {
			requestID = uuid.New().String()
		}
		w.Header().Set(Header, requestID)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), requestID)))
	})
}

// LoggerExtractor adapts FromContext to the logger's context extractor shape
// so every log record inside a request carries the request_id attribute.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if requestID := FromContext(ctx); requestID != "" {
			return slog.String("request_id", requestID), true
		}
		return slog.Attr{}, false
	}
}

func acceptable(id string) bool {
	return id != "" && len(id) <= maxIDLength && validID.MatchString(id)
}
