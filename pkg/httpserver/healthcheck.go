package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/campushub/notify/pkg/logger"
)

// HealthCheckHandler serves liveness and readiness from one endpoint. With no
// dependency probes it always answers 200 "ALIVE". With probes it runs each
// one and answers 200 "READY" when all pass, or 500 "NOT_READY" on the first
// failure. Probe errors are logged, never exposed in the response body.
func HealthCheckHandler(ctx context.Context, log *slog.Logger, probes ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(probes) == 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ALIVE"))
			return
		}

		for _, probe := range probes {
			if err := probe(ctx); err != nil {
				log.ErrorContext(ctx, "readiness probe failed", logger.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("NOT_READY"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}
