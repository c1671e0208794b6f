package httpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server wraps http.Server with lifecycle management. Run starts the listener
// and blocks until the context is cancelled, then performs a graceful shutdown
// bounded by the configured shutdown timeout.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	log             *slog.Logger
}

// New creates a Server with sensible defaults that can be overridden via
// options.
func New(opts ...Option) *Server {
	s := &Server{
		srv: &http.Server{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		shutdownTimeout: 10 * time.Second,
		log:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves handler on the configured address until ctx is cancelled. The
// returned error is nil after a clean shutdown; listener failures are wrapped
// in ErrStart and shutdown failures in ErrShutdown.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	s.srv.Handler = handler
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoContext(ctx, "http server listening", slog.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Join(ErrStart, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.log.InfoContext(shutdownCtx, "http server shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return errors.Join(ErrShutdown, err)
	}
	return nil
}
