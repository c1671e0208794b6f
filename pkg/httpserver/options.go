package httpserver

import (
	"log/slog"
	"time"
)

// Option customizes a Server during construction.
type Option func(*Server)

// WithAddr sets the listen address, e.g. ":8080" or "127.0.0.1:0".
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.srv.Addr = addr
		}
	}
}

// WithReadTimeout sets the maximum duration for reading an entire request.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.srv.ReadTimeout = d
		}
	}
}

// WithWriteTimeout sets the maximum duration before a response write times out.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.srv.WriteTimeout = d
		}
	}
}

// WithIdleTimeout sets how long keep-alive connections may sit idle.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.srv.IdleTimeout = d
		}
	}
}

// WithShutdownTimeout bounds how long Run waits for in-flight requests to
// finish after the context is cancelled.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithLogger sets the logger used for lifecycle messages. A nil logger is
// ignored and the server stays silent.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}
