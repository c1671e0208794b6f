package httpserver

import "errors"

var (
	// ErrStart wraps failures to bind or serve on the configured address.
	ErrStart = errors.New("httpserver: failed to start")
	// ErrShutdown wraps failures to drain connections within the shutdown
	// timeout.
	ErrShutdown = errors.New("httpserver: failed to shut down gracefully")
)
