package httpserver

import "time"

// Config carries the HTTP server settings loaded from the environment.
type Config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// NewFromConfig builds a Server from cfg. Additional options are applied after
// the config values, so they take precedence.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	base := []Option{
		WithAddr(cfg.Addr),
		WithReadTimeout(cfg.ReadTimeout),
		WithWriteTimeout(cfg.WriteTimeout),
		WithIdleTimeout(cfg.IdleTimeout),
		WithShutdownTimeout(cfg.ShutdownTimeout),
	}
	return New(append(base, opts...)...)
}
