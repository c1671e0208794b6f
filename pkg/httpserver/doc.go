// Package httpserver wraps net/http with graceful shutdown, env-driven
// configuration, and probe handlers.
//
// Construct a Server with New or NewFromConfig and run it under a cancellable
// context:
//
//	var cfg httpserver.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, mux); err != nil {
//		return err
//	}
//
// Run blocks until ctx is cancelled, then drains in-flight requests within the
// shutdown timeout. HealthCheckHandler serves liveness and readiness probes
// from the same endpoint.
package httpserver
