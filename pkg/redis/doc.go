// Package redis provides connection helpers for the Redis instances backing
// rate limiting.
//
// Connect retries until the server is reachable or the configured attempts
// are exhausted, so the service tolerates Redis starting up alongside it:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// Healthcheck returns a probe function suitable for the HTTP server's
// readiness endpoint.
package redis
