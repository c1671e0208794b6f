package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidConnectionURL = errors.New("redis: invalid connection url")
	ErrNotReady             = errors.New("redis: server did not become ready in time")
	ErrHealthcheckFailed    = errors.New("redis: healthcheck failed")
)

// Connect establishes a connection to a Redis server, retrying up to
// cfg.RetryAttempts times with cfg.RetryInterval between attempts. The whole
// operation is bounded by cfg.ConnectTimeout.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	redisConnOpt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrInvalidConnectionURL, err)
	}

	for i := 0; i < cfg.RetryAttempts; i++ {
		redisClient := redis.NewClient(redisConnOpt)

		if err := redisClient.Ping(ctx).Err(); err == nil {
			return redisClient, nil
		}

		_ = redisClient.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		default:
			time.Sleep(cfg.RetryInterval)
		}
	}

	return nil, ErrNotReady
}

// Healthcheck returns a probe function that pings the Redis server, shaped
// for the HTTP server's readiness endpoint.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
