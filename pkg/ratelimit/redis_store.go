package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis, sharing rate limit windows across
// engine replicas. The counter and its TTL are managed atomically via a
// small Lua script, so concurrent workers never observe a counter without
// an expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store. The prefix namespaces keys;
// empty defaults to "ratelimit".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// incrScript increments the counter and sets the window TTL only when the
// key is fresh, returning both the count and the remaining TTL in
// milliseconds.
var incrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// IncrementAndGet implements Store.
func (s *RedisStore) IncrementAndGet(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := incrScript.Run(ctx, s.client, []string{s.key(key)}, window.Milliseconds()).Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit increment %q: %w", key, err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("ratelimit increment %q: unexpected script reply", key)
	}
	current, _ := res[0].(int64)
	ttlMs, _ := res[1].(int64)
	return current, time.Duration(ttlMs) * time.Millisecond, nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("ratelimit reset %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}
