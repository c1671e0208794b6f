// Package ratelimit provides fixed-window rate limiting with pluggable
// storage backends.
//
// The delivery engine uses it to cap sends per channel: the dispatch worker
// checks the channel's budget before each send and defers rate-limited tasks
// instead of dropping them. MemoryStore serves single-process deployments
// and tests; RedisStore shares budgets across replicas.
package ratelimit
