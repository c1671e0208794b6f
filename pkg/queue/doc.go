// Package queue is the durable dispatch queue of the delivery engine: an
// ordered work queue of per-recipient-per-channel delivery tasks, plus the
// worker pool that drains it.
//
// The package is organised around small repository interfaces so the queue
// can be backed by any storage engine; MemoryStorage implements all of them
// for tests and local development, and the pg package provides the
// PostgreSQL implementation used in production.
//
// Ordering guarantees: across priority tiers, urgent > high > medium > low
// strictly preempts; within a tier, tasks are claimed in eligibility order.
// A claim atomically flips the task in flight and records the owning worker,
// so two workers never process the same task. Locks expire so tasks owned by
// a crashed worker are recovered.
//
// Control is the explicit shared queue state: a paused queue keeps accepting
// enqueues but yields no claims until resumed, and DrainNow forces scheduled
// tasks visible immediately without bypassing retry backoff.
package queue
