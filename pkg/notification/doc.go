// Package notification defines the core domain model shared by the delivery
// engine: notifications, per-recipient delivery tasks, channels, priorities,
// audience specifications, and send outcomes.
//
// A Notification is a logical send request ("send N to audience A via
// channels C"). The engine expands it into one DeliveryTask per eligible
// (recipient, channel) pair; the triple (notification, recipient, channel)
// is the idempotency key, so re-enqueueing the same pair is a no-op.
//
// Status transitions for both types are enforced by the tracker package;
// this package only declares the vocabulary and the terminal-state rules.
package notification
