// Package preference models per-recipient notification preferences: enabled
// channels, category opt-outs, quiet hours, and do-not-disturb windows.
//
// The engine reads preferences at two points. Before enqueue, Allows filters
// out channels the recipient has disabled or categories they opted out of.
// At scheduling time, DeferUntil shifts a task's channel-level eligibility
// out of quiet hours. Urgent notifications bypass quiet hours but never an
// explicit DND-until timestamp.
//
// Preferences are read-only to the engine; the user-facing preference API
// owns mutation.
package preference
