// Package schedule provides serializable recurrence rules for periodic
// notifications.
//
// A Rule is a tagged value (interval, hourly, daily, weekly, monthly) whose
// Next method computes the occurrence strictly after a given instant. Firing
// is driven by the engine's periodic tick calling Next with the last fire
// time, never by timers or callbacks, which keeps recurrence deterministic
// and testable with synthetic clocks.
package schedule
