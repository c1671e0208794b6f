package preference

import (
	"context"
	"slices"
	"time"

	"github.com/campushub/notify/pkg/notification"
)

// QuietHours is a daily suppression window in the recipient's local time.
// Start and End are minutes since midnight; a window may wrap past midnight
// (Start > End, e.g. 22:00-07:00).
type QuietHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether the local time t falls inside the window.
func (q QuietHours) Contains(t time.Time) bool {
	if q.Start == q.End {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	if q.Start < q.End {
		return m >= q.Start && m < q.End
	}
	return m >= q.Start || m < q.End
}

// EndAfter returns the first instant at or after t when the window ends.
func (q QuietHours) EndAfter(t time.Time) time.Time {
	end := time.Date(t.Year(), t.Month(), t.Day(), q.End/60, q.End%60, 0, 0, t.Location())
	if !end.After(t) {
		end = end.AddDate(0, 0, 1)
	}
	return end
}

// Preference holds a single recipient's notification settings. The zero
// value allows everything.
type Preference struct {
	RecipientID string `json:"recipient_id"`

	// DisabledChannels lists channels the recipient turned off entirely.
	DisabledChannels []notification.Channel `json:"disabled_channels,omitempty"`

	// CategoryOptOuts lists notification categories the recipient muted.
	CategoryOptOuts []string `json:"category_opt_outs,omitempty"`

	// Quiet, when set, defers non-urgent deliveries out of the window.
	Quiet *QuietHours `json:"quiet_hours,omitempty"`

	// Timezone is the IANA zone name quiet hours are evaluated in. Empty
	// means UTC.
	Timezone string `json:"timezone,omitempty"`

	// DNDUntil suppresses all deliveries, urgent included, until it passes.
	DNDUntil *time.Time `json:"dnd_until,omitempty"`
}

// Allows reports whether a notification of the given channel and category
// may be delivered to this recipient at all. Quiet hours and DND only defer
// delivery; this decides whether a task is created in the first place.
func (p Preference) Allows(ch notification.Channel, category string) bool {
	if slices.Contains(p.DisabledChannels, ch) {
		return false
	}
	if category != "" && slices.Contains(p.CategoryOptOuts, category) {
		return false
	}
	return true
}

// Location resolves the recipient's timezone, defaulting to UTC.
func (p Preference) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DeferUntil shifts an eligibility instant out of the recipient's quiet
// hours and DND window. Urgent priority bypasses quiet hours but never an
// explicit DND-until. The returned time is never before eligibleAt.
func (p Preference) DeferUntil(eligibleAt time.Time, priority notification.Priority) time.Time {
	deferred := eligibleAt
	if p.DNDUntil != nil && p.DNDUntil.After(deferred) {
		deferred = *p.DNDUntil
	}
	if priority == notification.PriorityUrgent {
		return deferred
	}
	if p.Quiet != nil {
		local := deferred.In(p.Location())
		if p.Quiet.Contains(local) {
			deferred = p.Quiet.EndAfter(local)
		}
	}
	return deferred
}

// Store provides read access to recipient preferences.
type Store interface {
	// Get returns preferences for the given recipients. Recipients without
	// stored preferences are absent from the map and default to allow-all.
	Get(ctx context.Context, recipientIDs []string) (map[string]Preference, error)
}

// StaticStore is an in-memory Store for tests and local development.
type StaticStore map[string]Preference

// Get implements Store.
func (s StaticStore) Get(_ context.Context, recipientIDs []string) (map[string]Preference, error) {
	out := make(map[string]Preference, len(recipientIDs))
	for _, id := range recipientIDs {
		if p, ok := s[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
