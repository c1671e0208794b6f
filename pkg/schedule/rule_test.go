package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/notify/pkg/schedule"
)

func TestRule_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rule    schedule.Rule
		wantErr bool
	}{
		{"interval", schedule.EveryInterval(15 * time.Minute), false},
		{"interval too short", schedule.EveryInterval(30 * time.Second), true},
		{"hourly", schedule.HourlyAt(30), false},
		{"hourly minute out of range", schedule.HourlyAt(75), true},
		{"daily", schedule.DailyAt(9, 0), false},
		{"daily hour out of range", schedule.DailyAt(24, 0), true},
		{"weekly", schedule.WeeklyOn(time.Monday, 8, 30), false},
		{"monthly", schedule.MonthlyOn(31, 12, 0), false},
		{"monthly day zero", schedule.MonthlyOn(0, 12, 0), true},
		{"zero value", schedule.Rule{}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.rule.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, schedule.ErrInvalidRule)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRule_Next(t *testing.T) {
	t.Parallel()

	// Monday, March 2, 2026 10:15 UTC
	from := time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)

	t.Run("interval adds the period", func(t *testing.T) {
		t.Parallel()
		next := schedule.EveryInterval(30 * time.Minute).Next(from)
		assert.Equal(t, from.Add(30*time.Minute), next)
	})

	t.Run("hourly same hour when minute ahead", func(t *testing.T) {
		t.Parallel()
		next := schedule.HourlyAt(45).Next(from)
		assert.Equal(t, time.Date(2026, 3, 2, 10, 45, 0, 0, time.UTC), next)
	})

	t.Run("hourly rolls to next hour", func(t *testing.T) {
		t.Parallel()
		next := schedule.HourlyAt(15).Next(from)
		assert.Equal(t, time.Date(2026, 3, 2, 11, 15, 0, 0, time.UTC), next)
	})

	t.Run("daily rolls to tomorrow when time passed", func(t *testing.T) {
		t.Parallel()
		next := schedule.DailyAt(9, 0).Next(from)
		assert.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("weekly same weekday later time", func(t *testing.T) {
		t.Parallel()
		next := schedule.WeeklyOn(time.Monday, 18, 0).Next(from)
		assert.Equal(t, time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC), next)
	})

	t.Run("weekly rolls a full week", func(t *testing.T) {
		t.Parallel()
		next := schedule.WeeklyOn(time.Monday, 8, 0).Next(from)
		assert.Equal(t, time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC), next)
	})

	t.Run("monthly clamps to short months", func(t *testing.T) {
		t.Parallel()
		// Next firing after Jan 31 lands on Feb 28 (2026 is not a leap year).
		jan := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
		next := schedule.MonthlyOn(31, 9, 0).Next(jan)
		assert.Equal(t, time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC), next)
	})
}

func TestNextFireTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	rule := schedule.DailyAt(9, 0)

	t.Run("never fired computes from now", func(t *testing.T) {
		t.Parallel()
		next, ok := schedule.NextFireTime(rule, nil, now)
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("fired computes from last firing", func(t *testing.T) {
		t.Parallel()
		last := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		next, ok := schedule.NextFireTime(rule, &last, now)
		require.True(t, ok)
		// Due: the occurrence after the last firing is already in the past.
		assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), next)
		assert.True(t, next.Before(now))
	})

	t.Run("stalled scheduler yields one missed occurrence", func(t *testing.T) {
		t.Parallel()
		last := time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)
		next, ok := schedule.NextFireTime(rule, &last, now)
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 2, 21, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("invalid rule reports false", func(t *testing.T) {
		t.Parallel()
		_, ok := schedule.NextFireTime(schedule.Rule{}, nil, now)
		assert.False(t, ok)
	})
}
