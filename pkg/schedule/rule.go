package schedule

import (
	"errors"
	"fmt"
	"time"
)

// Kind discriminates the recurrence rule variants.
type Kind string

const (
	KindInterval Kind = "interval"
	KindHourly   Kind = "hourly"
	KindDaily    Kind = "daily"
	KindWeekly   Kind = "weekly"
	KindMonthly  Kind = "monthly"
)

// ErrInvalidRule is returned when a rule fails validation.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Rule describes when a recurring notification fires. The zero value is not
// a valid rule; construct rules through the factory functions.
type Rule struct {
	Kind Kind `json:"kind"`

	// Every is the period for interval rules.
	Every time.Duration `json:"every,omitempty"`

	// Weekday applies to weekly rules, Day to monthly rules.
	Weekday time.Weekday `json:"weekday,omitempty"`
	Day     int          `json:"day,omitempty"`

	// Hour and Minute fix the time of day for hourly/daily/weekly/monthly
	// rules (hourly uses Minute only).
	Hour   int `json:"hour,omitempty"`
	Minute int `json:"minute,omitempty"`
}

// EveryInterval fires at a fixed period.
func EveryInterval(d time.Duration) Rule {
	return Rule{Kind: KindInterval, Every: d}
}

// HourlyAt fires every hour at the given minute.
func HourlyAt(minute int) Rule {
	return Rule{Kind: KindHourly, Minute: minute}
}

// DailyAt fires every day at the given time.
func DailyAt(hour, minute int) Rule {
	return Rule{Kind: KindDaily, Hour: hour, Minute: minute}
}

// WeeklyOn fires every week on the given weekday and time.
func WeeklyOn(weekday time.Weekday, hour, minute int) Rule {
	return Rule{Kind: KindWeekly, Weekday: weekday, Hour: hour, Minute: minute}
}

// MonthlyOn fires every month on the given day and time. Days past the end
// of a month clamp to its last day.
func MonthlyOn(day, hour, minute int) Rule {
	return Rule{Kind: KindMonthly, Day: day, Hour: hour, Minute: minute}
}

// Validate checks the rule's fields against its kind.
func (r Rule) Validate() error {
	switch r.Kind {
	case KindInterval:
		if r.Every < time.Minute {
			return fmt.Errorf("%w: interval must be at least one minute", ErrInvalidRule)
		}
	case KindHourly:
		if r.Minute < 0 || r.Minute > 59 {
			return fmt.Errorf("%w: minute out of range", ErrInvalidRule)
		}
	case KindDaily, KindWeekly:
		if r.Hour < 0 || r.Hour > 23 || r.Minute < 0 || r.Minute > 59 {
			return fmt.Errorf("%w: time of day out of range", ErrInvalidRule)
		}
	case KindMonthly:
		if r.Day < 1 || r.Day > 31 {
			return fmt.Errorf("%w: day of month out of range", ErrInvalidRule)
		}
		if r.Hour < 0 || r.Hour > 23 || r.Minute < 0 || r.Minute > 59 {
			return fmt.Errorf("%w: time of day out of range", ErrInvalidRule)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRule, r.Kind)
	}
	return nil
}

// Next returns the first occurrence strictly after from.
func (r Rule) Next(from time.Time) time.Time {
	switch r.Kind {
	case KindInterval:
		return from.Add(r.Every)
	case KindHourly:
		next := time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), r.Minute, 0, 0, from.Location())
		if !next.After(from) {
			next = next.Add(time.Hour)
		}
		return next
	case KindDaily:
		next := time.Date(from.Year(), from.Month(), from.Day(), r.Hour, r.Minute, 0, 0, from.Location())
		if !next.After(from) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	case KindWeekly:
		daysUntil := (int(r.Weekday) - int(from.Weekday()) + 7) % 7
		next := from.AddDate(0, 0, daysUntil)
		next = time.Date(next.Year(), next.Month(), next.Day(), r.Hour, r.Minute, 0, 0, next.Location())
		if !next.After(from) {
			next = next.AddDate(0, 0, 7)
		}
		return next
	case KindMonthly:
		year, month := from.Year(), from.Month()
		day := min(r.Day, daysInMonth(year, month))
		next := time.Date(year, month, day, r.Hour, r.Minute, 0, 0, from.Location())
		if !next.After(from) {
			if month == time.December {
				year++
				month = time.January
			} else {
				month++
			}
			day = min(r.Day, daysInMonth(year, month))
			next = time.Date(year, month, day, r.Hour, r.Minute, 0, 0, from.Location())
		}
		return next
	default:
		return time.Time{}
	}
}

func (r Rule) String() string {
	switch r.Kind {
	case KindInterval:
		return fmt.Sprintf("every %v", r.Every)
	case KindHourly:
		return fmt.Sprintf("hourly at :%02d", r.Minute)
	case KindDaily:
		return fmt.Sprintf("daily at %02d:%02d", r.Hour, r.Minute)
	case KindWeekly:
		return fmt.Sprintf("weekly on %s at %02d:%02d", r.Weekday, r.Hour, r.Minute)
	case KindMonthly:
		return fmt.Sprintf("monthly on day %d at %02d:%02d", r.Day, r.Hour, r.Minute)
	default:
		return "invalid"
	}
}

// NextFireTime computes the occurrence following the last firing. A nil
// last means the rule has never fired and the first occurrence is computed
// from now. The result may lie in the past, which is how the scheduler tick
// detects a due firing; a stalled scheduler fires once for the whole missed
// window, not once per missed occurrence. Returns false for an invalid rule.
func NextFireTime(r Rule, last *time.Time, now time.Time) (time.Time, bool) {
	if r.Validate() != nil {
		return time.Time{}, false
	}
	if last == nil {
		return r.Next(now), true
	}
	return r.Next(*last), true
}

func daysInMonth(year int, month time.Month) int {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1).Day()
}
