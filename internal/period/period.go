// Package period implements the calendar arithmetic behind quota windows:
// half-open [start, start+length) intervals anchored to midnight, a fixed
// Sunday-start week, and calendar months of varying length.
package period

import (
	"fmt"
	"sort"
	"time"
)

// Period is the calendar span a frequency quota applies over.
type Period string

const (
	Day   Period = "day"
	Week  Period = "week"
	Month Period = "month"
)

// Valid reports whether p is one of the known periods.
func (p Period) Valid() bool {
	switch p {
	case Day, Week, Month:
		return true
	}
	return false
}

// WindowStart returns the start of the window containing now.
// Weeks run Sunday through Saturday regardless of locale.
func WindowStart(p Period, now time.Time) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch p {
	case Day:
		return midnight
	case Week:
		return midnight.AddDate(0, 0, -int(now.Weekday()))
	case Month:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
	return midnight
}

// SameWindow reports whether a and b fall in the same window of p.
func SameWindow(p Period, a, b time.Time) bool {
	return WindowStart(p, a).Equal(WindowStart(p, b))
}

// DigestsRemaining counts the scheduled digest ticks still inside the current
// window, including any later today. timings are "HH:MM" strings, one tick
// per timing per day; a tick at exactly the current minute is counted as spent.
func DigestsRemaining(p Period, now time.Time, timings []string) int {
	nowHM := now.Format("15:04")
	remainingToday := 0
	for _, t := range timings {
		if t > nowHM {
			remainingToday++
		}
	}

	dailySlots := len(timings)

	switch p {
	case Day:
		return remainingToday
	case Week:
		// Days of this week including today: 7 on Sunday down to 1 on Saturday.
		daysIncludingToday := 7 - int(now.Weekday())
		return remainingToday + (daysIncludingToday-1)*dailySlots
	case Month:
		firstOfNext := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
		lastDay := firstOfNext.AddDate(0, 0, -1).Day()
		futureDays := lastDay - now.Day()
		return remainingToday + futureDays*dailySlots
	}
	return remainingToday
}

// ValidateTimings checks that every timing is a parseable "HH:MM" and returns
// them sorted. An empty list is rejected: with zero ticks per day every quota
// is permanently unsatisfiable.
func ValidateTimings(timings []string) ([]string, error) {
	if len(timings) == 0 {
		return nil, fmt.Errorf("at least one digest timing required")
	}
	out := make([]string, len(timings))
	for i, t := range timings {
		if _, err := time.Parse("15:04", t); err != nil {
			return nil, fmt.Errorf("digest timing %q: %w", t, err)
		}
		out[i] = t
	}
	sort.Strings(out)
	return out, nil
}
