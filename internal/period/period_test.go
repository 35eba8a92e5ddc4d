package period

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestWindowStartDay(t *testing.T) {
	now := date(2023, time.October, 25, 14, 30)
	want := date(2023, time.October, 25, 0, 0)
	if got := WindowStart(Day, now); !got.Equal(want) {
		t.Errorf("WindowStart(Day) = %v, want %v", got, want)
	}
}

func TestWindowStartWeekIsSunday(t *testing.T) {
	cases := []struct {
		now  time.Time
		want time.Time
	}{
		// Wednesday → previous Sunday
		{date(2023, time.October, 25, 14, 30), date(2023, time.October, 22, 0, 0)},
		// Sunday itself → same day midnight
		{date(2023, time.October, 29, 23, 59), date(2023, time.October, 29, 0, 0)},
		// Saturday → Sunday six days back
		{date(2023, time.October, 28, 0, 0), date(2023, time.October, 22, 0, 0)},
	}
	for _, c := range cases {
		if got := WindowStart(Week, c.now); !got.Equal(c.want) {
			t.Errorf("WindowStart(Week, %v) = %v, want %v", c.now, got, c.want)
		}
	}
}

func TestWindowStartMonth(t *testing.T) {
	now := date(2024, time.February, 29, 10, 0) // leap day
	want := date(2024, time.February, 1, 0, 0)
	if got := WindowStart(Month, now); !got.Equal(want) {
		t.Errorf("WindowStart(Month) = %v, want %v", got, want)
	}
}

func TestSameWindowWeekBoundary(t *testing.T) {
	saturday := date(2023, time.October, 28, 23, 59)
	sunday := date(2023, time.October, 29, 0, 0)
	if SameWindow(Week, saturday, sunday) {
		t.Error("Saturday night and Sunday midnight must be different weeks")
	}
	monday := date(2023, time.October, 30, 9, 0)
	if !SameWindow(Week, sunday, monday) {
		t.Error("Sunday and the following Monday must share a week")
	}
}

func TestDigestsRemainingDay(t *testing.T) {
	timings := []string{"08:00", "13:00", "20:00"}
	now := date(2023, time.October, 25, 9, 30)
	if got := DigestsRemaining(Day, now, timings); got != 2 {
		t.Errorf("DigestsRemaining(Day) = %d, want 2", got)
	}

	// Exactly at a tick: that tick is spent.
	now = date(2023, time.October, 25, 13, 0)
	if got := DigestsRemaining(Day, now, timings); got != 1 {
		t.Errorf("DigestsRemaining(Day, at tick) = %d, want 1", got)
	}
}

func TestDigestsRemainingWeek(t *testing.T) {
	timings := []string{"09:00"}
	cases := []struct {
		now  time.Time
		want int
	}{
		// Monday morning before the tick: Mon through Sat, 6 ticks.
		{date(2023, time.October, 23, 8, 0), 6},
		// Saturday before the tick: 1.
		{date(2023, time.October, 28, 8, 0), 1},
		// Saturday after the tick: 0.
		{date(2023, time.October, 28, 10, 0), 0},
		// Sunday morning: full week, 7.
		{date(2023, time.October, 29, 8, 0), 7},
	}
	for _, c := range cases {
		if got := DigestsRemaining(Week, c.now, timings); got != c.want {
			t.Errorf("DigestsRemaining(Week, %v) = %d, want %d", c.now, got, c.want)
		}
	}
}

func TestDigestsRemainingWeekMultipleTimings(t *testing.T) {
	timings := []string{"08:00", "20:00"}
	// Friday at noon: one more today, two on Saturday.
	now := date(2023, time.October, 27, 12, 0)
	if got := DigestsRemaining(Week, now, timings); got != 3 {
		t.Errorf("DigestsRemaining = %d, want 3", got)
	}
}

func TestDigestsRemainingMonth(t *testing.T) {
	timings := []string{"09:00"}
	// Feb 2024 has 29 days.
	now := date(2024, time.February, 27, 8, 0)
	if got := DigestsRemaining(Month, now, timings); got != 3 {
		t.Errorf("DigestsRemaining(Month, leap Feb 27) = %d, want 3", got)
	}
	// April has 30.
	now = date(2023, time.April, 30, 10, 0)
	if got := DigestsRemaining(Month, now, timings); got != 0 {
		t.Errorf("DigestsRemaining(Month, Apr 30 after tick) = %d, want 0", got)
	}
}

func TestValidateTimings(t *testing.T) {
	got, err := ValidateTimings([]string{"20:00", "08:00"})
	if err != nil {
		t.Fatalf("ValidateTimings: %v", err)
	}
	if got[0] != "08:00" || got[1] != "20:00" {
		t.Errorf("timings not sorted: %v", got)
	}

	if _, err := ValidateTimings(nil); err == nil {
		t.Error("expected error for empty timings")
	}
	if _, err := ValidateTimings([]string{"25:99"}); err == nil {
		t.Error("expected error for unparseable timing")
	}
}
