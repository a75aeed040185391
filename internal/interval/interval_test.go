package interval

import (
	"testing"
	"time"
)

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                   string
		aStart, aEnd           MinuteOfDay
		bStart, bEnd           MinuteOfDay
		want                   bool
	}{
		{"disjoint before", 480, 510, 540, 570, false},
		{"disjoint after", 540, 570, 480, 510, false},
		{"touching end-to-start", 480, 540, 540, 600, false},
		{"touching start-to-end", 540, 600, 480, 540, false},
		{"partial overlap", 480, 540, 510, 570, true},
		{"identical", 480, 540, 480, 540, true},
		{"a contains b", 480, 600, 510, 540, true},
		{"b contains a", 510, 540, 480, 600, true},
		{"one minute overlap", 480, 511, 510, 540, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Errorf("Overlaps(%d,%d,%d,%d) = %v, want %v",
					tc.aStart, tc.aEnd, tc.bStart, tc.bEnd, got, tc.want)
			}
			// overlap is symmetric
			if got := Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd); got != tc.want {
				t.Errorf("Overlaps is not symmetric for %s", tc.name)
			}
		})
	}
}

func TestOverlapsTime(t *testing.T) {
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	if OverlapsTime(base, base.Add(time.Hour), base.Add(time.Hour), base.Add(2*time.Hour)) {
		t.Error("touching timestamps must not overlap")
	}
	if !OverlapsTime(base, base.Add(2*time.Hour), base.Add(time.Hour), base.Add(3*time.Hour)) {
		t.Error("crossing timestamps must overlap")
	}
}

func TestContains(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	if !Contains(day, day.Add(24*time.Hour), day.Add(8*time.Hour), day.Add(12*time.Hour)) {
		t.Error("whole day should contain a morning range")
	}
	if Contains(day.Add(9*time.Hour), day.Add(12*time.Hour), day.Add(8*time.Hour), day.Add(10*time.Hour)) {
		t.Error("partial cover is not containment")
	}
	if !Contains(day, day.Add(time.Hour), day, day.Add(time.Hour)) {
		t.Error("identical ranges contain each other")
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("08:30")
	if err != nil {
		t.Fatalf("ParseClock: %v", err)
	}
	if m != 510 {
		t.Errorf("ParseClock(08:30) = %d, want 510", m)
	}
	if m.Clock() != "08:30" {
		t.Errorf("Clock() = %s, want 08:30", m.Clock())
	}

	for _, bad := range []string{"25:00", "10:75", "garbage", "-1:00"} {
		if _, err := ParseClock(bad); err == nil {
			t.Errorf("ParseClock(%q) should fail", bad)
		}
	}
}

func TestWeekday(t *testing.T) {
	// 2025-03-10 is a Monday.
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if got := Weekday(monday); got != 0 {
		t.Errorf("Weekday(monday) = %d, want 0", got)
	}
	sunday := monday.AddDate(0, 0, 6)
	if got := Weekday(sunday); got != 6 {
		t.Errorf("Weekday(sunday) = %d, want 6", got)
	}
}

func TestAt(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	at := MinuteOfDay(510).At(day)
	if at.Hour() != 8 || at.Minute() != 30 {
		t.Errorf("At() = %v, want 08:30 on the same day", at)
	}
	if !SameDate(at, day) {
		t.Error("At() must stay on the anchor date")
	}
}
