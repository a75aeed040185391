package interval

import (
	"fmt"
	"time"
)

// MinuteOfDay is a clock time expressed as minutes since midnight.
// Appointments and availability rules store times this way so that
// interval math never touches time zones or DST.
type MinuteOfDay int

const (
	MinutesPerDay = 24 * 60
)

// ParseClock parses "HH:MM" into a MinuteOfDay.
func ParseClock(s string) (MinuteOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return MinuteOfDay(h*60 + m), nil
}

// Clock renders the minute as "HH:MM".
func (m MinuteOfDay) Clock() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// Valid reports whether the minute falls within a single day.
func (m MinuteOfDay) Valid() bool {
	return m >= 0 && m <= MinutesPerDay
}

// At anchors the minute onto the given civil date, in that date's location.
func (m MinuteOfDay) At(date time.Time) time.Time {
	y, mo, d := date.Date()
	return time.Date(y, mo, d, int(m)/60, int(m)%60, 0, 0, date.Location())
}

// Weekday maps a date onto the scheduling weekday convention used by
// availability rules: 0 = Monday .. 6 = Sunday.
func Weekday(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

// DateOnly truncates a timestamp to its civil date at midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDate reports whether two timestamps fall on the same civil date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
