// Package interval holds the half-open interval primitives every
// scheduling check in this service is built on. Getting the boundary
// semantics wrong here produces either phantom conflicts or missed
// double-bookings, so the package stays tiny and exhaustively tested.
package interval

import "time"

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching boundaries do not overlap: a slot
// ending at 09:00 does not conflict with one starting at 09:00.
func Overlaps(aStart, aEnd, bStart, bEnd MinuteOfDay) bool {
	return aStart < bEnd && aEnd > bStart
}

// OverlapsTime is Overlaps for absolute timestamps, used for blackout
// periods which span whole datetimes rather than minutes of a day.
func OverlapsTime(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Contains reports whether [outerStart, outerEnd) fully covers
// [innerStart, innerEnd).
func Contains(outerStart, outerEnd, innerStart, innerEnd time.Time) bool {
	return !outerStart.After(innerStart) && !outerEnd.Before(innerEnd)
}
