// Package slots turns resolved availability windows into bookable start
// times. The generation itself is a pure function so it can be tested
// without any storage.
package slots

import (
	"sort"

	"github.com/medagenda/scheduling-service/internal/interval"
)

// Reasons a slot is not bookable.
const (
	ReasonBooked       = "booked"
	ReasonInsufficient = "insufficient_time"
)

// Slot is a candidate start time with its availability verdict.
type Slot struct {
	Start     interval.MinuteOfDay `json:"start"`
	Available bool                 `json:"available"`
	Reason    string               `json:"reason,omitempty"`
}

// Occupied is a time range already taken that day, either by an
// appointment in a blocking status or by a partial blackout.
type Occupied struct {
	Start interval.MinuteOfDay
	End   interval.MinuteOfDay
}

// Params controls slot enumeration. Granularity is deliberately
// independent from duration: slots can be offered more finely than they
// are consumed. Buffer is turnover time reserved after the service,
// never exposed as bookable.
type Params struct {
	DurationMinutes    int
	BufferMinutes      int
	GranularityMinutes int
}

// Generate enumerates candidate slots across the given windows.
//
// For each window a cursor advances from its start in granularity
// steps. A candidate reserves [cursor, cursor+duration+buffer); if that
// reservation no longer fits in the window, the remainder is marked as
// one insufficient gap and the window is done. Otherwise the visible
// service interval [cursor, cursor+duration) is tested against every
// occupied interval extended by the buffer at its tail: an occupied
// range keeps its turnover time, so the slot right after a booking goes
// unavailable while a slot ending exactly at the booking's start does
// not.
//
// The result is deduplicated (windows may meet at their edges) and
// sorted by start time, so identical inputs always yield identical
// output.
func Generate(windows []Window, occupied []Occupied, p Params) []Slot {
	if p.DurationMinutes <= 0 || p.GranularityMinutes <= 0 {
		return nil
	}

	duration := interval.MinuteOfDay(p.DurationMinutes)
	buffer := interval.MinuteOfDay(p.BufferMinutes)
	step := interval.MinuteOfDay(p.GranularityMinutes)

	byStart := make(map[interval.MinuteOfDay]Slot)
	for _, w := range windows {
		for cursor := w.Start; cursor < w.End; cursor += step {
			if cursor+duration+buffer > w.End {
				// Remainder too short for a full reservation.
				markSlot(byStart, Slot{Start: cursor, Available: false, Reason: ReasonInsufficient})
				break
			}

			slot := Slot{Start: cursor, Available: true}
			for _, o := range occupied {
				if interval.Overlaps(cursor, cursor+duration, o.Start, o.End+buffer) {
					slot.Available = false
					slot.Reason = ReasonBooked
					break
				}
			}
			markSlot(byStart, slot)
		}
	}

	result := make([]Slot, 0, len(byStart))
	for _, s := range byStart {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start < result[j].Start })
	return result
}

// markSlot keeps the better verdict when two windows produce the same
// start time: an available slot wins over an unavailable one.
func markSlot(byStart map[interval.MinuteOfDay]Slot, s Slot) {
	prev, ok := byStart[s.Start]
	if ok && (prev.Available || !s.Available) {
		return
	}
	byStart[s.Start] = s
}

// Window mirrors schedule.Window without importing it, keeping the
// generator free of dependencies.
type Window struct {
	Start interval.MinuteOfDay
	End   interval.MinuteOfDay
}
