package slots

import (
	"reflect"
	"testing"

	"github.com/medagenda/scheduling-service/internal/interval"
)

func clock(t *testing.T, s string) interval.MinuteOfDay {
	t.Helper()
	m, err := interval.ParseClock(s)
	if err != nil {
		t.Fatalf("parse clock %s: %v", s, err)
	}
	return m
}

func slotAt(t *testing.T, got []Slot, hhmm string) Slot {
	t.Helper()
	want := clock(t, hhmm)
	for _, s := range got {
		if s.Start == want {
			return s
		}
	}
	t.Fatalf("no slot at %s in %+v", hhmm, got)
	return Slot{}
}

func TestGenerateMorningScenario(t *testing.T) {
	// Monday 08:00-12:00, duration=30, buffer=5, granularity=15.
	windows := []Window{{Start: clock(t, "08:00"), End: clock(t, "12:00")}}
	params := Params{DurationMinutes: 30, BufferMinutes: 5, GranularityMinutes: 15}

	free := Generate(windows, nil, params)
	for _, hhmm := range []string{"08:00", "08:15", "08:30"} {
		if s := slotAt(t, free, hhmm); !s.Available {
			t.Errorf("slot %s should be available on an empty day, got %+v", hhmm, s)
		}
	}

	// An existing booking 08:30-09:00 removes 08:15 and 08:30 (the
	// 5 minute buffer makes 08:15 reserve until 08:50) but not 08:00.
	booked := []Occupied{{Start: clock(t, "08:30"), End: clock(t, "09:00")}}
	got := Generate(windows, booked, params)

	if s := slotAt(t, got, "08:00"); !s.Available {
		t.Errorf("08:00 must stay available, got %+v", s)
	}
	for _, hhmm := range []string{"08:15", "08:30"} {
		s := slotAt(t, got, hhmm)
		if s.Available {
			t.Errorf("%s must be unavailable, got %+v", hhmm, s)
		}
		if s.Reason != ReasonBooked {
			t.Errorf("%s reason = %q, want %q", hhmm, s.Reason, ReasonBooked)
		}
	}
	// The booking's turnover buffer spills into 09:00.
	if s := slotAt(t, got, "09:00"); s.Available {
		t.Errorf("09:00 must be blocked by the booking's buffer, got %+v", s)
	}
	if s := slotAt(t, got, "09:15"); !s.Available {
		t.Errorf("09:15 must be available again, got %+v", s)
	}
}

func TestGenerateTouchingBookingDoesNotConflict(t *testing.T) {
	windows := []Window{{Start: clock(t, "08:00"), End: clock(t, "12:00")}}
	params := Params{DurationMinutes: 30, GranularityMinutes: 30}

	// Booking starts exactly where the 08:00 reservation ends.
	booked := []Occupied{{Start: clock(t, "08:30"), End: clock(t, "09:00")}}
	got := Generate(windows, booked, params)

	if s := slotAt(t, got, "08:00"); !s.Available {
		t.Errorf("08:00 with no buffer must not conflict with 08:30 booking, got %+v", s)
	}
}

func TestGenerateInsufficientTail(t *testing.T) {
	windows := []Window{{Start: clock(t, "08:00"), End: clock(t, "09:00")}}
	params := Params{DurationMinutes: 30, BufferMinutes: 5, GranularityMinutes: 15}

	got := Generate(windows, nil, params)

	// 08:00 fits (ends 08:35), 08:15 fits (ends 08:50), 08:30 would
	// reserve until 09:05 -> insufficient gap, scan stops.
	if s := slotAt(t, got, "08:15"); !s.Available {
		t.Errorf("08:15 should fit, got %+v", s)
	}
	last := slotAt(t, got, "08:30")
	if last.Available || last.Reason != ReasonInsufficient {
		t.Errorf("08:30 should be the insufficient remainder, got %+v", last)
	}
	if len(got) != 3 {
		t.Errorf("scan must stop after the insufficient gap, got %+v", got)
	}
}

func TestGenerateDeterministicAndSorted(t *testing.T) {
	windows := []Window{
		{Start: clock(t, "14:00"), End: clock(t, "16:00")},
		{Start: clock(t, "08:00"), End: clock(t, "10:00")},
	}
	params := Params{DurationMinutes: 20, GranularityMinutes: 20}

	first := Generate(windows, nil, params)
	second := Generate(windows, nil, params)
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs must yield identical output")
	}

	for i := 1; i < len(first); i++ {
		if first[i-1].Start >= first[i].Start {
			t.Fatalf("slots must be strictly ordered, got %+v", first)
		}
	}
}

func TestGenerateDeduplicatesAcrossWindows(t *testing.T) {
	// Back-to-back windows produce one verdict per start time.
	windows := []Window{
		{Start: clock(t, "08:00"), End: clock(t, "09:45")},
		{Start: clock(t, "08:00"), End: clock(t, "12:00")},
	}
	params := Params{DurationMinutes: 30, GranularityMinutes: 30}
	got := Generate(windows, nil, params)

	seen := map[interval.MinuteOfDay]int{}
	for _, s := range got {
		seen[s.Start]++
	}
	for start, n := range seen {
		if n != 1 {
			t.Errorf("start %s appears %d times", start.Clock(), n)
		}
	}
	// The wider window makes 09:30 bookable even though the narrow one
	// would have flagged it insufficient.
	if s := slotAt(t, got, "09:30"); !s.Available {
		t.Errorf("09:30 must take the available verdict, got %+v", s)
	}
}

func TestGenerateDegenerateParams(t *testing.T) {
	windows := []Window{{Start: clock(t, "08:00"), End: clock(t, "10:00")}}

	if got := Generate(windows, nil, Params{DurationMinutes: 0, GranularityMinutes: 15}); got != nil {
		t.Errorf("zero duration must yield nil, got %+v", got)
	}
	if got := Generate(windows, nil, Params{DurationMinutes: 30, GranularityMinutes: 0}); got != nil {
		t.Errorf("zero granularity must yield nil, got %+v", got)
	}
	if got := Generate(nil, nil, Params{DurationMinutes: 30, GranularityMinutes: 15}); len(got) != 0 {
		t.Errorf("no windows must yield no slots, got %+v", got)
	}
}
