package slots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medagenda/scheduling-service/internal/schedule"
)

type fakeAvailability struct {
	windows   []schedule.Window
	blackouts []schedule.BlackoutPeriod
}

func (f *fakeAvailability) ResolveDay(_ context.Context, _ int64, _ time.Time, _ *int64) ([]schedule.Window, error) {
	return f.windows, nil
}

func (f *fakeAvailability) ListBlackouts(_ context.Context, _ int64, _, _ time.Time) ([]schedule.BlackoutPeriod, error) {
	return f.blackouts, nil
}

type fakeLister struct {
	occupied []Occupied
	excluded []string
}

func (f *fakeLister) ListOccupied(_ context.Context, _ int64, _ time.Time, excludeStatuses []string) ([]Occupied, error) {
	f.excluded = excludeStatuses
	return f.occupied, nil
}

type fakeCatalog struct {
	minutes int
	err     error
}

func (f *fakeCatalog) GetServiceDuration(_ context.Context, _ int64) (int, error) {
	return f.minutes, f.err
}

type fakeStatuses struct{}

func (fakeStatuses) NonBlockingStatuses(_ context.Context) ([]string, error) {
	return []string{"cancelled", "no_show"}, nil
}

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func testWindows(t *testing.T) []schedule.Window {
	t.Helper()
	return []schedule.Window{{Start: clock(t, "08:00"), End: clock(t, "12:00"), PlaceID: 1}}
}

func TestGenerateDayFullBlackout(t *testing.T) {
	avail := &fakeAvailability{
		windows: testWindows(t),
		blackouts: []schedule.BlackoutPeriod{{
			ProfessionalID: 1,
			StartAt:        day.AddDate(0, 0, -2),
			EndAt:          day.AddDate(0, 0, 5),
			Reason:         "vacation",
		}},
	}
	svc := NewService(avail, &fakeLister{}, &fakeCatalog{}, fakeStatuses{}, zerolog.Nop())

	got, err := svc.GenerateDay(context.Background(), Request{ProfessionalID: 1, Date: day, DurationMinutes: 30})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("full-day blackout must yield no slots, got %+v", got)
	}
}

func TestGenerateDayPartialBlackoutOccupies(t *testing.T) {
	avail := &fakeAvailability{
		windows: testWindows(t),
		blackouts: []schedule.BlackoutPeriod{{
			ProfessionalID: 1,
			StartAt:        day.Add(9 * time.Hour),
			EndAt:          day.Add(10 * time.Hour),
			Reason:         "meeting",
		}},
	}
	svc := NewService(avail, &fakeLister{}, &fakeCatalog{}, fakeStatuses{}, zerolog.Nop())

	got, err := svc.GenerateDay(context.Background(), Request{
		ProfessionalID: 1, Date: day,
		DurationMinutes: 30, GranularityMinutes: 30,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if s := slotAt(t, got, "08:30"); !s.Available {
		t.Errorf("08:30 should be free, got %+v", s)
	}
	for _, hhmm := range []string{"09:00", "09:30"} {
		if s := slotAt(t, got, hhmm); s.Available {
			t.Errorf("%s falls inside the blackout, got %+v", hhmm, s)
		}
	}
	if s := slotAt(t, got, "10:00"); !s.Available {
		t.Errorf("10:00 should be free again, got %+v", s)
	}
}

func TestGenerateDayBookedIntervalsExcludeNonBlocking(t *testing.T) {
	avail := &fakeAvailability{windows: testWindows(t)}
	lister := &fakeLister{occupied: []Occupied{{Start: clock(t, "08:00"), End: clock(t, "08:30")}}}
	svc := NewService(avail, lister, &fakeCatalog{}, fakeStatuses{}, zerolog.Nop())

	got, err := svc.GenerateDay(context.Background(), Request{
		ProfessionalID: 1, Date: day,
		DurationMinutes: 30, GranularityMinutes: 30,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if s := slotAt(t, got, "08:00"); s.Available {
		t.Errorf("08:00 is booked, got %+v", s)
	}
	if len(lister.excluded) == 0 {
		t.Error("the lister must be told which statuses do not block")
	}
}

func TestResolveDurationFallsBack(t *testing.T) {
	avail := &fakeAvailability{windows: testWindows(t)}
	serviceID := int64(4)

	// Catalog down -> default 20 minutes.
	svc := NewService(avail, &fakeLister{}, &fakeCatalog{err: errors.New("timeout")}, fakeStatuses{}, zerolog.Nop())
	got, err := svc.GenerateDay(context.Background(), Request{
		ProfessionalID: 1, Date: day, ServiceID: &serviceID, GranularityMinutes: 20,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// 08:00..12:00 with 20-minute slots at 20-minute steps: 12 slots, all fit.
	if len(got) != 12 {
		t.Fatalf("default duration should yield 12 slots, got %d", len(got))
	}

	// Catalog answer wins.
	svc = NewService(avail, &fakeLister{}, &fakeCatalog{minutes: 60}, fakeStatuses{}, zerolog.Nop())
	got, err = svc.GenerateDay(context.Background(), Request{
		ProfessionalID: 1, Date: day, ServiceID: &serviceID, GranularityMinutes: 60,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("60-minute duration should yield 4 slots, got %d", len(got))
	}
}
