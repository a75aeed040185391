package booking

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medagenda/scheduling-service/internal/apperror"
	"github.com/medagenda/scheduling-service/internal/interval"
	"github.com/medagenda/scheduling-service/internal/policy"
	redisclient "github.com/medagenda/scheduling-service/internal/redis"
	"github.com/medagenda/scheduling-service/internal/schedule"
	"github.com/medagenda/scheduling-service/internal/slots"
	"github.com/medagenda/scheduling-service/internal/workflow"
)

// -- Mocks --

type mockRepo struct {
	appts      map[int64]*Appointment
	history    []HistoryEntry
	nextID     int64
	nextHistID int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: make(map[int64]*Appointment), nextID: 1, nextHistID: 1}
}

func statusExcluded(status string, excluded []string) bool {
	for _, e := range excluded {
		if status == e {
			return true
		}
	}
	return false
}

func (m *mockRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return fn(ctx, &mockTx{repo: m})
}

func (m *mockRepo) Get(_ context.Context, id int64) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, apperror.NotFound("appointment_not_found", "appointment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, f Filter) ([]Appointment, error) {
	var out []Appointment
	for _, a := range m.appts {
		if f.ProfessionalID != nil && a.ProfessionalID != *f.ProfessionalID {
			continue
		}
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.Date != nil && !interval.SameDate(a.Date, *f.Date) {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockRepo) ListOccupied(_ context.Context, professionalID int64, date time.Time, excluded []string) ([]slots.Occupied, error) {
	var out []slots.Occupied
	for _, a := range m.appts {
		if a.ProfessionalID == professionalID && a.Active && interval.SameDate(a.Date, date) && !statusExcluded(a.Status, excluded) {
			out = append(out, slots.Occupied{Start: a.Start, End: a.End})
		}
	}
	return out, nil
}

func (m *mockRepo) AnyInRange(_ context.Context, professionalID int64, date time.Time, start, end interval.MinuteOfDay, excluded []string) (bool, error) {
	for _, a := range m.appts {
		if a.ProfessionalID == professionalID && a.Active && interval.SameDate(a.Date, date) &&
			!statusExcluded(a.Status, excluded) && interval.Overlaps(start, end, a.Start, a.End) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) CountNoShows(_ context.Context, patientID int64, noShowStatuses []string, after *time.Time) (int, error) {
	count := 0
	for _, a := range m.appts {
		if a.PatientID != patientID || !statusExcluded(a.Status, noShowStatuses) {
			continue
		}
		if after != nil && !a.Date.After(interval.DateOnly(*after)) {
			continue
		}
		count++
	}
	return count, nil
}

func (m *mockRepo) ListHistory(_ context.Context, appointmentID int64) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for _, h := range m.history {
		if h.AppointmentID == appointmentID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockRepo) ListHistoryMissingNames(_ context.Context, limit int) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for _, h := range m.history {
		if h.ProfessionalName == unresolvedName || h.PatientName == unresolvedName {
			out = append(out, h)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *mockRepo) UpdateHistoryNames(_ context.Context, id int64, professionalName, patientName, serviceName string) error {
	for i := range m.history {
		if m.history[i].ID == id {
			m.history[i].ProfessionalName = professionalName
			m.history[i].PatientName = patientName
			m.history[i].ServiceName = serviceName
			return nil
		}
	}
	return apperror.NotFound("history_not_found", "history entry not found")
}

type mockTx struct {
	repo *mockRepo
}

func (t *mockTx) LockAgenda(_ context.Context, professionalID int64, date time.Time, excluded []string) ([]Appointment, error) {
	var out []Appointment
	for _, a := range t.repo.appts {
		if a.ProfessionalID == professionalID && a.Active && interval.SameDate(a.Date, date) && !statusExcluded(a.Status, excluded) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (t *mockTx) ListPatientDay(_ context.Context, patientID int64, date time.Time, excluded []string) ([]Appointment, error) {
	var out []Appointment
	for _, a := range t.repo.appts {
		if a.PatientID == patientID && a.Active && interval.SameDate(a.Date, date) && !statusExcluded(a.Status, excluded) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (t *mockTx) HasSameServiceDay(_ context.Context, patientID, serviceID int64, date time.Time, excluded []string) (bool, error) {
	for _, a := range t.repo.appts {
		if a.PatientID == patientID && a.Active && interval.SameDate(a.Date, date) &&
			a.ServiceID != nil && *a.ServiceID == serviceID && !statusExcluded(a.Status, excluded) {
			return true, nil
		}
	}
	return false, nil
}

func (t *mockTx) Insert(_ context.Context, appt *Appointment) error {
	appt.ID = t.repo.nextID
	t.repo.nextID++
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	cp := *appt
	t.repo.appts[appt.ID] = &cp
	return nil
}

func (t *mockTx) GetForUpdate(ctx context.Context, id int64) (*Appointment, error) {
	return t.repo.Get(ctx, id)
}

func (t *mockTx) UpdateStatus(_ context.Context, id int64, status, note string) (*Appointment, error) {
	a, ok := t.repo.appts[id]
	if !ok {
		return nil, apperror.NotFound("appointment_not_found", "appointment not found")
	}
	a.Status = status
	if note != "" {
		if a.StaffNote == "" {
			a.StaffNote = note
		} else {
			a.StaffNote += "\n" + note
		}
	}
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (t *mockTx) Touch(_ context.Context, id int64) (*Appointment, error) {
	a, ok := t.repo.appts[id]
	if !ok {
		return nil, apperror.NotFound("appointment_not_found", "appointment not found")
	}
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (t *mockTx) InsertHistory(_ context.Context, entry *HistoryEntry) error {
	entry.ID = t.repo.nextHistID
	t.repo.nextHistID++
	entry.RecordedAt = time.Now()
	t.repo.history = append(t.repo.history, *entry)
	return nil
}

type fakeLocker struct {
	err error
}

func (l fakeLocker) WithAgendaLock(ctx context.Context, _ int64, _ time.Time, fn func(ctx context.Context) error) error {
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

type fakeWorkflows struct{}

func (fakeWorkflows) Active(context.Context) (*workflow.Definition, error) { return workflow.Default(), nil }
func (fakeWorkflows) Save(context.Context, *workflow.Definition) error     { return nil }

type fakePolicies struct {
	p policy.GlobalPolicy
}

func (f *fakePolicies) Get(context.Context) (policy.GlobalPolicy, error)  { return f.p, nil }
func (f *fakePolicies) Save(_ context.Context, p policy.GlobalPolicy) error {
	f.p = p
	return nil
}

type fakeCatalog struct {
	durations map[int64]int
	names     map[int64]string
	err       error
}

func (f *fakeCatalog) GetServiceDuration(_ context.Context, id int64) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.durations[id], nil
}

func (f *fakeCatalog) GetServiceName(_ context.Context, id int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.names[id], nil
}

type fakePatients struct {
	unblock  *time.Time
	names    map[int64]string
	dirErr   error
	namesErr error
}

func (f *fakePatients) GetUnblockDate(_ context.Context, _ int64) (*time.Time, error) {
	if f.dirErr != nil {
		return nil, f.dirErr
	}
	return f.unblock, nil
}

func (f *fakePatients) GetNames(_ context.Context, ids []int64) (map[int64]string, error) {
	if f.namesErr != nil {
		return nil, f.namesErr
	}
	out := map[int64]string{}
	for _, id := range ids {
		if n, ok := f.names[id]; ok {
			out[id] = n
		} else {
			out[id] = unresolvedName
		}
	}
	return out, nil
}

type fakeProfessionals struct {
	names map[int64]string
	err   error
}

func (f *fakeProfessionals) GetNames(_ context.Context, ids []int64) (map[int64]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[int64]string{}
	for _, id := range ids {
		if n, ok := f.names[id]; ok {
			out[id] = n
		} else {
			out[id] = unresolvedName
		}
	}
	return out, nil
}

type fakeBlackouts struct {
	periods []schedule.BlackoutPeriod
}

func (f *fakeBlackouts) ListBlackouts(_ context.Context, professionalID int64, from, to time.Time) ([]schedule.BlackoutPeriod, error) {
	var out []schedule.BlackoutPeriod
	for _, b := range f.periods {
		if b.ProfessionalID == professionalID && interval.OverlapsTime(b.StartAt, b.EndAt, from, to) {
			out = append(out, b)
		}
	}
	return out, nil
}

// -- Fixture --

type fixture struct {
	repo          *mockRepo
	locker        *fakeLocker
	policies      *fakePolicies
	catalog       *fakeCatalog
	patients      *fakePatients
	professionals *fakeProfessionals
	blackouts     *fakeBlackouts
	svc           *Service
	now           time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newMockRepo(),
		locker:   &fakeLocker{},
		policies: &fakePolicies{p: policy.Default()},
		catalog: &fakeCatalog{
			durations: map[int64]int{10: 30},
			names:     map[int64]string{10: "General checkup"},
		},
		patients:      &fakePatients{names: map[int64]string{2: "Ana Suarez"}},
		professionals: &fakeProfessionals{names: map[int64]string{1: "Dr. Vega"}},
		blackouts:     &fakeBlackouts{},
		// A Monday morning.
		now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.repo, f.locker, fakeWorkflows{}, f.policies, f.catalog,
		f.patients, f.professionals, f.blackouts, zerolog.Nop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func serviceID(id int64) *int64 { return &id }

func (f *fixture) request() Request {
	return Request{
		ProfessionalID: 1,
		PatientID:      2,
		PlaceID:        3,
		ServiceID:      serviceID(10),
		Date:           time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		Start:          10 * 60, // 10:00
	}
}

func (f *fixture) seed(t *testing.T, a Appointment) *Appointment {
	t.Helper()
	if a.Status == "" {
		a.Status = "pending"
	}
	a.Active = true
	var out *Appointment
	err := f.repo.InTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		if err := tx.Insert(ctx, &a); err != nil {
			return err
		}
		out = &a
		return nil
	})
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return out
}

func wantCode(t *testing.T, err error, kind apperror.Kind, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v/%s error, got nil", kind, code)
	}
	ae, ok := apperror.As(err)
	if !ok {
		t.Fatalf("expected app error, got %v", err)
	}
	if ae.Kind != kind || ae.Code != code {
		t.Fatalf("expected %v/%s, got %v/%s (%s)", kind, code, ae.Kind, ae.Code, ae.Message)
	}
}

var patientActor = workflow.Actor{ID: 2, Name: "Ana Suarez"}
var staffActor = workflow.Actor{ID: 50, Name: "Front Desk", Staff: true}
var adminActor = workflow.Actor{ID: 99, Name: "Admin", Admin: true}

// -- Booking --

func TestCreateBookingHappyPath(t *testing.T) {
	f := newFixture()

	appt, err := f.svc.CreateBooking(context.Background(), f.request(), patientActor)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if appt.Status != "pending" {
		t.Errorf("expected initial status pending, got %s", appt.Status)
	}
	if appt.End != appt.Start+30 {
		t.Errorf("expected catalog duration of 30 minutes, got end %s", appt.End.Clock())
	}

	history, err := f.svc.ListHistory(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	h := history[0]
	if h.OldStatus != "" || h.NewStatus != "pending" {
		t.Errorf("unexpected history statuses %q -> %q", h.OldStatus, h.NewStatus)
	}
	if h.ProfessionalName != "Dr. Vega" || h.PatientName != "Ana Suarez" || h.ServiceName != "General checkup" {
		t.Errorf("unexpected name snapshots: %q / %q / %q", h.ProfessionalName, h.PatientName, h.ServiceName)
	}
}

func TestCreateBookingDurationFallsBack(t *testing.T) {
	f := newFixture()
	f.catalog.err = apperror.Dependency("catalog_unreachable", "down")

	appt, err := f.svc.CreateBooking(context.Background(), f.request(), patientActor)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if appt.End != appt.Start+slots.DefaultDurationMinutes {
		t.Errorf("expected default duration, got end %s", appt.End.Clock())
	}
}

func TestCreateBookingSlotTaken(t *testing.T) {
	f := newFixture()
	req := f.request()
	f.seed(t, Appointment{
		ProfessionalID: 1, PatientID: 7, PlaceID: 3,
		Date: req.Date, Start: req.Start + 15, End: req.Start + 45,
	})

	_, err := f.svc.CreateBooking(context.Background(), req, patientActor)
	wantCode(t, err, apperror.KindConflict, "slot_taken")
}

func TestCreateBookingCancelledDoesNotBlock(t *testing.T) {
	f := newFixture()
	req := f.request()
	f.seed(t, Appointment{
		ProfessionalID: 1, PatientID: 7, PlaceID: 3, Status: "cancelled",
		Date: req.Date, Start: req.Start, End: req.Start + 30,
	})

	if _, err := f.svc.CreateBooking(context.Background(), req, patientActor); err != nil {
		t.Fatalf("cancelled appointment should not block the slot: %v", err)
	}
}

func TestCreateBookingPatientConflict(t *testing.T) {
	f := newFixture()
	f.policies.p.MaxPerPatientPerDay = 3
	req := f.request()
	// Same patient, different professional, overlapping time.
	f.seed(t, Appointment{
		ProfessionalID: 8, PatientID: 2, PlaceID: 3,
		Date: req.Date, Start: req.Start, End: req.Start + 20,
	})

	_, err := f.svc.CreateBooking(context.Background(), req, patientActor)
	wantCode(t, err, apperror.KindConflict, "patient_conflict")
}

func TestCreateBookingDailyLimit(t *testing.T) {
	f := newFixture()
	req := f.request()
	f.seed(t, Appointment{
		ProfessionalID: 8, PatientID: 2, PlaceID: 3,
		Date: req.Date, Start: 16 * 60, End: 16*60 + 30,
	})

	_, err := f.svc.CreateBooking(context.Background(), req, patientActor)
	wantCode(t, err, apperror.KindPolicy, "daily_limit")
}

func TestCreateBookingSameServiceRepeat(t *testing.T) {
	f := newFixture()
	f.policies.p.MaxPerPatientPerDay = 3
	req := f.request()
	f.seed(t, Appointment{
		ProfessionalID: 8, PatientID: 2, PlaceID: 3, ServiceID: serviceID(10),
		Date: req.Date, Start: 16 * 60, End: 16*60 + 30,
	})

	_, err := f.svc.CreateBooking(context.Background(), req, patientActor)
	wantCode(t, err, apperror.KindPolicy, "service_repeat")

	f.policies.p.AllowSameServiceSameDay = true
	if _, err := f.svc.CreateBooking(context.Background(), req, patientActor); err != nil {
		t.Fatalf("repeat should be allowed by policy: %v", err)
	}
}

func TestCreateBookingLeadTime(t *testing.T) {
	f := newFixture()
	req := f.request()
	req.Date = interval.DateOnly(f.now)
	req.Start = 9*60 + 30 // 30 minutes from now, policy wants 60

	_, err := f.svc.CreateBooking(context.Background(), req, patientActor)
	wantCode(t, err, apperror.KindPolicy, "lead_time")

	req.StaffOrigin = true
	if _, err := f.svc.CreateBooking(context.Background(), req, staffActor); err != nil {
		t.Fatalf("staff booking should skip the lead-time rule: %v", err)
	}
}

func TestCreateBookingNoShowBlock(t *testing.T) {
	f := newFixture()
	req := f.request()
	for day := 1; day <= 3; day++ {
		f.seed(t, Appointment{
			ProfessionalID: 1, PatientID: 2, PlaceID: 3, Status: "no_show",
			Date:  time.Date(2025, 2, day, 0, 0, 0, 0, time.UTC),
			Start: 10 * 60, End: 10*60 + 20,
		})
	}

	_, err := f.svc.CreateBooking(context.Background(), req, patientActor)
	wantCode(t, err, apperror.KindPolicy, "no_show_block")

	// An unblock date after the strikes resets the counter.
	unblock := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	f.patients.unblock = &unblock
	if _, err := f.svc.CreateBooking(context.Background(), req, patientActor); err != nil {
		t.Fatalf("unblocked patient should book: %v", err)
	}
}

func TestCreateBookingNoShowBlockFailsClosed(t *testing.T) {
	f := newFixture()
	req := f.request()
	for day := 1; day <= 3; day++ {
		f.seed(t, Appointment{
			ProfessionalID: 1, PatientID: 2, PlaceID: 3, Status: "no_show",
			Date:  time.Date(2025, 2, day, 0, 0, 0, 0, time.UTC),
			Start: 10 * 60, End: 10*60 + 20,
		})
	}
	unblock := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	f.patients.unblock = &unblock
	f.patients.dirErr = apperror.Dependency("patients_unreachable", "down")

	// With the patients service down the unblock date is unknown, so the
	// full history counts.
	_, err := f.svc.CreateBooking(context.Background(), req, patientActor)
	wantCode(t, err, apperror.KindPolicy, "no_show_block")
}

func TestCreateBookingBlackout(t *testing.T) {
	f := newFixture()
	req := f.request()
	f.blackouts.periods = []schedule.BlackoutPeriod{{
		ProfessionalID: 1,
		StartAt:        time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC),
		EndAt:          time.Date(2025, 3, 12, 11, 0, 0, 0, time.UTC),
	}}

	_, err := f.svc.CreateBooking(context.Background(), req, patientActor)
	wantCode(t, err, apperror.KindConflict, "professional_unavailable")
}

func TestCreateBookingAgendaBusy(t *testing.T) {
	f := newFixture()
	f.locker.err = redisclient.ErrLockNotAcquired

	_, err := f.svc.CreateBooking(context.Background(), f.request(), patientActor)
	wantCode(t, err, apperror.KindConflict, "agenda_busy")
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture()

	req := f.request()
	req.PatientID = 0
	_, err := f.svc.CreateBooking(context.Background(), req, patientActor)
	wantCode(t, err, apperror.KindValidation, "invalid_reference")

	req = f.request()
	req.Start = 23*60 + 50 // 30-minute service would cross midnight
	_, err = f.svc.CreateBooking(context.Background(), req, patientActor)
	wantCode(t, err, apperror.KindValidation, "crosses_midnight")
}

// -- Transitions --

func TestTransitionDeclaredEdge(t *testing.T) {
	f := newFixture()
	appt := f.seed(t, Appointment{
		ProfessionalID: 1, PatientID: 2, PlaceID: 3,
		Date: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), Start: 10 * 60, End: 10*60 + 30,
	})

	updated, err := f.svc.Transition(context.Background(), appt.ID, "accepted", "", staffActor)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if updated.Status != "accepted" {
		t.Errorf("expected accepted, got %s", updated.Status)
	}

	history, _ := f.svc.ListHistory(context.Background(), appt.ID)
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	if history[0].OldStatus != "pending" || history[0].NewStatus != "accepted" {
		t.Errorf("unexpected history %q -> %q", history[0].OldStatus, history[0].NewStatus)
	}
}

func TestTransitionUndeclaredEdge(t *testing.T) {
	f := newFixture()
	appt := f.seed(t, Appointment{
		ProfessionalID: 1, PatientID: 2, PlaceID: 3,
		Date: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), Start: 10 * 60, End: 10*60 + 30,
	})

	_, err := f.svc.Transition(context.Background(), appt.ID, "in_room", "", staffActor)
	wantCode(t, err, apperror.KindPolicy, "transition_not_allowed")

	// Admins may force the move.
	if _, err := f.svc.Transition(context.Background(), appt.ID, "in_room", "", adminActor); err != nil {
		t.Fatalf("admin force: %v", err)
	}
}

func TestTransitionCancelRequiresNote(t *testing.T) {
	f := newFixture()
	appt := f.seed(t, Appointment{
		ProfessionalID: 1, PatientID: 2, PlaceID: 3,
		Date: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), Start: 10 * 60, End: 10*60 + 30,
	})

	_, err := f.svc.Transition(context.Background(), appt.ID, "cancelled", "  ", staffActor)
	wantCode(t, err, apperror.KindValidation, "note_required")
}

func TestTransitionCancelNotice(t *testing.T) {
	f := newFixture()
	// Starts two hours from now; policy requires 24 hours of notice.
	appt := f.seed(t, Appointment{
		ProfessionalID: 1, PatientID: 2, PlaceID: 3, Status: "accepted",
		Date: interval.DateOnly(f.now), Start: 11 * 60, End: 11*60 + 30,
	})

	_, err := f.svc.Transition(context.Background(), appt.ID, "cancelled", "cannot make it", patientActor)
	wantCode(t, err, apperror.KindPolicy, "cancel_notice")
	ae, _ := apperror.As(err)
	if ae.Meta["hours_remaining"] != 2.0 {
		t.Errorf("expected hours_remaining 2, got %v", ae.Meta["hours_remaining"])
	}

	// Admins bypass the notice window.
	if _, err := f.svc.Transition(context.Background(), appt.ID, "cancelled", "emergency", adminActor); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
}

func TestTransitionCancelWithNotice(t *testing.T) {
	f := newFixture()
	appt := f.seed(t, Appointment{
		ProfessionalID: 1, PatientID: 2, PlaceID: 3, Status: "accepted",
		Date: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), Start: 10 * 60, End: 10*60 + 30,
	})

	updated, err := f.svc.Transition(context.Background(), appt.ID, "cancelled", "rescheduling", patientActor)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if updated.Status != "cancelled" {
		t.Errorf("expected cancelled, got %s", updated.Status)
	}
	if updated.StaffNote != "rescheduling" {
		t.Errorf("expected note appended, got %q", updated.StaffNote)
	}
}

func TestTransitionNoShowFuture(t *testing.T) {
	f := newFixture()
	appt := f.seed(t, Appointment{
		ProfessionalID: 1, PatientID: 2, PlaceID: 3, Status: "accepted",
		Date: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), Start: 10 * 60, End: 10*60 + 30,
	})

	// Not even an admin can record a no-show before the start time.
	_, err := f.svc.Transition(context.Background(), appt.ID, "no_show", "", adminActor)
	wantCode(t, err, apperror.KindPolicy, "appointment_in_future")
}

func TestTransitionNoShowPast(t *testing.T) {
	f := newFixture()
	appt := f.seed(t, Appointment{
		ProfessionalID: 1, PatientID: 2, PlaceID: 3, Status: "accepted",
		Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), Start: 8 * 60, End: 8*60 + 30,
	})

	updated, err := f.svc.Transition(context.Background(), appt.ID, "no_show", "", staffActor)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if updated.Status != "no_show" {
		t.Errorf("expected no_show, got %s", updated.Status)
	}
}

func TestTransitionCompleteTooEarly(t *testing.T) {
	f := newFixture()
	appt := f.seed(t, Appointment{
		ProfessionalID: 1, PatientID: 2, PlaceID: 3, Status: "called",
		Date: interval.DateOnly(f.now), Start: 11 * 60, End: 11*60 + 30,
	})

	_, err := f.svc.Transition(context.Background(), appt.ID, "completed", "done", staffActor)
	wantCode(t, err, apperror.KindPolicy, "too_early")

	if _, err := f.svc.Transition(context.Background(), appt.ID, "completed", "done", adminActor); err != nil {
		t.Fatalf("admin completion: %v", err)
	}
}

func TestTransitionCompleteWithinGrace(t *testing.T) {
	f := newFixture()
	// Starts ten minutes from now, inside the grace window.
	appt := f.seed(t, Appointment{
		ProfessionalID: 1, PatientID: 2, PlaceID: 3, Status: "called",
		Date: interval.DateOnly(f.now), Start: 9*60 + 10, End: 9*60 + 40,
	})

	if _, err := f.svc.Transition(context.Background(), appt.ID, "completed", "done", staffActor); err != nil {
		t.Fatalf("Transition: %v", err)
	}
}

func TestTransitionTerminalStatus(t *testing.T) {
	f := newFixture()
	appt := f.seed(t, Appointment{
		ProfessionalID: 1, PatientID: 2, PlaceID: 3, Status: "completed",
		Date: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), Start: 10 * 60, End: 10*60 + 30,
	})

	_, err := f.svc.Transition(context.Background(), appt.ID, "accepted", "", staffActor)
	wantCode(t, err, apperror.KindPolicy, "terminal_status")
}

func TestTransitionReConfirmTouches(t *testing.T) {
	f := newFixture()
	appt := f.seed(t, Appointment{
		ProfessionalID: 1, PatientID: 2, PlaceID: 3, Status: "accepted",
		Date: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), Start: 10 * 60, End: 10*60 + 30,
	})

	updated, err := f.svc.Transition(context.Background(), appt.ID, "accepted", "", patientActor)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if updated.Status != "accepted" {
		t.Errorf("expected status unchanged, got %s", updated.Status)
	}
	history, _ := f.svc.ListHistory(context.Background(), appt.ID)
	if len(history) != 0 {
		t.Errorf("re-confirm should not write history, got %d entries", len(history))
	}
}

func TestTransitionNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Transition(context.Background(), 404, "accepted", "", staffActor)
	wantCode(t, err, apperror.KindNotFound, "appointment_not_found")
}

// -- Enrichment --

func TestEnrichHistoryBackfillsNames(t *testing.T) {
	f := newFixture()
	f.professionals.err = apperror.Dependency("professionals_unreachable", "down")
	f.patients.namesErr = apperror.Dependency("patients_unreachable", "down")

	appt, err := f.svc.CreateBooking(context.Background(), f.request(), patientActor)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	history, _ := f.svc.ListHistory(context.Background(), appt.ID)
	if history[0].ProfessionalName != unresolvedName || history[0].PatientName != unresolvedName {
		t.Fatalf("expected unresolved snapshots, got %q / %q", history[0].ProfessionalName, history[0].PatientName)
	}

	// Directory comes back; the worker backfills.
	f.professionals.err = nil
	f.patients.namesErr = nil

	updated, err := f.svc.EnrichHistory(context.Background(), 50)
	if err != nil {
		t.Fatalf("EnrichHistory: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 row updated, got %d", updated)
	}
	history, _ = f.svc.ListHistory(context.Background(), appt.ID)
	if history[0].ProfessionalName != "Dr. Vega" || history[0].PatientName != "Ana Suarez" {
		t.Errorf("expected backfilled names, got %q / %q", history[0].ProfessionalName, history[0].PatientName)
	}

	// Nothing left to do on the next pass.
	updated, err = f.svc.EnrichHistory(context.Background(), 50)
	if err != nil || updated != 0 {
		t.Fatalf("expected no-op second pass, got %d, %v", updated, err)
	}
}
