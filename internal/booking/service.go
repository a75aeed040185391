// Package booking implements the booking pipeline and the status
// transitions of appointments. Every admission decision happens here;
// the API layer only translates requests and errors.
package booking

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medagenda/scheduling-service/internal/apperror"
	"github.com/medagenda/scheduling-service/internal/directory"
	"github.com/medagenda/scheduling-service/internal/interval"
	"github.com/medagenda/scheduling-service/internal/policy"
	redisclient "github.com/medagenda/scheduling-service/internal/redis"
	"github.com/medagenda/scheduling-service/internal/schedule"
	"github.com/medagenda/scheduling-service/internal/slots"
	"github.com/medagenda/scheduling-service/internal/workflow"
)

const (
	// unresolvedName marks history rows the enrichment worker should
	// revisit.
	unresolvedName = directory.UnknownName

	// nameLookupTimeout bounds the best-effort snapshot lookups so a
	// slow directory service cannot stall a booking.
	nameLookupTimeout = 2 * time.Second

	// completionGrace lets staff mark an appointment completed slightly
	// before its scheduled start.
	completionGrace = 15 * time.Minute
)

// Blackouts is the slice of the schedule service the booking pipeline
// needs: blocked periods overlapping a candidate interval.
type Blackouts interface {
	ListBlackouts(ctx context.Context, professionalID int64, from, to time.Time) ([]schedule.BlackoutPeriod, error)
}

type Service struct {
	repo          Repository
	locker        redisclient.Locker
	workflows     workflow.Store
	policies      policy.Repository
	catalog       directory.Catalog
	patients      directory.Patients
	professionals directory.Professionals
	blackouts     Blackouts
	now           func() time.Time
	log           zerolog.Logger
}

func NewService(
	repo Repository,
	locker redisclient.Locker,
	workflows workflow.Store,
	policies policy.Repository,
	catalog directory.Catalog,
	patients directory.Patients,
	professionals directory.Professionals,
	blackouts Blackouts,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:          repo,
		locker:        locker,
		workflows:     workflows,
		policies:      policies,
		catalog:       catalog,
		patients:      patients,
		professionals: professionals,
		blackouts:     blackouts,
		now:           time.Now,
		log:           log,
	}
}

// CreateBooking runs the full admission pipeline and, when every check
// passes, inserts the appointment in its initial status together with
// the first history entry. The cheap checks run before the agenda lock
// is taken; everything that depends on other appointments runs inside
// the locked transaction.
func (s *Service) CreateBooking(ctx context.Context, req Request, actor workflow.Actor) (*Appointment, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	pol, err := s.policies.Get(ctx)
	if err != nil {
		return nil, err
	}
	def, err := s.workflows.Active(ctx)
	if err != nil {
		return nil, err
	}

	duration := s.resolveDuration(ctx, req.ServiceID)
	end := req.Start + interval.MinuteOfDay(duration)
	if !end.Valid() {
		return nil, apperror.Validation("crosses_midnight", "the appointment must end within the booked day")
	}

	if err := s.checkNoShowBlock(ctx, def, pol, req.PatientID); err != nil {
		return nil, err
	}
	if err := s.checkLeadTime(req, pol, actor); err != nil {
		return nil, err
	}

	startAt := req.Start.At(req.Date)
	blocked, err := s.blackouts.ListBlackouts(ctx, req.ProfessionalID, startAt, end.At(req.Date))
	if err != nil {
		return nil, err
	}
	if len(blocked) > 0 {
		return nil, apperror.Conflict("professional_unavailable", "the professional is unavailable at the requested time")
	}

	names := s.snapshotNames(ctx, req.ProfessionalID, req.PatientID, req.ServiceID)

	var created *Appointment
	err = s.locker.WithAgendaLock(ctx, req.ProfessionalID, req.Date, func(ctx context.Context) error {
		return s.repo.InTx(ctx, func(ctx context.Context, tx TxRepository) error {
			excluded := def.NonBlocking()

			held, err := tx.LockAgenda(ctx, req.ProfessionalID, req.Date, excluded)
			if err != nil {
				return err
			}
			for _, other := range held {
				if interval.Overlaps(req.Start, end, other.Start, other.End) {
					return apperror.Conflict("slot_taken", "the professional is already booked from %s to %s",
						other.Start.Clock(), other.End.Clock())
				}
			}

			mine, err := tx.ListPatientDay(ctx, req.PatientID, req.Date, excluded)
			if err != nil {
				return err
			}
			for _, other := range mine {
				if interval.Overlaps(req.Start, end, other.Start, other.End) {
					return apperror.Conflict("patient_conflict", "the patient already has an appointment from %s to %s",
						other.Start.Clock(), other.End.Clock())
				}
			}
			if pol.MaxPerPatientPerDay > 0 && len(mine) >= pol.MaxPerPatientPerDay {
				return apperror.Policy("daily_limit", "patients may book at most %d appointment(s) per day", pol.MaxPerPatientPerDay).
					WithMeta("max_per_day", pol.MaxPerPatientPerDay)
			}
			if req.ServiceID != nil && !pol.AllowSameServiceSameDay {
				dup, err := tx.HasSameServiceDay(ctx, req.PatientID, *req.ServiceID, req.Date, excluded)
				if err != nil {
					return err
				}
				if dup {
					return apperror.Policy("service_repeat", "the patient already has this service booked for that day")
				}
			}

			appt := &Appointment{
				ProfessionalID: req.ProfessionalID,
				PatientID:      req.PatientID,
				PlaceID:        req.PlaceID,
				ServiceID:      req.ServiceID,
				Date:           interval.DateOnly(req.Date),
				Start:          req.Start,
				End:            end,
				Status:         def.Initial().Name,
				PatientNote:    req.PatientNote,
				Active:         true,
			}
			if err := tx.Insert(ctx, appt); err != nil {
				return err
			}
			created = appt
			return tx.InsertHistory(ctx, s.historyEntry(appt, "", appt.Status, actor, req.PatientNote, names))
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, apperror.Conflict("agenda_busy", "another booking for this agenda is in progress, please retry")
		}
		return nil, err
	}

	s.log.Info().
		Int64("appointment_id", created.ID).
		Int64("professional_id", created.ProfessionalID).
		Int64("patient_id", created.PatientID).
		Str("date", created.Date.Format("2006-01-02")).
		Str("start", created.Start.Clock()).
		Msg("appointment booked")
	return created, nil
}

func validateRequest(req Request) error {
	if req.ProfessionalID <= 0 || req.PatientID <= 0 || req.PlaceID <= 0 {
		return apperror.Validation("invalid_reference", "professional, patient and place are required")
	}
	if req.Date.IsZero() {
		return apperror.Validation("invalid_date", "a booking date is required")
	}
	if !req.Start.Valid() || req.Start >= interval.MinutesPerDay {
		return apperror.Validation("invalid_time", "start time must fall within the day")
	}
	return nil
}

func (s *Service) resolveDuration(ctx context.Context, serviceID *int64) int {
	if serviceID == nil {
		return slots.DefaultDurationMinutes
	}
	minutes, err := s.catalog.GetServiceDuration(ctx, *serviceID)
	if err != nil || minutes <= 0 {
		s.log.Warn().Err(err).Int64("service_id", *serviceID).
			Msg("service duration unavailable, using default")
		return slots.DefaultDurationMinutes
	}
	return minutes
}

// checkNoShowBlock rejects patients who hit the no-show threshold. The
// patients service tells us when the counter was last reset; when that
// lookup fails the whole history counts, so an outage can never let a
// blocked patient through.
func (s *Service) checkNoShowBlock(ctx context.Context, def *workflow.Definition, pol policy.GlobalPolicy, patientID int64) error {
	if pol.NoShowThreshold <= 0 {
		return nil
	}
	statuses := noShowStatuses(def)
	if len(statuses) == 0 {
		return nil
	}

	after, err := s.patients.GetUnblockDate(ctx, patientID)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return err
		}
		s.log.Warn().Err(err).Int64("patient_id", patientID).
			Msg("patients service unavailable, counting full no-show history")
		after = nil
	}

	count, err := s.repo.CountNoShows(ctx, patientID, statuses, after)
	if err != nil {
		return err
	}
	if count >= pol.NoShowThreshold {
		return apperror.Policy("no_show_block", "%s", pol.NoShowBlockMessage).
			WithMeta("no_show_count", count)
	}
	return nil
}

func (s *Service) checkLeadTime(req Request, pol policy.GlobalPolicy, actor workflow.Actor) error {
	if req.StaffOrigin || actor.Admin || actor.Staff || actor.InGroup(pol.ExemptGroups) {
		return nil
	}
	if pol.MinBookingLeadMinutes <= 0 {
		return nil
	}
	startAt := req.Start.At(req.Date)
	if startAt.Before(s.now().Add(time.Duration(pol.MinBookingLeadMinutes) * time.Minute)) {
		return apperror.Policy("lead_time", "bookings must be made at least %d minutes in advance", pol.MinBookingLeadMinutes).
			WithMeta("min_lead_minutes", pol.MinBookingLeadMinutes)
	}
	return nil
}

func noShowStatuses(def *workflow.Definition) []string {
	var names []string
	for _, st := range def.States {
		if st.Category == workflow.CategoryNoShow {
			names = append(names, st.Name)
		}
	}
	return names
}

// Transition moves an appointment to the target status after the
// workflow authorizes the move and the category guards pass. The row is
// locked for the duration, so two racing transitions serialize and the
// loser re-evaluates against the winner's status.
func (s *Service) Transition(ctx context.Context, id int64, target, note string, actor workflow.Actor) (*Appointment, error) {
	def, err := s.workflows.Active(ctx)
	if err != nil {
		return nil, err
	}
	pol, err := s.policies.Get(ctx)
	if err != nil {
		return nil, err
	}

	// Snapshot names before opening the transaction; the directory
	// calls must not run under row locks.
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	names := s.snapshotNames(ctx, current.ProfessionalID, current.PatientID, current.ServiceID)

	var updated *Appointment
	err = s.repo.InTx(ctx, func(ctx context.Context, tx TxRepository) error {
		appt, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		decision, action, err := workflow.Authorize(def, appt.Status, target, actor)
		if err != nil {
			return err
		}
		if decision == workflow.DecisionTouch {
			updated, err = tx.Touch(ctx, id)
			return err
		}

		if action.RequiresNote && strings.TrimSpace(note) == "" {
			return apperror.Validation("note_required", "a note is required when moving to %s", target)
		}
		if err := s.guardTransition(def, appt, target, actor, pol); err != nil {
			return err
		}

		updated, err = tx.UpdateStatus(ctx, id, target, note)
		if err != nil {
			return err
		}
		return tx.InsertHistory(ctx, s.historyEntry(appt, appt.Status, target, actor, note, names))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("appointment_id", updated.ID).
		Str("from", current.Status).
		Str("to", updated.Status).
		Str("actor", actor.Name).
		Msg("appointment transition")
	return updated, nil
}

// guardTransition applies the domain rules keyed off the target state's
// category. Admins bypass the timing rules for completion and
// cancellation but not the future-no-show rule: a no-show that has not
// happened yet is a contradiction, not a permission problem.
func (s *Service) guardTransition(def *workflow.Definition, appt *Appointment, target string, actor workflow.Actor, pol policy.GlobalPolicy) error {
	st, ok := def.State(target)
	if !ok {
		return nil
	}
	now := s.now()

	switch st.Category {
	case workflow.CategoryNoShow:
		if appt.StartAt().After(now) {
			return apperror.Policy("appointment_in_future", "cannot record a no-show before the appointment starts")
		}

	case workflow.CategoryCompleted:
		if !actor.Admin && appt.StartAt().Sub(now) > completionGrace {
			return apperror.Policy("too_early", "the appointment has not started yet")
		}

	case workflow.CategoryCancelled:
		if actor.Admin {
			return nil
		}
		start := appt.StartAt()
		if !start.After(now) {
			return apperror.Policy("already_started", "past appointments cannot be cancelled")
		}
		remaining := start.Sub(now)
		if remaining < time.Duration(pol.CancelNoticeHours)*time.Hour {
			return apperror.Policy("cancel_notice", "%s", pol.CancelBlockMessage).
				WithMeta("hours_remaining", math.Round(remaining.Hours()*10)/10).
				WithMeta("required_hours", pol.CancelNoticeHours)
		}
	}
	return nil
}

func (s *Service) historyEntry(appt *Appointment, oldStatus, newStatus string, actor workflow.Actor, note string, names nameSnapshot) *HistoryEntry {
	actorName := actor.Name
	if actorName == "" {
		actorName = "system"
	}
	return &HistoryEntry{
		AppointmentID:    appt.ID,
		ProfessionalID:   appt.ProfessionalID,
		PatientID:        appt.PatientID,
		PlaceID:          appt.PlaceID,
		ServiceID:        appt.ServiceID,
		ProfessionalName: names.professional,
		PatientName:      names.patient,
		ServiceName:      names.service,
		Date:             appt.Date,
		Start:            appt.Start,
		OldStatus:        oldStatus,
		NewStatus:        newStatus,
		Actor:            actorName,
		Note:             note,
	}
}

type nameSnapshot struct {
	professional string
	patient      string
	service      string
}

// snapshotNames resolves display names for a history entry. Lookups are
// best effort under a short deadline; anything unresolved is written as
// "unknown" and backfilled later by the enrichment worker.
func (s *Service) snapshotNames(ctx context.Context, professionalID, patientID int64, serviceID *int64) nameSnapshot {
	ctx, cancel := context.WithTimeout(ctx, nameLookupTimeout)
	defer cancel()

	snap := nameSnapshot{professional: unresolvedName, patient: unresolvedName}

	if m, err := s.professionals.GetNames(ctx, []int64{professionalID}); err == nil {
		snap.professional = m[professionalID]
	} else {
		s.log.Warn().Err(err).Msg("professional name lookup failed")
	}
	if m, err := s.patients.GetNames(ctx, []int64{patientID}); err == nil {
		snap.patient = m[patientID]
	} else {
		s.log.Warn().Err(err).Msg("patient name lookup failed")
	}
	if serviceID != nil {
		if name, err := s.catalog.GetServiceName(ctx, *serviceID); err == nil {
			snap.service = name
		} else {
			s.log.Warn().Err(err).Msg("service name lookup failed")
		}
	}
	return snap
}

func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Appointment, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) ListHistory(ctx context.Context, appointmentID int64) ([]HistoryEntry, error) {
	return s.repo.ListHistory(ctx, appointmentID)
}

// ListOccupied implements the slot generator's appointment lister.
func (s *Service) ListOccupied(ctx context.Context, professionalID int64, date time.Time, excludeStatuses []string) ([]slots.Occupied, error) {
	return s.repo.ListOccupied(ctx, professionalID, date, excludeStatuses)
}

// NonBlockingStatuses exposes the active workflow's non-blocking set to
// the slot generator.
func (s *Service) NonBlockingStatuses(ctx context.Context) ([]string, error) {
	def, err := s.workflows.Active(ctx)
	if err != nil {
		return nil, err
	}
	return def.NonBlocking(), nil
}

// AnyActiveInRange implements the schedule service's appointment check
// for override-rule deletion.
func (s *Service) AnyActiveInRange(ctx context.Context, professionalID int64, date time.Time, start, end interval.MinuteOfDay) (bool, error) {
	def, err := s.workflows.Active(ctx)
	if err != nil {
		return false, err
	}
	return s.repo.AnyInRange(ctx, professionalID, date, start, end, def.NonBlocking())
}
