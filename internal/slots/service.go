package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/medagenda/scheduling-service/internal/interval"
	"github.com/medagenda/scheduling-service/internal/schedule"
)

const (
	DefaultDurationMinutes    = 20
	DefaultGranularityMinutes = 15
)

// Availability resolves a professional's bookable windows for a date.
type Availability interface {
	ResolveDay(ctx context.Context, professionalID int64, date time.Time, serviceID *int64) ([]schedule.Window, error)
	ListBlackouts(ctx context.Context, professionalID int64, from, to time.Time) ([]schedule.BlackoutPeriod, error)
}

// AppointmentLister exposes the occupied intervals already booked for a
// professional on a date, excluding non-blocking statuses.
type AppointmentLister interface {
	ListOccupied(ctx context.Context, professionalID int64, date time.Time, excludeStatuses []string) ([]Occupied, error)
}

// Catalog looks up service durations. Failures degrade to the default
// duration instead of failing the request.
type Catalog interface {
	GetServiceDuration(ctx context.Context, serviceID int64) (int, error)
}

// BlockingStatuses reports which appointment statuses do not count as
// occupying time (per the active workflow definition).
type BlockingStatuses interface {
	NonBlockingStatuses(ctx context.Context) ([]string, error)
}

type Request struct {
	ProfessionalID     int64
	Date               time.Time
	ServiceID          *int64
	DurationMinutes    int // 0 = resolve from catalog, fallback default
	BufferMinutes      int
	GranularityMinutes int // 0 = default
}

type Service struct {
	availability Availability
	appointments AppointmentLister
	catalog      Catalog
	statuses     BlockingStatuses
	log          zerolog.Logger
}

func NewService(availability Availability, appointments AppointmentLister, catalog Catalog, statuses BlockingStatuses, log zerolog.Logger) *Service {
	return &Service{
		availability: availability,
		appointments: appointments,
		catalog:      catalog,
		statuses:     statuses,
		log:          log.With().Str("component", "slots").Logger(),
	}
}

// GenerateDay produces the slot list for one professional/date/service.
func (s *Service) GenerateDay(ctx context.Context, req Request) ([]Slot, error) {
	dayStart := interval.DateOnly(req.Date)
	dayEnd := dayStart.AddDate(0, 0, 1)

	blackouts, err := s.availability.ListBlackouts(ctx, req.ProfessionalID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("list blackouts: %w", err)
	}
	// A blackout covering the whole day suppresses everything.
	for _, b := range blackouts {
		if interval.Contains(b.StartAt, b.EndAt, dayStart, dayEnd) {
			return []Slot{}, nil
		}
	}

	scheduleWindows, err := s.availability.ResolveDay(ctx, req.ProfessionalID, req.Date, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("resolve availability: %w", err)
	}
	if len(scheduleWindows) == 0 {
		return []Slot{}, nil
	}

	windows := make([]Window, len(scheduleWindows))
	for i, w := range scheduleWindows {
		windows[i] = Window{Start: w.Start, End: w.End}
	}

	occupied, err := s.occupiedIntervals(ctx, req, blackouts, dayStart)
	if err != nil {
		return nil, err
	}

	params := Params{
		DurationMinutes:    s.resolveDuration(ctx, req),
		BufferMinutes:      req.BufferMinutes,
		GranularityMinutes: req.GranularityMinutes,
	}
	if params.GranularityMinutes <= 0 {
		params.GranularityMinutes = DefaultGranularityMinutes
	}

	return Generate(windows, occupied, params), nil
}

func (s *Service) occupiedIntervals(ctx context.Context, req Request, blackouts []schedule.BlackoutPeriod, dayStart time.Time) ([]Occupied, error) {
	excluded, err := s.statuses.NonBlockingStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve non-blocking statuses: %w", err)
	}

	occupied, err := s.appointments.ListOccupied(ctx, req.ProfessionalID, req.Date, excluded)
	if err != nil {
		return nil, fmt.Errorf("list booked intervals: %w", err)
	}

	// Partial blackouts occupy their clipped minute range.
	dayEnd := dayStart.AddDate(0, 0, 1)
	for _, b := range blackouts {
		start := b.StartAt
		if start.Before(dayStart) {
			start = dayStart
		}
		end := b.EndAt
		if end.After(dayEnd) {
			end = dayEnd
		}
		occupied = append(occupied, Occupied{
			Start: interval.MinuteOfDay(start.Sub(dayStart) / time.Minute),
			End:   interval.MinuteOfDay(end.Sub(dayStart) / time.Minute),
		})
	}
	return occupied, nil
}

func (s *Service) resolveDuration(ctx context.Context, req Request) int {
	if req.DurationMinutes > 0 {
		return req.DurationMinutes
	}
	if req.ServiceID != nil {
		minutes, err := s.catalog.GetServiceDuration(ctx, *req.ServiceID)
		if err == nil && minutes > 0 {
			return minutes
		}
		if err != nil {
			s.log.Warn().Err(err).Int64("service_id", *req.ServiceID).
				Msg("service duration lookup failed, using default")
		}
	}
	return DefaultDurationMinutes
}
