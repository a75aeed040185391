package schedule

import (
	"time"

	"github.com/medagenda/scheduling-service/internal/interval"
)

// AvailabilityRule is one block of bookable time for a professional.
// A rule is either recurring (Date nil, applies on its Weekday until
// ValidUntil) or a date-specific override (Date set, Weekday only
// informative). Overrides take absolute precedence over recurring rules
// on their date.
type AvailabilityRule struct {
	ID             int64
	ProfessionalID int64
	PlaceID        int64
	ServiceID      *int64 // nil = applies to all services
	Weekday        int    // 0 = Monday .. 6 = Sunday
	Start          interval.MinuteOfDay
	End            interval.MinuteOfDay
	Date           *time.Time // override date; nil = recurring
	ValidUntil     *time.Time // recurring rules only; nil = open ended
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Recurring reports whether the rule repeats weekly.
func (r *AvailabilityRule) Recurring() bool { return r.Date == nil }

// AppliesOn reports whether a recurring rule is in force on the given date.
func (r *AvailabilityRule) AppliesOn(date time.Time) bool {
	if !r.Recurring() {
		return r.Date != nil && interval.SameDate(*r.Date, date)
	}
	if r.Weekday != interval.Weekday(date) {
		return false
	}
	if r.ValidUntil != nil && r.ValidUntil.Before(interval.DateOnly(date)) {
		return false
	}
	return true
}

// MatchesService reports whether the rule covers the given service.
// Rules with no service apply to every service.
func (r *AvailabilityRule) MatchesService(serviceID *int64) bool {
	if serviceID == nil || r.ServiceID == nil {
		return true
	}
	return *r.ServiceID == *serviceID
}

// BlackoutPeriod fully suppresses slot generation and booking for a
// professional over an absolute time range (vacations, leave).
type BlackoutPeriod struct {
	ID             int64
	ProfessionalID int64
	StartAt        time.Time
	EndAt          time.Time
	Reason         string
	CreatedAt      time.Time
}

// Window is one resolved bookable range on a concrete date.
type Window struct {
	Start   interval.MinuteOfDay
	End     interval.MinuteOfDay
	PlaceID int64
}
