// Package policy holds the clinic-wide booking rules administrators can
// tune at runtime. The rules live in a single database row but are
// loaded per request and passed by value, so nothing in the service
// depends on a hidden global.
package policy

import (
	"context"
)

// GlobalPolicy is the admissible-booking rule set read by the booking
// validator on every booking and transition.
type GlobalPolicy struct {
	// CancelNoticeHours is the minimum remaining lead time, in hours,
	// a patient needs to cancel.
	CancelNoticeHours int `json:"cancel_notice_hours" validate:"min=0"`
	// CancelBlockMessage is shown when a cancellation misses the notice.
	CancelBlockMessage string `json:"cancel_block_message"`
	// MinBookingLeadMinutes is how far in the future a patient-originated
	// booking must start.
	MinBookingLeadMinutes int `json:"min_booking_lead_minutes" validate:"min=0"`
	// MaxPerPatientPerDay caps a patient's active appointments per day.
	MaxPerPatientPerDay int `json:"max_per_patient_per_day" validate:"min=1"`
	// AllowSameServiceSameDay permits repeating the same service within
	// one day.
	AllowSameServiceSameDay bool `json:"allow_same_service_same_day"`
	// NoShowThreshold blocks patients after this many recorded no-shows;
	// zero disables the rule.
	NoShowThreshold int `json:"no_show_threshold" validate:"min=0"`
	// NoShowBlockMessage is shown to blocked patients.
	NoShowBlockMessage string `json:"no_show_block_message"`
	// ExemptGroups are actor groups free from lead-time rules.
	ExemptGroups []string `json:"exempt_groups"`
}

// Default mirrors the values the clinic has always started from.
func Default() GlobalPolicy {
	return GlobalPolicy{
		CancelNoticeHours:       24,
		CancelBlockMessage:      "Appointments must be cancelled at least 24 hours in advance.",
		MinBookingLeadMinutes:   60,
		MaxPerPatientPerDay:     1,
		AllowSameServiceSameDay: false,
		NoShowThreshold:         3,
		NoShowBlockMessage:      "Your account is blocked due to repeated missed appointments. Please contact the clinic.",
	}
}

// Repository loads and saves the singleton policy row.
type Repository interface {
	Get(ctx context.Context) (GlobalPolicy, error)
	Save(ctx context.Context, p GlobalPolicy) error
}
