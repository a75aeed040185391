package schedule

import (
	"context"
	"time"

	"github.com/medagenda/scheduling-service/internal/interval"
)

// Repository contains all DB interactions needed by the schedule service.
type Repository interface {
	GetRule(ctx context.Context, id int64) (*AvailabilityRule, error)
	// ListActiveRulesByWeekday returns active recurring rules for the
	// professional on the given weekday (0 = Monday).
	ListActiveRulesByWeekday(ctx context.Context, professionalID int64, weekday int) ([]AvailabilityRule, error)
	// ListActiveRulesByDate returns active date-override rules for the exact date.
	ListActiveRulesByDate(ctx context.Context, professionalID int64, date time.Time) ([]AvailabilityRule, error)
	ListRules(ctx context.Context, professionalID int64) ([]AvailabilityRule, error)
	CreateRule(ctx context.Context, rule *AvailabilityRule) error
	UpdateRule(ctx context.Context, rule *AvailabilityRule) error
	// TruncateRuleValidity closes a recurring rule's validity window.
	TruncateRuleValidity(ctx context.Context, id int64, validUntil time.Time) error
	DeleteRule(ctx context.Context, id int64) error

	GetBlackout(ctx context.Context, id int64) (*BlackoutPeriod, error)
	ListBlackouts(ctx context.Context, professionalID int64, from, to time.Time) ([]BlackoutPeriod, error)
	ListFutureBlackouts(ctx context.Context, professionalID int64, after time.Time) ([]BlackoutPeriod, error)
	CreateBlackout(ctx context.Context, b *BlackoutPeriod) error
	DeleteBlackout(ctx context.Context, id int64) error
}

// AppointmentChecker is the lookup the schedule service needs from the
// appointment store when deciding whether a date-override rule may be
// deleted.
type AppointmentChecker interface {
	// AnyActiveInRange reports whether any appointment in a blocking
	// status intersects [start, end) for the professional on the date.
	AnyActiveInRange(ctx context.Context, professionalID int64, date time.Time, start, end interval.MinuteOfDay) (bool, error)
}
