package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/medagenda/scheduling-service/internal/apperror"
	"github.com/medagenda/scheduling-service/internal/interval"
)

type Service struct {
	repo  Repository
	appts AppointmentChecker
	log   zerolog.Logger
}

func NewService(repo Repository, appts AppointmentChecker, log zerolog.Logger) *Service {
	return &Service{
		repo:  repo,
		appts: appts,
		log:   log.With().Str("component", "schedule").Logger(),
	}
}

// ResolveDay returns the bookable windows for a professional on a date,
// ordered by start time. Date-override rules take absolute precedence:
// if any exist for the date, recurring rules are ignored entirely.
func (s *Service) ResolveDay(ctx context.Context, professionalID int64, date time.Time, serviceID *int64) ([]Window, error) {
	overrides, err := s.repo.ListActiveRulesByDate(ctx, professionalID, date)
	if err != nil {
		return nil, fmt.Errorf("list override rules: %w", err)
	}

	var pool []AvailabilityRule
	if len(overrides) > 0 {
		pool = overrides
	} else {
		recurring, err := s.repo.ListActiveRulesByWeekday(ctx, professionalID, interval.Weekday(date))
		if err != nil {
			return nil, fmt.Errorf("list recurring rules: %w", err)
		}
		for _, r := range recurring {
			if r.AppliesOn(date) {
				pool = append(pool, r)
			}
		}
	}

	var windows []Window
	for _, r := range pool {
		if !r.MatchesService(serviceID) {
			continue
		}
		windows = append(windows, Window{Start: r.Start, End: r.End, PlaceID: r.PlaceID})
	}

	sort.Slice(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })
	return windows, nil
}

// CreateRule validates and stores a new availability rule.
func (s *Service) CreateRule(ctx context.Context, rule *AvailabilityRule) (*AvailabilityRule, error) {
	if err := s.validateRule(ctx, rule); err != nil {
		return nil, err
	}

	rule.Active = true
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}

	s.log.Info().
		Int64("rule_id", rule.ID).
		Int64("professional_id", rule.ProfessionalID).
		Msg("availability rule created")
	return rule, nil
}

// UpdateRule validates and stores changes to an existing rule.
func (s *Service) UpdateRule(ctx context.Context, rule *AvailabilityRule) (*AvailabilityRule, error) {
	if _, err := s.repo.GetRule(ctx, rule.ID); err != nil {
		return nil, err
	}
	if err := s.validateRule(ctx, rule); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}
	return rule, nil
}

func (s *Service) validateRule(ctx context.Context, rule *AvailabilityRule) error {
	if !rule.Start.Valid() || !rule.End.Valid() {
		return apperror.Validation("invalid_time", "start and end must be valid clock times")
	}
	if rule.Start >= rule.End {
		return apperror.Validation("invalid_time_range", "start time must be before end time")
	}
	if rule.Date == nil && (rule.Weekday < 0 || rule.Weekday > 6) {
		return apperror.Validation("invalid_weekday", "weekday must be between 0 (Monday) and 6 (Sunday)")
	}
	if rule.Date != nil && rule.ValidUntil != nil {
		return apperror.Validation("invalid_rule", "a date-specific rule cannot carry a recurrence validity end")
	}

	// Overlap check against rules resolving to the same day.
	var peers []AvailabilityRule
	var err error
	if rule.Date != nil {
		peers, err = s.repo.ListActiveRulesByDate(ctx, rule.ProfessionalID, *rule.Date)
	} else {
		peers, err = s.repo.ListActiveRulesByWeekday(ctx, rule.ProfessionalID, rule.Weekday)
	}
	if err != nil {
		return fmt.Errorf("list peer rules: %w", err)
	}

	for _, p := range peers {
		if p.ID == rule.ID {
			continue
		}
		if interval.Overlaps(rule.Start, rule.End, p.Start, p.End) {
			return apperror.Conflict("rule_overlap",
				"time range %s-%s overlaps existing rule %s-%s",
				rule.Start.Clock(), rule.End.Clock(), p.Start.Clock(), p.End.Clock())
		}
	}
	return nil
}

// DeleteRule retires or removes an availability rule.
//
// Recurring rules are never hard-deleted: their validity window is
// closed as of yesterday so history stays intact, and any future
// blackout periods fully contained in the retired time range on
// matching weekdays are cleaned up.
//
// Date-override rules are deleted outright, but only if no appointment
// in a blocking status intersects them; contained same-day blackouts
// are removed first.
func (s *Service) DeleteRule(ctx context.Context, id int64, now time.Time) error {
	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return err
	}

	if rule.Recurring() {
		yesterday := interval.DateOnly(now).AddDate(0, 0, -1)
		if err := s.repo.TruncateRuleValidity(ctx, rule.ID, yesterday); err != nil {
			return fmt.Errorf("truncate rule validity: %w", err)
		}
		if err := s.cleanOrphanBlackouts(ctx, rule, now); err != nil {
			return err
		}
		s.log.Info().Int64("rule_id", rule.ID).Msg("recurring rule retired")
		return nil
	}

	busy, err := s.appts.AnyActiveInRange(ctx, rule.ProfessionalID, *rule.Date, rule.Start, rule.End)
	if err != nil {
		return fmt.Errorf("check appointments for rule: %w", err)
	}
	if busy {
		return apperror.Conflict("rule_has_appointments",
			"cannot delete the %s schedule: appointments exist in its time range", rule.Date.Format("2006-01-02"))
	}

	dayStart := rule.Start.At(*rule.Date)
	dayEnd := rule.End.At(*rule.Date)
	blackouts, err := s.repo.ListBlackouts(ctx, rule.ProfessionalID, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("list blackouts for rule: %w", err)
	}
	for _, b := range blackouts {
		if interval.Contains(dayStart, dayEnd, b.StartAt, b.EndAt) {
			if err := s.repo.DeleteBlackout(ctx, b.ID); err != nil {
				return fmt.Errorf("delete contained blackout %d: %w", b.ID, err)
			}
		}
	}

	if err := s.repo.DeleteRule(ctx, rule.ID); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	s.log.Info().Int64("rule_id", rule.ID).Msg("override rule deleted")
	return nil
}

// cleanOrphanBlackouts removes future blackouts that only existed to
// punch holes in the retired recurring rule.
func (s *Service) cleanOrphanBlackouts(ctx context.Context, rule *AvailabilityRule, now time.Time) error {
	blackouts, err := s.repo.ListFutureBlackouts(ctx, rule.ProfessionalID, now)
	if err != nil {
		return fmt.Errorf("list future blackouts: %w", err)
	}
	for _, b := range blackouts {
		if interval.Weekday(b.StartAt) != rule.Weekday || !interval.SameDate(b.StartAt, b.EndAt) {
			continue
		}
		ruleStart := rule.Start.At(b.StartAt)
		ruleEnd := rule.End.At(b.StartAt)
		if interval.Contains(ruleStart, ruleEnd, b.StartAt, b.EndAt) {
			if err := s.repo.DeleteBlackout(ctx, b.ID); err != nil {
				return fmt.Errorf("delete orphan blackout %d: %w", b.ID, err)
			}
			s.log.Debug().Int64("blackout_id", b.ID).Msg("orphan blackout removed")
		}
	}
	return nil
}

// DuplicateDay copies one date's override rules onto another date.
// Any overlap on the target date rejects the whole copy.
func (s *Service) DuplicateDay(ctx context.Context, professionalID int64, from, to time.Time) ([]AvailabilityRule, error) {
	if interval.SameDate(from, to) {
		return nil, apperror.Validation("same_date", "source and target dates are the same")
	}

	source, err := s.repo.ListActiveRulesByDate(ctx, professionalID, from)
	if err != nil {
		return nil, fmt.Errorf("list source rules: %w", err)
	}
	if len(source) == 0 {
		return nil, apperror.NotFound("no_source_rules", "no schedule found on %s", from.Format("2006-01-02"))
	}

	existing, err := s.repo.ListActiveRulesByDate(ctx, professionalID, to)
	if err != nil {
		return nil, fmt.Errorf("list target rules: %w", err)
	}
	for _, src := range source {
		for _, e := range existing {
			if interval.Overlaps(src.Start, src.End, e.Start, e.End) {
				return nil, apperror.Conflict("rule_overlap",
					"target date already has a schedule overlapping %s-%s", src.Start.Clock(), src.End.Clock())
			}
		}
	}

	target := interval.DateOnly(to)
	copies := make([]AvailabilityRule, 0, len(source))
	for _, src := range source {
		dup := AvailabilityRule{
			ProfessionalID: professionalID,
			PlaceID:        src.PlaceID,
			ServiceID:      src.ServiceID,
			Weekday:        interval.Weekday(target),
			Start:          src.Start,
			End:            src.End,
			Date:           &target,
			Active:         true,
		}
		if err := s.repo.CreateRule(ctx, &dup); err != nil {
			return nil, fmt.Errorf("copy rule %d: %w", src.ID, err)
		}
		copies = append(copies, dup)
	}

	s.log.Info().
		Int64("professional_id", professionalID).
		Str("from", from.Format("2006-01-02")).
		Str("to", to.Format("2006-01-02")).
		Int("rules", len(copies)).
		Msg("day schedule duplicated")
	return copies, nil
}

// ListRules returns every rule for a professional, active or retired.
func (s *Service) ListRules(ctx context.Context, professionalID int64) ([]AvailabilityRule, error) {
	return s.repo.ListRules(ctx, professionalID)
}

// CreateBlackout validates and stores a blackout period.
func (s *Service) CreateBlackout(ctx context.Context, b *BlackoutPeriod) (*BlackoutPeriod, error) {
	if !b.StartAt.Before(b.EndAt) {
		return nil, apperror.Validation("invalid_time_range", "blackout start must be before its end")
	}
	if err := s.repo.CreateBlackout(ctx, b); err != nil {
		return nil, fmt.Errorf("create blackout: %w", err)
	}
	return b, nil
}

// DeleteBlackout removes a blackout period.
func (s *Service) DeleteBlackout(ctx context.Context, id int64) error {
	if _, err := s.repo.GetBlackout(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteBlackout(ctx, id)
}

// ListBlackouts returns blackouts intersecting [from, to) for a professional.
func (s *Service) ListBlackouts(ctx context.Context, professionalID int64, from, to time.Time) ([]BlackoutPeriod, error) {
	return s.repo.ListBlackouts(ctx, professionalID, from, to)
}
