package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medagenda/scheduling-service/internal/apperror"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const ruleColumns = `id, professional_id, place_id, service_id, weekday, start_minute, end_minute, date, valid_until, active, created_at, updated_at`

func scanRule(row pgx.Row) (*AvailabilityRule, error) {
	var r AvailabilityRule
	err := row.Scan(
		&r.ID,
		&r.ProfessionalID,
		&r.PlaceID,
		&r.ServiceID,
		&r.Weekday,
		&r.Start,
		&r.End,
		&r.Date,
		&r.ValidUntil,
		&r.Active,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("rule_not_found", "availability rule not found")
		}
		return nil, err
	}
	return &r, nil
}

func scanRules(rows pgx.Rows) ([]AvailabilityRule, error) {
	defer rows.Close()

	var result []AvailabilityRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

func (repo *PgRepository) GetRule(ctx context.Context, id int64) (*AvailabilityRule, error) {
	row := repo.pool.QueryRow(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE id = $1
	`, id)
	return scanRule(row)
}

func (repo *PgRepository) ListActiveRulesByWeekday(ctx context.Context, professionalID int64, weekday int) ([]AvailabilityRule, error) {
	rows, err := repo.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE professional_id = $1
		  AND weekday = $2
		  AND date IS NULL
		  AND active
		ORDER BY start_minute
	`, professionalID, weekday)
	if err != nil {
		return nil, err
	}
	return scanRules(rows)
}

func (repo *PgRepository) ListActiveRulesByDate(ctx context.Context, professionalID int64, date time.Time) ([]AvailabilityRule, error) {
	rows, err := repo.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE professional_id = $1
		  AND date = $2
		  AND active
		ORDER BY start_minute
	`, professionalID, date)
	if err != nil {
		return nil, err
	}
	return scanRules(rows)
}

func (repo *PgRepository) ListRules(ctx context.Context, professionalID int64) ([]AvailabilityRule, error) {
	rows, err := repo.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE professional_id = $1
		ORDER BY weekday, start_minute
	`, professionalID)
	if err != nil {
		return nil, err
	}
	return scanRules(rows)
}

func (repo *PgRepository) CreateRule(ctx context.Context, rule *AvailabilityRule) error {
	row := repo.pool.QueryRow(ctx, `
		INSERT INTO availability_rules
			(professional_id, place_id, service_id, weekday, start_minute, end_minute, date, valid_until, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING id, created_at, updated_at
	`, rule.ProfessionalID, rule.PlaceID, rule.ServiceID, rule.Weekday,
		rule.Start, rule.End, rule.Date, rule.ValidUntil, rule.Active)

	if err := row.Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return fmt.Errorf("insert availability rule: %w", err)
	}
	return nil
}

func (repo *PgRepository) UpdateRule(ctx context.Context, rule *AvailabilityRule) error {
	tag, err := repo.pool.Exec(ctx, `
		UPDATE availability_rules
		SET place_id = $2,
		    service_id = $3,
		    weekday = $4,
		    start_minute = $5,
		    end_minute = $6,
		    date = $7,
		    valid_until = $8,
		    active = $9,
		    updated_at = now()
		WHERE id = $1
	`, rule.ID, rule.PlaceID, rule.ServiceID, rule.Weekday,
		rule.Start, rule.End, rule.Date, rule.ValidUntil, rule.Active)
	if err != nil {
		return fmt.Errorf("update availability rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("rule_not_found", "availability rule not found")
	}
	return nil
}

func (repo *PgRepository) TruncateRuleValidity(ctx context.Context, id int64, validUntil time.Time) error {
	tag, err := repo.pool.Exec(ctx, `
		UPDATE availability_rules
		SET valid_until = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, validUntil)
	if err != nil {
		return fmt.Errorf("truncate rule validity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("rule_not_found", "availability rule not found")
	}
	return nil
}

func (repo *PgRepository) DeleteRule(ctx context.Context, id int64) error {
	tag, err := repo.pool.Exec(ctx, `DELETE FROM availability_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("rule_not_found", "availability rule not found")
	}
	return nil
}

const blackoutColumns = `id, professional_id, start_at, end_at, reason, created_at`

func scanBlackout(row pgx.Row) (*BlackoutPeriod, error) {
	var b BlackoutPeriod
	err := row.Scan(&b.ID, &b.ProfessionalID, &b.StartAt, &b.EndAt, &b.Reason, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("blackout_not_found", "blackout period not found")
		}
		return nil, err
	}
	return &b, nil
}

func (repo *PgRepository) GetBlackout(ctx context.Context, id int64) (*BlackoutPeriod, error) {
	row := repo.pool.QueryRow(ctx, `
		SELECT `+blackoutColumns+`
		FROM blackout_periods
		WHERE id = $1
	`, id)
	return scanBlackout(row)
}

func (repo *PgRepository) ListBlackouts(ctx context.Context, professionalID int64, from, to time.Time) ([]BlackoutPeriod, error) {
	rows, err := repo.pool.Query(ctx, `
		SELECT `+blackoutColumns+`
		FROM blackout_periods
		WHERE professional_id = $1
		  AND start_at < $3
		  AND end_at > $2
		ORDER BY start_at
	`, professionalID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BlackoutPeriod
	for rows.Next() {
		b, err := scanBlackout(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

func (repo *PgRepository) ListFutureBlackouts(ctx context.Context, professionalID int64, after time.Time) ([]BlackoutPeriod, error) {
	rows, err := repo.pool.Query(ctx, `
		SELECT `+blackoutColumns+`
		FROM blackout_periods
		WHERE professional_id = $1
		  AND start_at > $2
		ORDER BY start_at
	`, professionalID, after)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BlackoutPeriod
	for rows.Next() {
		b, err := scanBlackout(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

func (repo *PgRepository) CreateBlackout(ctx context.Context, b *BlackoutPeriod) error {
	row := repo.pool.QueryRow(ctx, `
		INSERT INTO blackout_periods (professional_id, start_at, end_at, reason, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, created_at
	`, b.ProfessionalID, b.StartAt, b.EndAt, b.Reason)

	if err := row.Scan(&b.ID, &b.CreatedAt); err != nil {
		return fmt.Errorf("insert blackout period: %w", err)
	}
	return nil
}

func (repo *PgRepository) DeleteBlackout(ctx context.Context, id int64) error {
	tag, err := repo.pool.Exec(ctx, `DELETE FROM blackout_periods WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blackout period: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("blackout_not_found", "blackout period not found")
	}
	return nil
}
