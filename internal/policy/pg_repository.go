package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository stores the policy as the single row id = 1, the same
// shape the clinic's previous system used. Get never fails on an empty
// table: it returns the defaults instead.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Get(ctx context.Context) (GlobalPolicy, error) {
	var p GlobalPolicy
	err := r.pool.QueryRow(ctx, `
		SELECT cancel_notice_hours, cancel_block_message,
		       min_booking_lead_minutes, max_per_patient_per_day,
		       allow_same_service_same_day, no_show_threshold,
		       no_show_block_message, exempt_groups
		FROM global_policy
		WHERE id = 1
	`).Scan(
		&p.CancelNoticeHours,
		&p.CancelBlockMessage,
		&p.MinBookingLeadMinutes,
		&p.MaxPerPatientPerDay,
		&p.AllowSameServiceSameDay,
		&p.NoShowThreshold,
		&p.NoShowBlockMessage,
		&p.ExemptGroups,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Default(), nil
		}
		return GlobalPolicy{}, fmt.Errorf("load global policy: %w", err)
	}
	return p, nil
}

func (r *PgRepository) Save(ctx context.Context, p GlobalPolicy) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO global_policy
			(id, cancel_notice_hours, cancel_block_message,
			 min_booking_lead_minutes, max_per_patient_per_day,
			 allow_same_service_same_day, no_show_threshold,
			 no_show_block_message, exempt_groups, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			cancel_notice_hours = EXCLUDED.cancel_notice_hours,
			cancel_block_message = EXCLUDED.cancel_block_message,
			min_booking_lead_minutes = EXCLUDED.min_booking_lead_minutes,
			max_per_patient_per_day = EXCLUDED.max_per_patient_per_day,
			allow_same_service_same_day = EXCLUDED.allow_same_service_same_day,
			no_show_threshold = EXCLUDED.no_show_threshold,
			no_show_block_message = EXCLUDED.no_show_block_message,
			exempt_groups = EXCLUDED.exempt_groups,
			updated_at = now()
	`, p.CancelNoticeHours, p.CancelBlockMessage, p.MinBookingLeadMinutes,
		p.MaxPerPatientPerDay, p.AllowSameServiceSameDay, p.NoShowThreshold,
		p.NoShowBlockMessage, p.ExemptGroups)
	if err != nil {
		return fmt.Errorf("save global policy: %w", err)
	}
	return nil
}
