package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medagenda/scheduling-service/internal/apperror"
	"github.com/medagenda/scheduling-service/internal/interval"
	"github.com/medagenda/scheduling-service/internal/slots"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `id, professional_id, patient_id, place_id, service_id, date, start_minute, end_minute, status, patient_note, staff_note, active, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.ProfessionalID,
		&a.PatientID,
		&a.PlaceID,
		&a.ServiceID,
		&a.Date,
		&a.Start,
		&a.End,
		&a.Status,
		&a.PatientNote,
		&a.StaffNote,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("appointment_not_found", "appointment not found")
		}
		return nil, err
	}
	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (repo *PgRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	tx, err := repo.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (repo *PgRepository) Get(ctx context.Context, id int64) (*Appointment, error) {
	row := repo.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (repo *PgRepository) List(ctx context.Context, f Filter) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE active`
	args := []any{}

	add := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(" AND %s = $%d", clause, len(args))
	}
	if f.ProfessionalID != nil {
		add("professional_id", *f.ProfessionalID)
	}
	if f.PatientID != nil {
		add("patient_id", *f.PatientID)
	}
	if f.Date != nil {
		add("date", *f.Date)
	}
	if f.Status != nil {
		add("status", *f.Status)
	}

	query += " ORDER BY date, start_minute"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := repo.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (repo *PgRepository) ListOccupied(ctx context.Context, professionalID int64, date time.Time, excludeStatuses []string) ([]slots.Occupied, error) {
	rows, err := repo.pool.Query(ctx, `
		SELECT start_minute, end_minute
		FROM appointments
		WHERE professional_id = $1
		  AND date = $2
		  AND active
		  AND NOT (status = ANY($3))
		ORDER BY start_minute
	`, professionalID, date, excludeStatuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []slots.Occupied
	for rows.Next() {
		var o slots.Occupied
		if err := rows.Scan(&o.Start, &o.End); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (repo *PgRepository) AnyInRange(ctx context.Context, professionalID int64, date time.Time, start, end interval.MinuteOfDay, excludeStatuses []string) (bool, error) {
	var exists bool
	err := repo.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE professional_id = $1
			  AND date = $2
			  AND active
			  AND NOT (status = ANY($3))
			  AND start_minute < $5
			  AND end_minute > $4
		)
	`, professionalID, date, excludeStatuses, start, end).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (repo *PgRepository) CountNoShows(ctx context.Context, patientID int64, noShowStatuses []string, after *time.Time) (int, error) {
	var count int
	err := repo.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE patient_id = $1
		  AND status = ANY($2)
		  AND ($3::date IS NULL OR date > $3::date)
	`, patientID, noShowStatuses, after).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

const historyColumns = `id, appointment_id, professional_id, patient_id, place_id, service_id, professional_name, patient_name, service_name, date, start_minute, old_status, new_status, actor, note, recorded_at`

func scanHistoryEntry(row pgx.Row) (*HistoryEntry, error) {
	var h HistoryEntry
	err := row.Scan(
		&h.ID,
		&h.AppointmentID,
		&h.ProfessionalID,
		&h.PatientID,
		&h.PlaceID,
		&h.ServiceID,
		&h.ProfessionalName,
		&h.PatientName,
		&h.ServiceName,
		&h.Date,
		&h.Start,
		&h.OldStatus,
		&h.NewStatus,
		&h.Actor,
		&h.Note,
		&h.RecordedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("history_not_found", "history entry not found")
		}
		return nil, err
	}
	return &h, nil
}

func scanHistoryEntries(rows pgx.Rows) ([]HistoryEntry, error) {
	defer rows.Close()

	var result []HistoryEntry
	for rows.Next() {
		h, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *h)
	}
	return result, rows.Err()
}

func (repo *PgRepository) ListHistory(ctx context.Context, appointmentID int64) ([]HistoryEntry, error) {
	rows, err := repo.pool.Query(ctx, `
		SELECT `+historyColumns+`
		FROM appointment_history
		WHERE appointment_id = $1
		ORDER BY recorded_at, id
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	return scanHistoryEntries(rows)
}

func (repo *PgRepository) ListHistoryMissingNames(ctx context.Context, limit int) ([]HistoryEntry, error) {
	rows, err := repo.pool.Query(ctx, `
		SELECT `+historyColumns+`
		FROM appointment_history
		WHERE professional_name = $1 OR patient_name = $1
		ORDER BY recorded_at, id
		LIMIT $2
	`, unresolvedName, limit)
	if err != nil {
		return nil, err
	}
	return scanHistoryEntries(rows)
}

func (repo *PgRepository) UpdateHistoryNames(ctx context.Context, id int64, professionalName, patientName, serviceName string) error {
	tag, err := repo.pool.Exec(ctx, `
		UPDATE appointment_history
		SET professional_name = $2,
		    patient_name = $3,
		    service_name = $4
		WHERE id = $1
	`, id, professionalName, patientName, serviceName)
	if err != nil {
		return fmt.Errorf("update history names: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("history_not_found", "history entry not found")
	}
	return nil
}

// pgTx wraps a pgx transaction with the booking queries that must run
// under row locks.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockAgenda(ctx context.Context, professionalID int64, date time.Time, excludeStatuses []string) ([]Appointment, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE professional_id = $1
		  AND date = $2
		  AND active
		  AND NOT (status = ANY($3))
		ORDER BY start_minute
		FOR UPDATE
	`, professionalID, date, excludeStatuses)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (t *pgTx) ListPatientDay(ctx context.Context, patientID int64, date time.Time, excludeStatuses []string) ([]Appointment, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		  AND date = $2
		  AND active
		  AND NOT (status = ANY($3))
		ORDER BY start_minute
	`, patientID, date, excludeStatuses)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (t *pgTx) HasSameServiceDay(ctx context.Context, patientID, serviceID int64, date time.Time, excludeStatuses []string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE patient_id = $1
			  AND service_id = $2
			  AND date = $3
			  AND active
			  AND NOT (status = ANY($4))
		)
	`, patientID, serviceID, date, excludeStatuses).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (t *pgTx) Insert(ctx context.Context, appt *Appointment) error {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO appointments
			(professional_id, patient_id, place_id, service_id, date, start_minute, end_minute, status, patient_note, staff_note, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING id, created_at, updated_at
	`, appt.ProfessionalID, appt.PatientID, appt.PlaceID, appt.ServiceID,
		appt.Date, appt.Start, appt.End, appt.Status,
		appt.PatientNote, appt.StaffNote, appt.Active)

	if err := row.Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (t *pgTx) GetForUpdate(ctx context.Context, id int64) (*Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanAppointment(row)
}

func (t *pgTx) UpdateStatus(ctx context.Context, id int64, status, note string) (*Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    staff_note = CASE
		        WHEN $3 = '' THEN staff_note
		        WHEN staff_note = '' THEN $3
		        ELSE staff_note || E'\n' || $3
		    END,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, status, note)
	return scanAppointment(row)
}

func (t *pgTx) Touch(ctx context.Context, id int64) (*Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		UPDATE appointments
		SET updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id)
	return scanAppointment(row)
}

func (t *pgTx) InsertHistory(ctx context.Context, entry *HistoryEntry) error {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO appointment_history
			(appointment_id, professional_id, patient_id, place_id, service_id, professional_name, patient_name, service_name, date, start_minute, old_status, new_status, actor, note, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
		RETURNING id, recorded_at
	`, entry.AppointmentID, entry.ProfessionalID, entry.PatientID, entry.PlaceID, entry.ServiceID,
		entry.ProfessionalName, entry.PatientName, entry.ServiceName,
		entry.Date, entry.Start, entry.OldStatus, entry.NewStatus, entry.Actor, entry.Note)

	if err := row.Scan(&entry.ID, &entry.RecordedAt); err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}
