package booking

import (
	"context"
	"time"

	"github.com/medagenda/scheduling-service/internal/interval"
	"github.com/medagenda/scheduling-service/internal/slots"
)

// Repository is the persistence contract for appointments and their
// history. Anything that must be atomic with respect to concurrent
// bookings goes through InTx and the TxRepository it yields.
type Repository interface {
	// InTx runs fn inside a single database transaction. A non-nil
	// error from fn rolls everything back and is returned unchanged.
	InTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error

	Get(ctx context.Context, id int64) (*Appointment, error)
	List(ctx context.Context, f Filter) ([]Appointment, error)

	// ListOccupied returns the booked intervals of a professional's day,
	// skipping appointments whose status is in excludeStatuses.
	ListOccupied(ctx context.Context, professionalID int64, date time.Time, excludeStatuses []string) ([]slots.Occupied, error)

	// AnyInRange reports whether any appointment outside excludeStatuses
	// overlaps [start, end) on the given professional's day.
	AnyInRange(ctx context.Context, professionalID int64, date time.Time, start, end interval.MinuteOfDay, excludeStatuses []string) (bool, error)

	// CountNoShows counts a patient's appointments in the given statuses,
	// restricted to dates strictly after `after` when it is non-nil.
	CountNoShows(ctx context.Context, patientID int64, noShowStatuses []string, after *time.Time) (int, error)

	ListHistory(ctx context.Context, appointmentID int64) ([]HistoryEntry, error)

	// ListHistoryMissingNames returns history rows whose display-name
	// snapshots are still unresolved, oldest first.
	ListHistoryMissingNames(ctx context.Context, limit int) ([]HistoryEntry, error)
	UpdateHistoryNames(ctx context.Context, id int64, professionalName, patientName, serviceName string) error
}

// TxRepository is the transactional view used while a booking or a
// transition is in flight. LockAgenda and GetForUpdate take row locks,
// so two writers racing for the same agenda serialize here even if the
// advisory Redis lock was lost.
type TxRepository interface {
	// LockAgenda locks and returns the professional's appointments for
	// the day, skipping excludeStatuses. Callers hold the locks until
	// the enclosing transaction ends.
	LockAgenda(ctx context.Context, professionalID int64, date time.Time, excludeStatuses []string) ([]Appointment, error)

	ListPatientDay(ctx context.Context, patientID int64, date time.Time, excludeStatuses []string) ([]Appointment, error)
	HasSameServiceDay(ctx context.Context, patientID, serviceID int64, date time.Time, excludeStatuses []string) (bool, error)

	Insert(ctx context.Context, appt *Appointment) error
	GetForUpdate(ctx context.Context, id int64) (*Appointment, error)

	// UpdateStatus moves the appointment to status and, when note is
	// non-empty, appends it to the staff note.
	UpdateStatus(ctx context.Context, id int64, status, note string) (*Appointment, error)

	// Touch bumps updated_at without changing anything else. Used for
	// re-confirmations.
	Touch(ctx context.Context, id int64) (*Appointment, error)

	InsertHistory(ctx context.Context, entry *HistoryEntry) error
}
