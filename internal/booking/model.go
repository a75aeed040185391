package booking

import (
	"time"

	"github.com/medagenda/scheduling-service/internal/interval"
)

// Appointment is the booked unit of clinic time. It is created only by
// the booking pipeline and mutated only through workflow transitions;
// cancellation and no-shows are statuses, never deletions.
type Appointment struct {
	ID             int64
	ProfessionalID int64
	PatientID      int64
	PlaceID        int64
	ServiceID      *int64
	Date           time.Time
	Start          interval.MinuteOfDay
	End            interval.MinuteOfDay
	Status         string
	// PatientNote is written by the patient when requesting the slot.
	PatientNote string
	// StaffNote accumulates reception and clinical notes; transitions
	// append to it, never overwrite.
	StaffNote string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StartAt anchors the appointment's start on its date.
func (a *Appointment) StartAt() time.Time { return a.Start.At(a.Date) }

// EndAt anchors the appointment's end on its date.
func (a *Appointment) EndAt() time.Time { return a.End.At(a.Date) }

// HistoryEntry is the append-only audit trail of one status change.
// Display names are snapshots: if the patient or professional is later
// deleted in their own service, the trail keeps a usable record.
type HistoryEntry struct {
	ID               int64
	AppointmentID    int64
	ProfessionalID   int64
	PatientID        int64
	PlaceID          int64
	ServiceID        *int64
	ProfessionalName string
	PatientName      string
	ServiceName      string
	Date             time.Time
	Start            interval.MinuteOfDay
	OldStatus        string
	NewStatus        string
	Actor            string
	Note             string
	RecordedAt       time.Time
}

// Request is one booking attempt as received from the API layer.
type Request struct {
	ProfessionalID int64
	PatientID      int64
	PlaceID        int64
	ServiceID      *int64
	Date           time.Time
	Start          interval.MinuteOfDay
	PatientNote    string
	// StaffOrigin marks bookings made at the reception desk; those skip
	// the patient-facing lead-time rule.
	StaffOrigin bool
}

// Filter narrows appointment listings.
type Filter struct {
	ProfessionalID *int64
	PatientID      *int64
	Date           *time.Time
	Status         *string
	Limit          int
	Offset         int
}
