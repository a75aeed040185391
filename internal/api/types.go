package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/medagenda/scheduling-service/internal/booking"
	"github.com/medagenda/scheduling-service/internal/schedule"
	"github.com/medagenda/scheduling-service/internal/slots"
)

var validate = validator.New()

const dateLayout = "2006-01-02"

type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// -- Schedule --

type RuleRequest struct {
	ProfessionalID int64  `json:"professional_id" validate:"required,gt=0"`
	PlaceID        int64  `json:"place_id" validate:"required,gt=0"`
	ServiceID      *int64 `json:"service_id,omitempty" validate:"omitempty,gt=0"`
	Weekday        *int   `json:"weekday,omitempty" validate:"omitempty,min=0,max=6"`
	Start          string `json:"start" validate:"required"`
	End            string `json:"end" validate:"required"`
	Date           string `json:"date,omitempty"`
	ValidUntil     string `json:"valid_until,omitempty"`
}

type RuleResponse struct {
	ID             int64   `json:"id"`
	ProfessionalID int64   `json:"professional_id"`
	PlaceID        int64   `json:"place_id"`
	ServiceID      *int64  `json:"service_id,omitempty"`
	Weekday        int     `json:"weekday"`
	Start          string  `json:"start"`
	End            string  `json:"end"`
	Date           *string `json:"date,omitempty"`
	ValidUntil     *string `json:"valid_until,omitempty"`
	Active         bool    `json:"active"`
}

func toRuleResponse(r *schedule.AvailabilityRule) RuleResponse {
	resp := RuleResponse{
		ID:             r.ID,
		ProfessionalID: r.ProfessionalID,
		PlaceID:        r.PlaceID,
		ServiceID:      r.ServiceID,
		Weekday:        r.Weekday,
		Start:          r.Start.Clock(),
		End:            r.End.Clock(),
		Active:         r.Active,
	}
	if r.Date != nil {
		d := r.Date.Format(dateLayout)
		resp.Date = &d
	}
	if r.ValidUntil != nil {
		d := r.ValidUntil.Format(dateLayout)
		resp.ValidUntil = &d
	}
	return resp
}

type DuplicateDayRequest struct {
	ProfessionalID int64  `json:"professional_id" validate:"required,gt=0"`
	From           string `json:"from" validate:"required"`
	To             string `json:"to" validate:"required"`
}

type BlackoutRequest struct {
	ProfessionalID int64     `json:"professional_id" validate:"required,gt=0"`
	StartAt        time.Time `json:"start_at" validate:"required"`
	EndAt          time.Time `json:"end_at" validate:"required"`
	Reason         string    `json:"reason,omitempty"`
}

type BlackoutResponse struct {
	ID             int64     `json:"id"`
	ProfessionalID int64     `json:"professional_id"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	Reason         string    `json:"reason,omitempty"`
}

func toBlackoutResponse(b *schedule.BlackoutPeriod) BlackoutResponse {
	return BlackoutResponse{
		ID:             b.ID,
		ProfessionalID: b.ProfessionalID,
		StartAt:        b.StartAt,
		EndAt:          b.EndAt,
		Reason:         b.Reason,
	}
}

// -- Slots --

type SlotResponse struct {
	Start     string `json:"start"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

func toSlotResponses(in []slots.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(in))
	for _, s := range in {
		out = append(out, SlotResponse{Start: s.Start.Clock(), Available: s.Available, Reason: s.Reason})
	}
	return out
}

// -- Booking --

type BookingRequest struct {
	ProfessionalID int64  `json:"professional_id" validate:"required,gt=0"`
	PatientID      int64  `json:"patient_id" validate:"required,gt=0"`
	PlaceID        int64  `json:"place_id" validate:"required,gt=0"`
	ServiceID      *int64 `json:"service_id,omitempty" validate:"omitempty,gt=0"`
	Date           string `json:"date" validate:"required"`
	Start          string `json:"start" validate:"required"`
	Note           string `json:"note,omitempty" validate:"max=500"`
}

type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note,omitempty" validate:"max=500"`
}

type AppointmentResponse struct {
	ID             int64     `json:"id"`
	ProfessionalID int64     `json:"professional_id"`
	PatientID      int64     `json:"patient_id"`
	PlaceID        int64     `json:"place_id"`
	ServiceID      *int64    `json:"service_id,omitempty"`
	Date           string    `json:"date"`
	Start          string    `json:"start"`
	End            string    `json:"end"`
	Status         string    `json:"status"`
	PatientNote    string    `json:"patient_note,omitempty"`
	StaffNote      string    `json:"staff_note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		ProfessionalID: a.ProfessionalID,
		PatientID:      a.PatientID,
		PlaceID:        a.PlaceID,
		ServiceID:      a.ServiceID,
		Date:           a.Date.Format(dateLayout),
		Start:          a.Start.Clock(),
		End:            a.End.Clock(),
		Status:         a.Status,
		PatientNote:    a.PatientNote,
		StaffNote:      a.StaffNote,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

type HistoryResponse struct {
	ID               int64     `json:"id"`
	AppointmentID    int64     `json:"appointment_id"`
	ProfessionalName string    `json:"professional_name"`
	PatientName      string    `json:"patient_name"`
	ServiceName      string    `json:"service_name,omitempty"`
	Date             string    `json:"date"`
	Start            string    `json:"start"`
	OldStatus        string    `json:"old_status,omitempty"`
	NewStatus        string    `json:"new_status"`
	Actor            string    `json:"actor"`
	Note             string    `json:"note,omitempty"`
	RecordedAt       time.Time `json:"recorded_at"`
}

func toHistoryResponses(in []booking.HistoryEntry) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(in))
	for _, h := range in {
		out = append(out, HistoryResponse{
			ID:               h.ID,
			AppointmentID:    h.AppointmentID,
			ProfessionalName: h.ProfessionalName,
			PatientName:      h.PatientName,
			ServiceName:      h.ServiceName,
			Date:             h.Date.Format(dateLayout),
			Start:            h.Start.Clock(),
			OldStatus:        h.OldStatus,
			NewStatus:        h.NewStatus,
			Actor:            h.Actor,
			Note:             h.Note,
			RecordedAt:       h.RecordedAt,
		})
	}
	return out
}
