package api

import (
	"net/http"
	"strconv"

	"github.com/medagenda/scheduling-service/internal/slots"
)

func slotsHandler(svc *slots.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		professionalID, ok := queryID(r, "professional_id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id is required")
			return
		}
		date, ok := parseDate(q.Get("date"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		req := slots.Request{ProfessionalID: professionalID, Date: date}
		if id, ok := queryID(r, "service_id"); ok {
			req.ServiceID = &id
		}
		if v := q.Get("duration_minutes"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_duration", "duration_minutes must be a positive integer")
				return
			}
			req.DurationMinutes = n
		}
		if v := q.Get("buffer_minutes"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid_buffer", "buffer_minutes must be a non-negative integer")
				return
			}
			req.BufferMinutes = n
		}
		if v := q.Get("granularity_minutes"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_granularity", "granularity_minutes must be a positive integer")
				return
			}
			req.GranularityMinutes = n
		}

		result, err := svc.GenerateDay(r.Context(), req)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponses(result))
	}
}
