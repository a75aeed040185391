package api

import (
	"net/http"
	"time"

	"github.com/medagenda/scheduling-service/internal/interval"
	"github.com/medagenda/scheduling-service/internal/schedule"
)

func ruleFromRequest(w http.ResponseWriter, req *RuleRequest) (*schedule.AvailabilityRule, bool) {
	start, err := interval.ParseClock(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", "start must be HH:MM")
		return nil, false
	}
	end, err := interval.ParseClock(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", "end must be HH:MM")
		return nil, false
	}

	rule := &schedule.AvailabilityRule{
		ProfessionalID: req.ProfessionalID,
		PlaceID:        req.PlaceID,
		ServiceID:      req.ServiceID,
		Start:          start,
		End:            end,
		Active:         true,
	}

	if req.Date != "" {
		date, ok := parseDate(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return nil, false
		}
		rule.Date = &date
		rule.Weekday = interval.Weekday(date)
	} else if req.Weekday != nil {
		rule.Weekday = *req.Weekday
	} else {
		writeError(w, http.StatusBadRequest, "invalid_rule", "a recurring rule needs a weekday")
		return nil, false
	}

	if req.ValidUntil != "" {
		until, ok := parseDate(req.ValidUntil)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "valid_until must be YYYY-MM-DD")
			return nil, false
		}
		rule.ValidUntil = &until
	}

	return rule, true
}

func createRuleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RuleRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		rule, ok := ruleFromRequest(w, &req)
		if !ok {
			return
		}

		created, err := svc.CreateRule(r.Context(), rule)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toRuleResponse(created))
	}
}

func updateRuleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_rule_id", "id must be an integer")
			return
		}

		var req RuleRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		rule, ok := ruleFromRequest(w, &req)
		if !ok {
			return
		}
		rule.ID = id

		updated, err := svc.UpdateRule(r.Context(), rule)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRuleResponse(updated))
	}
}

func listRulesHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, ok := queryID(r, "professional_id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id is required")
			return
		}

		rules, err := svc.ListRules(r.Context(), professionalID)
		if err != nil {
			writeAppError(w, err)
			return
		}

		out := make([]RuleResponse, 0, len(rules))
		for i := range rules {
			out = append(out, toRuleResponse(&rules[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteRuleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_rule_id", "id must be an integer")
			return
		}

		if err := svc.DeleteRule(r.Context(), id, time.Now()); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func duplicateDayHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DuplicateDayRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		from, ok := parseDate(req.From)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "from must be YYYY-MM-DD")
			return
		}
		to, ok := parseDate(req.To)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "to must be YYYY-MM-DD")
			return
		}

		created, err := svc.DuplicateDay(r.Context(), req.ProfessionalID, from, to)
		if err != nil {
			writeAppError(w, err)
			return
		}

		out := make([]RuleResponse, 0, len(created))
		for i := range created {
			out = append(out, toRuleResponse(&created[i]))
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func createBlackoutHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BlackoutRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		created, err := svc.CreateBlackout(r.Context(), &schedule.BlackoutPeriod{
			ProfessionalID: req.ProfessionalID,
			StartAt:        req.StartAt,
			EndAt:          req.EndAt,
			Reason:         req.Reason,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toBlackoutResponse(created))
	}
}

func listBlackoutsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, ok := queryID(r, "professional_id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id is required")
			return
		}

		from := time.Now()
		to := from.AddDate(0, 3, 0)
		if v := r.URL.Query().Get("from"); v != "" {
			if d, ok := parseDate(v); ok {
				from = d
			}
		}
		if v := r.URL.Query().Get("to"); v != "" {
			if d, ok := parseDate(v); ok {
				to = d.AddDate(0, 0, 1)
			}
		}

		periods, err := svc.ListBlackouts(r.Context(), professionalID, from, to)
		if err != nil {
			writeAppError(w, err)
			return
		}

		out := make([]BlackoutResponse, 0, len(periods))
		for i := range periods {
			out = append(out, toBlackoutResponse(&periods[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteBlackoutHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_blackout_id", "id must be an integer")
			return
		}

		if err := svc.DeleteBlackout(r.Context(), id); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
