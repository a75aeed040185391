package api

import (
	"encoding/json"
	"net/http"

	"github.com/medagenda/scheduling-service/internal/apperror"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeAppError maps the error taxonomy onto HTTP statuses. Every
// rejection body carries the machine code plus the human message, and
// policy rejections keep their metadata (remaining hours, limits).
func writeAppError(w http.ResponseWriter, err error) {
	ae, ok := apperror.As(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
		return
	}

	var status int
	switch ae.Kind {
	case apperror.KindValidation:
		status = http.StatusBadRequest
	case apperror.KindConflict:
		status = http.StatusConflict
	case apperror.KindPolicy:
		status = http.StatusForbidden
	case apperror.KindNotFound:
		status = http.StatusNotFound
	case apperror.KindDependency:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, ErrorResponse{Error: ae.Code, Message: ae.Message, Meta: ae.Meta})
}
