package api

import (
	"encoding/json"
	"net/http"

	"github.com/medagenda/scheduling-service/internal/policy"
	"github.com/medagenda/scheduling-service/internal/workflow"
)

// Policy and workflow edits are admin-only; the gateway authenticates,
// this layer enforces the role.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !ActorFrom(r.Context()).Admin {
		writeError(w, http.StatusForbidden, "admin_required", "only administrators may change clinic configuration")
		return false
	}
	return true
}

func getPolicyHandler(repo policy.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := repo.Get(r.Context())
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func putPolicyHandler(repo policy.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}

		var p policy.GlobalPolicy
		if !decodeJSON(w, r, &p) {
			return
		}

		if err := repo.Save(r.Context(), p); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func getWorkflowHandler(store workflow.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		def, err := store.Active(r.Context())
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, def)
	}
}

func putWorkflowHandler(store workflow.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireAdmin(w, r) {
			return
		}

		var def workflow.Definition
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		// Save validates the graph before it becomes active.
		if err := store.Save(r.Context(), &def); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, &def)
	}
}
