package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medagenda/scheduling-service/internal/apperror"
	"github.com/medagenda/scheduling-service/internal/workflow"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	// Incoming ID is propagated.
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "abc-123" {
		t.Errorf("expected propagated request id, got %q", seen)
	}
	if rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Errorf("expected request id echoed in response header")
	}

	// Missing ID is generated.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if seen == "" || seen == "abc-123" {
		t.Errorf("expected a generated request id, got %q", seen)
	}
}

func TestActorMiddleware(t *testing.T) {
	var actor workflow.Actor
	h := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = ActorFrom(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Actor-Id", "42")
	req.Header.Set("X-Actor-Name", "Dr. Vega")
	req.Header.Set("X-Actor-Role", "staff")
	req.Header.Set("X-Actor-Groups", "priority, vip")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if actor.ID != 42 || actor.Name != "Dr. Vega" {
		t.Errorf("unexpected identity: %+v", actor)
	}
	if !actor.Staff || actor.Admin {
		t.Errorf("expected staff without admin, got %+v", actor)
	}
	if !actor.InGroup([]string{"vip"}) {
		t.Errorf("expected group membership, got %v", actor.Groups)
	}

	// Admins are staff too.
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Actor-Role", "admin")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !actor.Admin || !actor.Staff {
		t.Errorf("expected admin to imply staff, got %+v", actor)
	}
}

func TestLoggingMiddlewareStatus(t *testing.T) {
	h := LoggingMiddleware(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected wrapped writer to pass status through, got %d", rec.Code)
	}
}

func TestWriteAppErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperror.Validation("invalid_time", "bad clock"), http.StatusBadRequest, "invalid_time"},
		{"conflict", apperror.Conflict("slot_taken", "taken"), http.StatusConflict, "slot_taken"},
		{"policy", apperror.Policy("daily_limit", "limit"), http.StatusForbidden, "daily_limit"},
		{"not found", apperror.NotFound("appointment_not_found", "missing"), http.StatusNotFound, "appointment_not_found"},
		{"dependency", apperror.Dependency("catalog_unreachable", "down"), http.StatusBadGateway, "catalog_unreachable"},
		{"internal", apperror.Internal("internal_error", "boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeAppError(rec, tc.err)

			if rec.Code != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, rec.Code)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != tc.code {
				t.Errorf("expected code %q, got %q", tc.code, body.Error)
			}
		})
	}
}

func TestWriteAppErrorMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	writeAppError(rec, apperror.Policy("cancel_notice", "too late").WithMeta("hours_remaining", 2.5))

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Meta["hours_remaining"] != 2.5 {
		t.Errorf("expected meta to survive serialization, got %v", body.Meta)
	}
}
