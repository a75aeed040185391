package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSONValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		ok   bool
	}{
		{"valid", `{"professional_id":1,"patient_id":2,"place_id":3,"date":"2025-03-11","start":"09:00"}`, true},
		{"missing patient", `{"professional_id":1,"place_id":3,"date":"2025-03-11","start":"09:00"}`, false},
		{"zero professional", `{"professional_id":0,"patient_id":2,"place_id":3,"date":"2025-03-11","start":"09:00"}`, false},
		{"malformed json", `{"professional_id":`, false},
		{"note too long", `{"professional_id":1,"patient_id":2,"place_id":3,"date":"2025-03-11","start":"09:00","note":"` + strings.Repeat("x", 501) + `"}`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/appointments", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			var dst BookingRequest
			ok := decodeJSON(rec, req, &dst)
			if ok != tc.ok {
				t.Fatalf("decodeJSON = %v, want %v (body %s)", ok, tc.ok, rec.Body.String())
			}
			if !ok && rec.Code != http.StatusBadRequest {
				t.Errorf("rejected payloads answer 400, got %d", rec.Code)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, ok := parseDate("2025-03-11")
	if !ok || d.Year() != 2025 || d.Month() != 3 || d.Day() != 11 {
		t.Errorf("expected 2025-03-11, got %v ok=%v", d, ok)
	}
	if _, ok := parseDate("11/03/2025"); ok {
		t.Errorf("expected rejection of non-ISO date")
	}
	if _, ok := parseDate(""); ok {
		t.Errorf("expected rejection of empty date")
	}
}
