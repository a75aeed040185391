package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{Validation("invalid_time", "bad clock"), KindValidation},
		{Conflict("slot_taken", "taken"), KindConflict},
		{Policy("daily_limit", "limit reached"), KindPolicy},
		{NotFound("rule_not_found", "missing"), KindNotFound},
		{Dependency("patients_unreachable", "down"), KindDependency},
		{Internal("internal_error", "boom"), KindInternal},
		{errors.New("plain"), KindUnknown},
		{nil, KindUnknown},
	}

	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.kind {
			t.Errorf("KindOf(%v) = %v, want %v", tc.err, got, tc.kind)
		}
	}
}

func TestAsThroughWrapping(t *testing.T) {
	inner := Conflict("slot_taken", "taken")
	wrapped := fmt.Errorf("create booking: %w", inner)

	ae, ok := As(wrapped)
	if !ok {
		t.Fatalf("expected to find *Error in chain")
	}
	if ae.Code != "slot_taken" || ae.Kind != KindConflict {
		t.Errorf("unexpected extraction: %+v", ae)
	}
	if !IsCode(wrapped, "slot_taken") {
		t.Errorf("IsCode should see through wrapping")
	}
	if IsCode(wrapped, "patient_conflict") {
		t.Errorf("IsCode matched the wrong code")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Dependency("patients_unreachable", "patients service down").Wrap(cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected cause to survive in the chain")
	}
	if msg := err.Error(); msg != "patients_unreachable: patients service down: connection refused" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestWithMeta(t *testing.T) {
	err := Policy("cancel_notice", "too late").
		WithMeta("hours_remaining", 2.5).
		WithMeta("required_hours", 24)

	if err.Meta["hours_remaining"] != 2.5 || err.Meta["required_hours"] != 24 {
		t.Errorf("unexpected meta %v", err.Meta)
	}
}

func TestMessageFormatting(t *testing.T) {
	err := Validation("invalid_time", "minute %d out of range", 1500)
	if err.Message != "minute 1500 out of range" {
		t.Errorf("unexpected message %q", err.Message)
	}
}
