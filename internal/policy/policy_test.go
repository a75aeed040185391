package policy

import "testing"

func TestDefault(t *testing.T) {
	p := Default()

	if p.CancelNoticeHours != 24 {
		t.Errorf("expected 24h cancel notice, got %d", p.CancelNoticeHours)
	}
	if p.MinBookingLeadMinutes != 60 {
		t.Errorf("expected 60m lead time, got %d", p.MinBookingLeadMinutes)
	}
	if p.MaxPerPatientPerDay != 1 {
		t.Errorf("expected one appointment per day, got %d", p.MaxPerPatientPerDay)
	}
	if p.AllowSameServiceSameDay {
		t.Errorf("same-service repeats should be off by default")
	}
	if p.NoShowThreshold != 3 {
		t.Errorf("expected no-show threshold 3, got %d", p.NoShowThreshold)
	}
	if p.CancelBlockMessage == "" || p.NoShowBlockMessage == "" {
		t.Errorf("default block messages must not be empty")
	}
	if len(p.ExemptGroups) != 0 {
		t.Errorf("no groups are exempt by default, got %v", p.ExemptGroups)
	}
}
