package model

import "testing"

func TestValidRequestStatus(t *testing.T) {
	for _, s := range []string{RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusCompleted} {
		if !ValidRequestStatus(s) {
			t.Errorf("expected %q to be a valid status", s)
		}
	}
	for _, s := range []string{"", "open", "APPROVED", "done"} {
		if ValidRequestStatus(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestValidPriority(t *testing.T) {
	for _, p := range []string{PriorityHigh, PriorityMedium, PriorityLow} {
		if !ValidPriority(p) {
			t.Errorf("expected %q to be a valid priority", p)
		}
	}
	for _, p := range []string{"", "urgent", "High"} {
		if ValidPriority(p) {
			t.Errorf("expected %q to be invalid", p)
		}
	}
}

func TestValidChangeType(t *testing.T) {
	for _, c := range []string{ChangeTypeOpening, ChangeTypeRestock, ChangeTypeRequest, ChangeTypeAdjustment, ChangeTypeClosing} {
		if !ValidChangeType(c) {
			t.Errorf("expected %q to be a valid change type", c)
		}
	}
	if ValidChangeType("transfer") {
		t.Error("expected 'transfer' to be invalid")
	}
}
