package errors

import "testing"

func TestErrorString(t *testing.T) {
	err := NewNotFound("card", "42")
	want := "NOT_FOUND: card not found: 42"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	err := NewClaimConflict(7)
	if !Is(err, ErrClaimConflict) {
		t.Error("Is should match ErrClaimConflict")
	}
	if Is(err, ErrNotFound) {
		t.Error("Is should not match ErrNotFound")
	}
	if Is(nil, ErrNotFound) {
		t.Error("Is(nil) should be false")
	}
}

func TestDetailsCarryContext(t *testing.T) {
	err := NewInvalidTransition(3, "blocked", "claim")
	if err.Details["card_id"] != int64(3) {
		t.Errorf("Details[card_id] = %v, want 3", err.Details["card_id"])
	}
	if err.Details["from"] != "blocked" {
		t.Errorf("Details[from] = %v, want blocked", err.Details["from"])
	}

	cyc := NewDependencyCycle(2, []int64{2, 5, 2})
	if cyc.Status != 422 {
		t.Errorf("cycle Status = %d, want 422", cyc.Status)
	}
}
