package entities

import (
	"testing"
)

func TestAppointmentStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to AppointmentStatus
		want     bool
	}{
		{AppointmentStatusPending, AppointmentStatusApproved, true},
		{AppointmentStatusPending, AppointmentStatusRejected, true},
		{AppointmentStatusPending, AppointmentStatusCompleted, false},
		{AppointmentStatusPending, AppointmentStatusCancelled, false},
		{AppointmentStatusApproved, AppointmentStatusCompleted, true},
		{AppointmentStatusApproved, AppointmentStatusCancelled, true},
		{AppointmentStatusApproved, AppointmentStatusRejected, false},
		{AppointmentStatusRejected, AppointmentStatusApproved, false},
		{AppointmentStatusCompleted, AppointmentStatusCancelled, false},
		{AppointmentStatusCancelled, AppointmentStatusApproved, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAppointmentStatus_Terminal(t *testing.T) {
	for _, s := range []AppointmentStatus{AppointmentStatusRejected, AppointmentStatusCompleted, AppointmentStatusCancelled} {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range ActiveAppointmentStatuses {
		if s.IsTerminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestAppointmentStatus_ReleasesSlot(t *testing.T) {
	if !AppointmentStatusRejected.ReleasesSlot() || !AppointmentStatusCancelled.ReleasesSlot() {
		t.Error("reject and cancel must release the slot")
	}
	if AppointmentStatusCompleted.ReleasesSlot() || AppointmentStatusApproved.ReleasesSlot() {
		t.Error("complete and approve must keep the slot booked")
	}
}

func TestZeroFillMonths(t *testing.T) {
	rows := ZeroFillMonths(map[int]int{1: 3, 12: 1})

	if len(rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(rows))
	}
	if rows[0].Month != "Jan" || rows[0].Count != 3 {
		t.Errorf("unexpected January row: %+v", rows[0])
	}
	if rows[5].Month != "Jun" || rows[5].Count != 0 {
		t.Errorf("unexpected June row: %+v", rows[5])
	}
	if rows[11].Month != "Dec" || rows[11].Count != 1 {
		t.Errorf("unexpected December row: %+v", rows[11])
	}
}
