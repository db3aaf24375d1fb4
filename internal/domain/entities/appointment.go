package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "Pending"
	AppointmentStatusApproved  AppointmentStatus = "Approved"
	AppointmentStatusRejected  AppointmentStatus = "Rejected"
	AppointmentStatusCompleted AppointmentStatus = "Completed"
	AppointmentStatusCancelled AppointmentStatus = "Cancelled"
)

// ActiveAppointmentStatuses hold a slot; at most one appointment per slot may be in one of them
var ActiveAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusApproved,
}

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:  {AppointmentStatusApproved, AppointmentStatusRejected},
	AppointmentStatusApproved: {AppointmentStatusCompleted, AppointmentStatusCancelled},
}

// CanTransitionTo reports whether the state machine allows s -> next
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted
func (s AppointmentStatus) IsTerminal() bool {
	return len(appointmentTransitions[s]) == 0
}

// ReleasesSlot reports whether entering s returns the booked slot to available
func (s AppointmentStatus) ReleasesSlot() bool {
	return s == AppointmentStatusRejected || s == AppointmentStatusCancelled
}

// Appointment represents a client's booking against a doctor slot
type Appointment struct {
	ID           string            `json:"id" db:"id"`
	DoctorID     string            `json:"doctor_id" db:"doctor_id"`
	ClientUserID string            `json:"client_user_id" db:"client_user_id"`
	SlotID       *string           `json:"slot_id,omitempty" db:"slot_id"`
	Date         Date              `json:"date" db:"date"`
	StartTime    time.Time         `json:"start_time" db:"start_time"`
	Status       AppointmentStatus `json:"status" db:"status"`
	Remarks      string            `json:"remarks" db:"remarks"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`

	// Read-side enrichment, populated by list queries
	DoctorName  string `json:"doctor_name,omitempty" db:"-"`
	ClientEmail string `json:"client_email,omitempty" db:"-"`
}

// MonthlyCount is one row of a zero-filled per-month report
type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// ZeroFillMonths expands month->count (1..12) into twelve rows, Jan..Dec
func ZeroFillMonths(counts map[int]int) []MonthlyCount {
	rows := make([]MonthlyCount, 0, 12)
	for m := time.January; m <= time.December; m++ {
		rows = append(rows, MonthlyCount{
			Month: m.String()[:3],
			Count: counts[int(m)],
		})
	}
	return rows
}
