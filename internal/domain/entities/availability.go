package entities

import (
	"time"
)

// SlotStatus represents the booking state of an availability slot
type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusCancelled SlotStatus = "cancelled"
)

// Valid reports whether s is a known slot status
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotStatusAvailable, SlotStatusBooked, SlotStatusCancelled:
		return true
	}
	return false
}

// DateLayout is the wire and storage format of calendar dates
const DateLayout = "2006-01-02"

// ClockLayout is the wire format of slot start and end times
const ClockLayout = "15:04"

// AvailabilitySlot represents a doctor-declared bookable interval.
// StartTime and EndTime are absolute instants on Date in the clinic timezone.
type AvailabilitySlot struct {
	ID        string     `json:"id" db:"id"`
	DoctorID  string     `json:"doctor_id" db:"doctor_id"`
	Date      Date       `json:"date" db:"date"`
	StartTime time.Time  `json:"start_time" db:"start_time"`
	EndTime   time.Time  `json:"end_time" db:"end_time"`
	Status    SlotStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Overlaps reports whether the half-open ranges [StartTime, EndTime) intersect
func (s *AvailabilitySlot) Overlaps(other *AvailabilitySlot) bool {
	return s.StartTime.Before(other.EndTime) && other.StartTime.Before(s.EndTime)
}
