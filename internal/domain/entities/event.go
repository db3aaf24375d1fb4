package entities

import "time"

// EventStatus represents the lifecycle of a clinic event
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusOngoing   EventStatus = "ongoing"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// Valid reports whether s is a known event status
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusUpcoming, EventStatusOngoing, EventStatusCompleted, EventStatusCancelled:
		return true
	}
	return false
}

// Event is a posting on the clinic event board
type Event struct {
	ID          string      `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	Location    string      `json:"location" db:"location"`
	Date        Date        `json:"date" db:"date"`
	Time        string      `json:"time" db:"time"`
	Status      EventStatus `json:"status" db:"status"`
	ImageRef    *string     `json:"image,omitempty" db:"image_ref"`
	CreatedBy   string      `json:"created_by" db:"created_by"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// EventSummary is the board listing shape
type EventSummary struct {
	Event
	InterestCount  int  `json:"interest_count"`
	UserInterested bool `json:"user_interested"`
}
