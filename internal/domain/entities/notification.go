package entities

import "time"

// NotificationType identifies the producer event behind a notification
type NotificationType string

const (
	NotificationMessage            NotificationType = "message"
	NotificationNewEvent           NotificationType = "new_event"
	NotificationNewArticle         NotificationType = "new_article"
	NotificationLike               NotificationType = "like"
	NotificationComment            NotificationType = "comment"
	NotificationAppointmentRequest NotificationType = "appointment_request"
	NotificationAppointmentStatus  NotificationType = "appointment_status"
	NotificationAccountStatus      NotificationType = "account_status"
)

// Notification is a per-recipient record of a producer event.
// Rows are only ever mutated by read acknowledgement.
type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	RelatedID *string          `json:"related_id,omitempty" db:"related_id"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// NotificationDraft is the recipient-independent part of a notification
type NotificationDraft struct {
	Type      NotificationType
	Title     string
	Message   string
	RelatedID *string
}

// For materializes the draft for a single recipient
func (d NotificationDraft) For(userID string) *Notification {
	return &Notification{
		UserID:    userID,
		Type:      d.Type,
		Title:     d.Title,
		Message:   d.Message,
		RelatedID: d.RelatedID,
	}
}
