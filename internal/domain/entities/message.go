package entities

import "time"

// MessageType classifies message content
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
)

// Message is a direct message between two users
type Message struct {
	ID         string      `json:"id" db:"id"`
	SenderID   string      `json:"sender_id" db:"sender_id"`
	ReceiverID string      `json:"receiver_id" db:"receiver_id"`
	Content    string      `json:"content" db:"content"`
	Type       MessageType `json:"type" db:"type"`
	Read       bool        `json:"read" db:"read"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// PreviewLength bounds the last-message preview in partner listings
const PreviewLength = 100

// ConversationPartner summarizes a conversation from one participant's side
type ConversationPartner struct {
	PartnerID     string    `json:"partner_id"`
	PartnerEmail  string    `json:"partner_email,omitempty"`
	PartnerRole   Role      `json:"partner_role,omitempty"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int       `json:"unread_count"`
}

// Preview truncates content to PreviewLength runes
func Preview(content string) string {
	r := []rune(content)
	if len(r) <= PreviewLength {
		return content
	}
	return string(r[:PreviewLength])
}
