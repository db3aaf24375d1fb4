package entities

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// RealtimeEventType represents the kind of realtime push
type RealtimeEventType string

const (
	RealtimeEventNotification RealtimeEventType = "notification"
	RealtimeEventBroadcast    RealtimeEventType = "broadcast"
)

// RealtimeEvent is pushed to connected clients when a notification is stored
type RealtimeEvent struct {
	ID        string            `json:"id"`
	EventType RealtimeEventType `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	// ExcludedUserID is set on broadcasts that skip their originator
	ExcludedUserID string        `json:"excluded_user_id,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
	Notification   *Notification `json:"notification"`
}

// NewRealtimeEvent creates a realtime event wrapping n
func NewRealtimeEvent(eventType RealtimeEventType, userID string, n *Notification) *RealtimeEvent {
	return &RealtimeEvent{
		ID:           generateEventID(),
		EventType:    eventType,
		UserID:       userID,
		Timestamp:    time.Now(),
		Notification: n,
	}
}

func generateEventID() string {
	return time.Now().Format("20060102150405") + "-" + randomString(8)
}

func randomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		return time.Now().Format("150405.000")
	}
	return hex.EncodeToString(bytes)[:length]
}
