package providers

import (
	"context"

	"github.com/medconnect/clinic-backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to realtime events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.RealtimeEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.RealtimeEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelBroadcast carries notifications addressed to every user
	EventChannelBroadcast = "notifications:broadcast"

	// EventChannelUserPrefix is the prefix for per-user notification channels
	EventChannelUserPrefix = "notifications:"
)

// GetUserChannel returns the channel name for a specific user
func GetUserChannel(userID string) string {
	return EventChannelUserPrefix + userID
}
