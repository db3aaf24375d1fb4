package repositories

import (
	"context"

	"github.com/medconnect/clinic-backend/internal/domain/entities"
)

// NotificationRepository defines the interface for notification storage
type NotificationRepository interface {
	// Create inserts one notification
	Create(ctx context.Context, n *entities.Notification) error

	// CreateBatch bulk inserts notifications in a single statement
	CreateBatch(ctx context.Context, ns []*entities.Notification) error

	// List retrieves a user's notifications newest first
	List(ctx context.Context, userID string, unreadOnly bool) ([]*entities.Notification, error)

	// CountUnread counts a user's unread notifications
	CountUnread(ctx context.Context, userID string) (int, error)

	// MarkRead marks the user's notifications of type t about relatedID as read
	MarkRead(ctx context.Context, userID, relatedID string, t entities.NotificationType) (int64, error)

	// MarkReadByID marks one notification of userID as read; NotFound when it is not theirs
	MarkReadByID(ctx context.Context, userID, id string) error
}

// MessageRepository defines the interface for direct message storage
type MessageRepository interface {
	Create(ctx context.Context, m *entities.Message) error
	// CreateMany stores msgs in one statement; either all are stored or none
	CreateMany(ctx context.Context, msgs []*entities.Message) error
	GetByID(ctx context.Context, id string) (*entities.Message, error)

	// Conversation returns the messages exchanged between a and b, oldest first
	Conversation(ctx context.Context, a, b string) ([]*entities.Message, error)

	// MarkRead marks one message as read
	MarkRead(ctx context.Context, id string) error

	// MarkConversationRead marks every message from partnerID to readerID as read
	// and returns the ids of the messages that changed
	MarkConversationRead(ctx context.Context, readerID, partnerID string) ([]string, error)

	// Partners returns the user's conversation partners, most recent first
	Partners(ctx context.Context, userID string) ([]*entities.ConversationPartner, error)

	CountUnread(ctx context.Context, userID string) (int, error)

	// LatestReceived returns the newest message addressed to userID
	LatestReceived(ctx context.Context, userID string) (*entities.Message, error)
}
