package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

// SendMessageInput is the body of a direct message
type SendMessageInput struct {
	ReceiverID string
	Content    string
	Type       entities.MessageType
}

// MessageStats summarizes a user's inbox
type MessageStats struct {
	UnreadMessages int `json:"unread_messages"`
}

// MessageService handles direct messaging between users
type MessageService struct {
	messages repositories.MessageRepository
	users    repositories.UserRepository
	notifier Notifier
}

// NewMessageService creates a new message service
func NewMessageService(messages repositories.MessageRepository, users repositories.UserRepository, notifier Notifier) *MessageService {
	return &MessageService{messages: messages, users: users, notifier: notifier}
}

// SendAsClient sends a message from a client to a doctor
func (s *MessageService) SendAsClient(ctx context.Context, actor Actor, in SendMessageInput) (*entities.Message, error) {
	if err := requireRole(actor, entities.RoleClient); err != nil {
		return nil, err
	}
	return s.sendTo(ctx, actor, in, entities.RoleDoctor, "You have received a new message from a client.")
}

// SendAsDoctor sends a message from a doctor to a client
func (s *MessageService) SendAsDoctor(ctx context.Context, actor Actor, in SendMessageInput) (*entities.Message, error) {
	if err := requireRole(actor, entities.RoleDoctor); err != nil {
		return nil, err
	}
	return s.sendTo(ctx, actor, in, entities.RoleClient, "You have received a new message from your doctor.")
}

// SendToAdmins sends one copy of the message to every admin
func (s *MessageService) SendToAdmins(ctx context.Context, actor Actor, in SendMessageInput) ([]*entities.Message, error) {
	kind, content, err := validateMessage(in)
	if err != nil {
		return nil, err
	}

	admins, err := s.users.ListIDsByRole(ctx, entities.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if len(admins) == 0 {
		return nil, apperrors.NewNotFoundError("no admin is available to receive messages")
	}

	now := time.Now()
	sent := make([]*entities.Message, 0, len(admins))
	for _, adminID := range admins {
		if adminID == actor.UserID {
			continue
		}
		sent = append(sent, &entities.Message{
			ID:         uuid.New().String(),
			SenderID:   actor.UserID,
			ReceiverID: adminID,
			Content:    content,
			Type:       kind,
			CreatedAt:  now,
		})
	}
	if len(sent) == 0 {
		return nil, apperrors.NewNotFoundError("no other admin is available to receive messages")
	}

	if err := s.messages.CreateMany(ctx, sent); err != nil {
		return nil, err
	}
	for _, msg := range sent {
		s.notifyReceiver(ctx, msg, "You have received a new message.")
	}
	return sent, nil
}

// Conversation returns the messages between a and b, oldest first.
// Only the two participants and admins may read it.
func (s *MessageService) Conversation(ctx context.Context, actor Actor, a, b string) ([]*entities.Message, error) {
	if a == "" || b == "" {
		return nil, apperrors.NewValidationError("both user ids are required")
	}
	if !actor.IsAdmin() && actor.UserID != a && actor.UserID != b {
		return nil, apperrors.NewForbiddenError("you are not a participant of this conversation")
	}
	return orEmpty(s.messages.Conversation(ctx, a, b))
}

// MarkReceivedAsRead marks every message partnerID sent to the caller as read,
// along with the matching message notifications. It returns how many messages changed.
func (s *MessageService) MarkReceivedAsRead(ctx context.Context, actor Actor, partnerID string) (int, error) {
	if partnerID == "" {
		return 0, apperrors.NewValidationError("partner id is required")
	}
	ids, err := s.messages.MarkConversationRead(ctx, actor.UserID, partnerID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.ackNotification(ctx, actor.UserID, id)
	}
	return len(ids), nil
}

// MarkAsRead marks one received message as read. Repeating it succeeds.
func (s *MessageService) MarkAsRead(ctx context.Context, actor Actor, messageID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.ReceiverID != actor.UserID {
		return apperrors.NewForbiddenError("only the receiver can mark a message as read")
	}
	if !msg.Read {
		if err := s.messages.MarkRead(ctx, messageID); err != nil {
			return err
		}
	}
	s.ackNotification(ctx, actor.UserID, messageID)
	return nil
}

// Partners lists the caller's conversation partners, most recent first
func (s *MessageService) Partners(ctx context.Context, actor Actor) ([]*entities.ConversationPartner, error) {
	return orEmpty(s.messages.Partners(ctx, actor.UserID))
}

// Stats returns the caller's unread message count
func (s *MessageService) Stats(ctx context.Context, actor Actor) (*MessageStats, error) {
	n, err := s.messages.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return &MessageStats{UnreadMessages: n}, nil
}

func (s *MessageService) sendTo(ctx context.Context, actor Actor, in SendMessageInput, receiverRole entities.Role, notice string) (*entities.Message, error) {
	kind, content, err := validateMessage(in)
	if err != nil {
		return nil, err
	}
	if in.ReceiverID == "" {
		return nil, apperrors.NewValidationError("receiver_id is required")
	}

	receiver, err := s.users.GetByID(ctx, in.ReceiverID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError(string(receiverRole) + " not found")
		}
		return nil, err
	}
	if receiver.Role != receiverRole {
		return nil, apperrors.NewValidationError("receiver must be a " + string(receiverRole))
	}

	msg, err := s.store(ctx, actor.UserID, receiver.ID, content, kind)
	if err != nil {
		return nil, err
	}
	s.notifyReceiver(ctx, msg, notice)
	return msg, nil
}

func (s *MessageService) store(ctx context.Context, senderID, receiverID, content string, kind entities.MessageType) (*entities.Message, error) {
	msg := &entities.Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Type:       kind,
		CreatedAt:  time.Now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *MessageService) notifyReceiver(ctx context.Context, msg *entities.Message, notice string) {
	s.notifier.Notify(ctx, msg.ReceiverID, entities.NotificationDraft{
		Type:      entities.NotificationMessage,
		Title:     "New Message Received",
		Message:   notice,
		RelatedID: &msg.ID,
	})
}

func (s *MessageService) ackNotification(ctx context.Context, userID, messageID string) {
	if err := s.notifier.MarkRead(ctx, userID, messageID, entities.NotificationMessage); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("message_id", messageID).
			Msg("Failed to mark message notification read")
	}
}

func validateMessage(in SendMessageInput) (entities.MessageType, string, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return "", "", apperrors.NewValidationError("content is required")
	}
	kind := in.Type
	if kind == "" {
		kind = entities.MessageTypeText
	}
	switch kind {
	case entities.MessageTypeText, entities.MessageTypeImage, entities.MessageTypeFile:
	default:
		return "", "", apperrors.NewValidationError("type must be one of text, image, file")
	}
	return kind, content, nil
}
