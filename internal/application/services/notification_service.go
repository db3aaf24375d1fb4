package services

import (
	"context"

	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/providers"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

// Notifier is the fan-out surface used by producer services
type Notifier interface {
	// Notify stores one notification for userID. Failures are logged, never returned.
	Notify(ctx context.Context, userID string, draft entities.NotificationDraft)
	// Broadcast queues draft for every user except excludeUserID and returns immediately.
	// It reports whether the job was accepted.
	Broadcast(ctx context.Context, draft entities.NotificationDraft, excludeUserID string) bool
	// MarkRead acknowledges the user's notifications of type t about relatedID
	MarkRead(ctx context.Context, userID, relatedID string, t entities.NotificationType) error
}

// NotificationService stores notifications and pushes them to realtime subscribers
type NotificationService struct {
	repo       repositories.NotificationRepository
	bus        providers.EventBus
	dispatcher *NotificationDispatcher
	metrics    *observability.Metrics
}

// NewNotificationService creates a new notification service.
// bus and metrics may be nil.
func NewNotificationService(
	repo repositories.NotificationRepository,
	bus providers.EventBus,
	dispatcher *NotificationDispatcher,
	metrics *observability.Metrics,
) *NotificationService {
	return &NotificationService{
		repo:       repo,
		bus:        bus,
		dispatcher: dispatcher,
		metrics:    metrics,
	}
}

// Notify stores a single notification and publishes it on the recipient's channel
func (s *NotificationService) Notify(ctx context.Context, userID string, draft entities.NotificationDraft) {
	logger := observability.LoggerFromContext(ctx)

	n := draft.For(userID)
	if err := s.repo.Create(ctx, n); err != nil {
		logger.Error().Err(err).
			Str("user_id", userID).
			Str("type", string(draft.Type)).
			Msg("Failed to store notification")
		return
	}
	observability.RecordNotifications(ctx, s.metrics, string(draft.Type), 1)

	if s.bus == nil {
		return
	}
	event := entities.NewRealtimeEvent(entities.RealtimeEventNotification, userID, n)
	if err := s.bus.Publish(ctx, providers.GetUserChannel(userID), event); err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to publish notification")
	}
}

// Broadcast hands draft to the dispatcher
func (s *NotificationService) Broadcast(ctx context.Context, draft entities.NotificationDraft, excludeUserID string) bool {
	if s.dispatcher == nil {
		observability.LoggerFromContext(ctx).Warn().
			Str("type", string(draft.Type)).
			Msg("Broadcast dispatcher not configured; dropping broadcast")
		return false
	}
	return s.dispatcher.Enqueue(ctx, BroadcastJob{Draft: draft, ExcludeUserID: excludeUserID})
}

// List returns the user's notifications newest first
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]*entities.Notification, error) {
	ns, err := s.repo.List(ctx, userID, unreadOnly)
	if err != nil {
		return nil, err
	}
	if ns == nil {
		ns = []*entities.Notification{}
	}
	return ns, nil
}

// UnreadCount counts the user's unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks the user's notifications of type t about relatedID as read.
// Marking notifications that are already read succeeds.
func (s *NotificationService) MarkRead(ctx context.Context, userID, relatedID string, t entities.NotificationType) error {
	if relatedID == "" || t == "" {
		return apperrors.NewValidationError("related_id and type are required")
	}
	_, err := s.repo.MarkRead(ctx, userID, relatedID, t)
	return err
}

// MarkReadByID marks one of the user's notifications as read
func (s *NotificationService) MarkReadByID(ctx context.Context, userID, id string) error {
	if id == "" {
		return apperrors.NewValidationError("notification id is required")
	}
	return s.repo.MarkReadByID(ctx, userID, id)
}
