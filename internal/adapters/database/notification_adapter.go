package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

const insertNotification = `INSERT INTO notifications (id, user_id, type, title, message, related_id, is_read, created_at)
VALUES (:id, :user_id, :type, :title, :message, :related_id, :is_read, :created_at)`

const selectNotifications = `SELECT id, user_id, type, title, message, related_id, is_read, created_at
FROM notifications WHERE user_id = $1`

// NotificationAdapter implements the NotificationRepository interface on sqlx
type NotificationAdapter struct {
	db *sqlx.DB
}

// NewNotificationAdapter creates a new notification adapter
func NewNotificationAdapter(db *sqlx.DB) repositories.NotificationRepository {
	return &NotificationAdapter{db: db}
}

func stamp(n *entities.Notification, now time.Time) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
}

// Create inserts one notification
func (a *NotificationAdapter) Create(ctx context.Context, n *entities.Notification) error {
	stamp(n, time.Now())
	if _, err := a.db.NamedExecContext(ctx, insertNotification, n); err != nil {
		return translate(err, "notification", "create")
	}
	return nil
}

// CreateBatch inserts every notification with one multi-row statement
func (a *NotificationAdapter) CreateBatch(ctx context.Context, ns []*entities.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	now := time.Now()
	for _, n := range ns {
		stamp(n, now)
	}
	if _, err := a.db.NamedExecContext(ctx, insertNotification, ns); err != nil {
		return translate(err, "notification", "create")
	}
	return nil
}

// List retrieves a user's notifications newest first
func (a *NotificationAdapter) List(ctx context.Context, userID string, unreadOnly bool) ([]*entities.Notification, error) {
	query := selectNotifications
	if unreadOnly {
		query += " AND is_read = false"
	}
	query += " ORDER BY created_at DESC"

	notifications := []*entities.Notification{}
	if err := a.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, translate(err, "notification", "list")
	}
	return notifications, nil
}

// CountUnread counts a user's unread notifications
func (a *NotificationAdapter) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := a.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`, userID)
	if err != nil {
		return 0, translate(err, "notification", "count")
	}
	return count, nil
}

// MarkRead marks notifications of a type about relatedID as read.
// Rows that are already read are matched too, so repeating the call is harmless.
func (a *NotificationAdapter) MarkRead(ctx context.Context, userID, relatedID string, t entities.NotificationType) (int64, error) {
	result, err := a.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = true WHERE user_id = $1 AND related_id = $2 AND type = $3`,
		userID, relatedID, t,
	)
	if err != nil {
		return 0, translate(err, "notification", "update")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return n, nil
}

// MarkReadByID marks one of the user's notifications as read
func (a *NotificationAdapter) MarkReadByID(ctx context.Context, userID, id string) error {
	result, err := a.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return translate(err, "notification", "update")
	}
	return expectAffected(result, "notification")
}
