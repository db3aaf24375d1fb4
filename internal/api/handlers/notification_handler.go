package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/medconnect/clinic-backend/internal/domain/entities"
)

// NotificationService defines the inbox operations used by the handler
type NotificationService interface {
	List(ctx context.Context, userID string, unreadOnly bool) ([]*entities.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, relatedID string, t entities.NotificationType) error
	MarkReadByID(ctx context.Context, userID, id string) error
}

// NotificationHandler serves the caller's notification inbox
type NotificationHandler struct {
	service NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List handles GET /notifications?unread=true
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	notifications, err := h.service.List(r.Context(), actor.UserID, unreadOnly)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, notifications)
}

// UnreadCount handles GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	n, err := h.service.UnreadCount(r.Context(), actor.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"unread_count": n})
}

// MarkReadByID handles PUT /notifications/{id}/read
func (h *NotificationHandler) MarkReadByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if err := h.service.MarkReadByID(r.Context(), actor.UserID, r.PathValue("id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithMessage(w, http.StatusOK, "notification marked as read")
}

// MarkRead handles PUT /notifications/read with {"related_id", "type"}
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req struct {
		RelatedID string                    `json:"related_id"`
		Type      entities.NotificationType `json:"type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := h.service.MarkRead(r.Context(), actor.UserID, req.RelatedID, req.Type); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithMessage(w, http.StatusOK, "notifications marked as read")
}
