package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/medconnect/clinic-backend/internal/application/services"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
)

// MessageService defines the messaging operations used by the handler
type MessageService interface {
	SendAsClient(ctx context.Context, actor services.Actor, in services.SendMessageInput) (*entities.Message, error)
	SendAsDoctor(ctx context.Context, actor services.Actor, in services.SendMessageInput) (*entities.Message, error)
	SendToAdmins(ctx context.Context, actor services.Actor, in services.SendMessageInput) ([]*entities.Message, error)
	Conversation(ctx context.Context, actor services.Actor, a, b string) ([]*entities.Message, error)
	MarkReceivedAsRead(ctx context.Context, actor services.Actor, partnerID string) (int, error)
	MarkAsRead(ctx context.Context, actor services.Actor, messageID string) error
	Partners(ctx context.Context, actor services.Actor) ([]*entities.ConversationPartner, error)
	Stats(ctx context.Context, actor services.Actor) (*services.MessageStats, error)
}

// MessageHandler handles direct messaging endpoints
type MessageHandler struct {
	service MessageService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(service MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

type sendMessageRequest struct {
	ReceiverID string               `json:"receiver_id"`
	Content    string               `json:"content"`
	Type       entities.MessageType `json:"type"`
}

func (req sendMessageRequest) input() services.SendMessageInput {
	return services.SendMessageInput{ReceiverID: req.ReceiverID, Content: req.Content, Type: req.Type}
}

// SendAsClient handles POST /messages/client
func (h *MessageHandler) SendAsClient(w http.ResponseWriter, r *http.Request) {
	h.sendOne(w, r, h.service.SendAsClient)
}

// SendAsDoctor handles POST /messages/doctor
func (h *MessageHandler) SendAsDoctor(w http.ResponseWriter, r *http.Request) {
	h.sendOne(w, r, h.service.SendAsDoctor)
}

// SendToAdmins handles POST /messages/admin
func (h *MessageHandler) SendToAdmins(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	sent, err := h.service.SendToAdmins(r.Context(), actor, req.input())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "message sent to admins",
		"messages": sent,
	})
}

func (h *MessageHandler) sendOne(w http.ResponseWriter, r *http.Request, send func(context.Context, services.Actor, services.SendMessageInput) (*entities.Message, error)) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	msg, err := send(r.Context(), actor, req.input())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, msg)
}

// Conversation handles GET /messages/{user1}/{user2}. With ?mark_read=true the
// messages the caller received in it are marked read after fetching.
func (h *MessageHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	a, b := r.PathValue("user1"), r.PathValue("user2")
	messages, err := h.service.Conversation(r.Context(), actor, a, b)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if markRead, _ := strconv.ParseBool(r.URL.Query().Get("mark_read")); markRead {
		partner := ""
		switch actor.UserID {
		case a:
			partner = b
		case b:
			partner = a
		}
		if partner != "" {
			if _, err := h.service.MarkReceivedAsRead(r.Context(), actor, partner); err != nil {
				handleServiceError(w, r, err)
				return
			}
		}
	}
	respondWithJSON(w, http.StatusOK, messages)
}

// MarkConversationRead handles PUT /messages/conversations/{partnerId}/read
func (h *MessageHandler) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	n, err := h.service.MarkReceivedAsRead(r.Context(), actor, r.PathValue("partnerId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "messages marked as read",
		"updated": n,
	})
}

// MarkAsRead handles PUT /messages/read/{id}
func (h *MessageHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if err := h.service.MarkAsRead(r.Context(), actor, r.PathValue("id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithMessage(w, http.StatusOK, "message marked as read")
}

// Partners handles GET /messages/partners and GET /messages/admin
func (h *MessageHandler) Partners(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	partners, err := h.service.Partners(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, partners)
}

// Stats handles GET /messages/stats
func (h *MessageHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
