package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/medconnect/clinic-backend/internal/domain/providers"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

const defaultHeartbeat = 30 * time.Second

// SSEHandler streams stored notifications to connected users as Server-Sent Events
type SSEHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration
	mu        sync.RWMutex
	clients   map[string]int // user id -> open streams
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		heartbeat: defaultHeartbeat,
		clients:   make(map[string]int),
	}
}

// StreamNotifications handles GET /notifications/stream. The caller receives
// events from their own channel plus broadcasts they were not excluded from.
func (h *SSEHandler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, apperrors.ErrorTypeInternal, "streaming not supported")
		return
	}

	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx)

	userEvents, err := h.eventBus.Subscribe(ctx, providers.GetUserChannel(actor.UserID))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to subscribe to user channel")
		respondWithError(w, http.StatusInternalServerError, apperrors.ErrorTypeInternal, "internal server error")
		return
	}
	broadcasts, err := h.eventBus.Subscribe(ctx, providers.EventChannelBroadcast)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to subscribe to broadcast channel")
		respondWithError(w, http.StatusInternalServerError, apperrors.ErrorTypeInternal, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.register(actor.UserID)
	defer h.unregister(actor.UserID)

	h.sendEvent(w, "connected", map[string]interface{}{
		"user_id":   actor.UserID,
		"timestamp": time.Now(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("Client disconnected from notification stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{"timestamp": time.Now()})
			flusher.Flush()
		case event, open := <-userEvents:
			if !open {
				return
			}
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.EventType), event)
			flusher.Flush()
		case event, open := <-broadcasts:
			if !open {
				return
			}
			if event == nil || event.ExcludedUserID == actor.UserID {
				continue
			}
			h.sendEvent(w, string(event.EventType), event)
			flusher.Flush()
		}
	}
}

func (h *SSEHandler) register(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[userID]++
}

func (h *SSEHandler) unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] <= 1 {
		delete(h.clients, userID)
		return
	}
	h.clients[userID]--
}

func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		observability.GetLogger().Error().Err(err).Str("event", eventType).Msg("Failed to marshal event data")
		return
	}
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

// GetClientCount returns the number of open streams
func (h *SSEHandler) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, n := range h.clients {
		count += n
	}
	return count
}

// Health handles GET /health on the stream server
func (h *SSEHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"streams": h.GetClientCount(),
	})
}
