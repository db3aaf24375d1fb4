package handlers

import (
	"context"
	"net/http"

	"github.com/medconnect/clinic-backend/internal/application/services"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
)

// EventService defines the event board operations used by the handler
type EventService interface {
	Create(ctx context.Context, actor services.Actor, in services.CreateEventInput) (*entities.Event, error)
	List(ctx context.Context, actor services.Actor, q services.EventQuery) ([]*entities.EventSummary, error)
	UpcomingThisMonth(ctx context.Context, actor services.Actor) ([]*entities.EventSummary, error)
	MonthlyCounts(ctx context.Context, year int) ([]entities.MonthlyCount, error)
	ToggleInterest(ctx context.Context, actor services.Actor, eventID string) (bool, error)
}

// EventHandler handles event board endpoints
type EventHandler struct {
	service EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(service EventService) *EventHandler {
	return &EventHandler{service: service}
}

// Create handles POST /events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req struct {
		Title       string               `json:"title"`
		Description string               `json:"description"`
		Location    string               `json:"location"`
		Date        string               `json:"date"`
		Time        string               `json:"time"`
		Status      entities.EventStatus `json:"status"`
		ImageRef    string               `json:"image"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	event, err := h.service.Create(r.Context(), actor, services.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Date:        req.Date,
		Time:        req.Time,
		Status:      req.Status,
		ImageRef:    req.ImageRef,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, event)
}

// List handles GET /events?keyword=&date=&status=
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	events, err := h.service.List(r.Context(), actor, services.EventQuery{
		Keyword: firstNonEmpty(query.Get("keyword"), query.Get("q")),
		Date:    query.Get("date"),
		Status:  query.Get("status"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, events)
}

// Upcoming handles GET /events/upcoming
func (h *EventHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	events, err := h.service.UpcomingThisMonth(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, events)
}

// MonthlyCounts handles GET /events/stats/{year}
func (h *EventHandler) MonthlyCounts(w http.ResponseWriter, r *http.Request) {
	year, err := pathYear(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	rows, err := h.service.MonthlyCounts(r.Context(), year)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rows)
}

// ToggleInterest handles POST /events/{id}/interest
func (h *EventHandler) ToggleInterest(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	interested, err := h.service.ToggleInterest(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"interested": interested})
}
