package handlers

import (
	"context"
	"net/http"

	"github.com/medconnect/clinic-backend/internal/application/services"
)

// DashboardService defines the summary reads used by the handler
type DashboardService interface {
	Counts(ctx context.Context, actor services.Actor) (*services.Counts, error)
	DoctorDashboard(ctx context.Context, actor services.Actor) (*services.DoctorDashboard, error)
	DoctorStats(ctx context.Context, actor services.Actor) (*services.DoctorStats, error)
}

// DashboardHandler serves landing page and doctor home summaries
type DashboardHandler struct {
	service DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Counts handles GET /dashboard/counts
func (h *DashboardHandler) Counts(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	counts, err := h.service.Counts(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, counts)
}

// DoctorDashboard handles GET /doctor/dashboard
func (h *DashboardHandler) DoctorDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	dashboard, err := h.service.DoctorDashboard(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, dashboard)
}

// DoctorStats handles GET /doctor/stats
func (h *DashboardHandler) DoctorStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	stats, err := h.service.DoctorStats(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
