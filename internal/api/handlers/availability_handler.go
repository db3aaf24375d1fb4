package handlers

import (
	"context"
	"net/http"

	"github.com/medconnect/clinic-backend/internal/application/services"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

// AvailabilityService defines the slot ledger operations used by the handler
type AvailabilityService interface {
	DeclareSlot(ctx context.Context, actor services.Actor, in services.DeclareSlotInput) (*entities.AvailabilitySlot, error)
	ListSlots(ctx context.Context, doctorID, date string, status entities.SlotStatus) ([]*entities.AvailabilitySlot, error)
	AvailableTimes(ctx context.Context, doctorID, date string) ([]*entities.AvailabilitySlot, error)
}

// DoctorResolver finds the doctor profile of a doctor user
type DoctorResolver interface {
	GetOwnDoctor(ctx context.Context, actor services.Actor) (*entities.DoctorProfile, error)
}

// AvailabilityHandler serves the doctor availability endpoints
type AvailabilityHandler struct {
	service AvailabilityService
	doctors DoctorResolver
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(service AvailabilityService, doctors DoctorResolver) *AvailabilityHandler {
	return &AvailabilityHandler{service: service, doctors: doctors}
}

// DeclareSlot handles POST /doctor/availability
func (h *AvailabilityHandler) DeclareSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req struct {
		DoctorID  string `json:"doctor_id"`
		Date      string `json:"date"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	slot, err := h.service.DeclareSlot(r.Context(), actor, services.DeclareSlotInput{
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, slot)
}

// ListSlots handles GET /doctor/availability?doctor_id=&date=&status=.
// A doctor who omits doctor_id sees their own ledger.
func (h *AvailabilityHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	doctorID := firstNonEmpty(query.Get("doctor_id"), query.Get("doctorId"))
	if doctorID == "" && actor.Role == entities.RoleDoctor {
		doctor, err := h.doctors.GetOwnDoctor(r.Context(), actor)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		doctorID = doctor.ID
	}

	slots, err := h.service.ListSlots(r.Context(), doctorID, query.Get("date"), entities.SlotStatus(query.Get("status")))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, slots)
}

// AvailableTimes handles GET /doctor/available-times?doctorId=&date=
func (h *AvailabilityHandler) AvailableTimes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	doctorID := firstNonEmpty(query.Get("doctorId"), query.Get("doctor_id"))
	date := query.Get("date")
	if doctorID == "" || date == "" {
		handleServiceError(w, r, apperrors.NewValidationError("doctorId and date are required"))
		return
	}

	slots, err := h.service.AvailableTimes(r.Context(), doctorID, date)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, slots)
}
