package handlers

import (
	"context"
	"net/http"

	"github.com/medconnect/clinic-backend/internal/application/services"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
)

// AppointmentService defines the scheduler operations used by the handler
type AppointmentService interface {
	RequestAppointment(ctx context.Context, actor services.Actor, in services.RequestAppointmentInput) (*entities.Appointment, error)
	Decide(ctx context.Context, actor services.Actor, id string, outcome entities.AppointmentStatus) (*entities.Appointment, error)
	Complete(ctx context.Context, actor services.Actor, id string) (*entities.Appointment, error)
	Cancel(ctx context.Context, actor services.Actor, id string) (*entities.Appointment, error)
	ListMine(ctx context.Context, actor services.Actor) ([]*entities.Appointment, error)
	ListForClient(ctx context.Context, actor services.Actor) ([]*entities.Appointment, error)
	ListForDoctor(ctx context.Context, actor services.Actor, doctorID string) ([]*entities.Appointment, error)
	MonthlyCounts(ctx context.Context, year int) ([]entities.MonthlyCount, error)
}

// AppointmentHandler handles appointment endpoints
type AppointmentHandler struct {
	service AppointmentService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(service AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

type requestAppointmentRequest struct {
	DoctorID       string `json:"doctor_id"`
	AvailabilityID string `json:"availability_id"`
	SlotID         string `json:"slot_id"`
	Remarks        string `json:"remarks"`
}

// RequestAppointment handles POST /appointments
func (h *AppointmentHandler) RequestAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req requestAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	appointment, err := h.service.RequestAppointment(r.Context(), actor, services.RequestAppointmentInput{
		DoctorID: req.DoctorID,
		SlotID:   firstNonEmpty(req.SlotID, req.AvailabilityID),
		Remarks:  req.Remarks,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, appointment)
}

// ListMine handles GET /appointments
func (h *AppointmentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	h.respondList(w, r)(h.service.ListMine(r.Context(), actor))
}

// ListForClient handles GET /appointments/client
func (h *AppointmentHandler) ListForClient(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	h.respondList(w, r)(h.service.ListForClient(r.Context(), actor))
}

// ListForDoctor handles GET /appointments/doctor. Admins pick the doctor with ?doctor_id=.
func (h *AppointmentHandler) ListForDoctor(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	doctorID := firstNonEmpty(query.Get("doctor_id"), query.Get("doctorId"))
	h.respondList(w, r)(h.service.ListForDoctor(r.Context(), actor, doctorID))
}

// MonthlyCounts handles GET /appointments/stats/{year}
func (h *AppointmentHandler) MonthlyCounts(w http.ResponseWriter, r *http.Request) {
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

// Decide handles PUT /appointments/{id}/decision with {"status": "Approved"|"Rejected"}
func (h *AppointmentHandler) Decide(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req struct {
		Status entities.AppointmentStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.respondTransition(w, r)(h.service.Decide(r.Context(), actor, r.PathValue("id"), req.Status))
}

// Complete handles PUT /appointments/{id}/complete
func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	h.respondTransition(w, r)(h.service.Complete(r.Context(), actor, r.PathValue("id")))
}

// Cancel handles PUT /appointments/{id}/cancel
func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	h.respondTransition(w, r)(h.service.Cancel(r.Context(), actor, r.PathValue("id")))
}

func (h *AppointmentHandler) respondList(w http.ResponseWriter, r *http.Request) func([]*entities.Appointment, error) {
	return func(appointments []*entities.Appointment, err error) {
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		if appointments == nil {
			appointments = []*entities.Appointment{}
		}
		respondWithJSON(w, http.StatusOK, appointments)
	}
}

func (h *AppointmentHandler) respondTransition(w http.ResponseWriter, r *http.Request) func(*entities.Appointment, error) {
	return func(appointment *entities.Appointment, err error) {
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"message":     "appointment " + string(appointment.Status),
			"appointment": appointment,
		})
	}
}
