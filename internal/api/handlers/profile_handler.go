package handlers

import (
	"context"
	"net/http"

	"github.com/medconnect/clinic-backend/internal/application/services"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
)

// ProfileService defines the profile directory operations used by the handler
type ProfileService interface {
	GetAdmin(ctx context.Context, actor services.Actor) (*entities.AdminProfile, error)
	ListAdmins(ctx context.Context) ([]*entities.AdminProfile, error)
	GetOwnDoctor(ctx context.Context, actor services.Actor) (*entities.DoctorProfile, error)
	ListDoctors(ctx context.Context) ([]*entities.DoctorSummary, error)
	ListClients(ctx context.Context) ([]*entities.ClientSummary, error)
	ListFields(ctx context.Context) ([]*entities.Field, error)
	UpdateOwn(ctx context.Context, actor services.Actor, role entities.Role, in services.ProfileUpdate) error
	SetUserStatus(ctx context.Context, actor services.Actor, userID string, status entities.UserStatus) error
}

// ProfileHandler serves the admin, doctor and client profile endpoints
type ProfileHandler struct {
	service ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(service ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

type profileUpdateRequest struct {
	entities.ProfileFields
	Email *string `json:"email"`
}

// GetAdminProfile handles GET /admin/profile
func (h *ProfileHandler) GetAdminProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	profile, err := h.service.GetAdmin(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

// ListAdmins handles GET /admin/admins
func (h *ProfileHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.service.ListAdmins(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, admins)
}

// UpdateProfile returns the PUT handler for the caller's own profile of role.
// PUT /admin/profile, /doctor/profile, /client/profile
func (h *ProfileHandler) UpdateProfile(role entities.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		var req profileUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		err := h.service.UpdateOwn(r.Context(), actor, role, services.ProfileUpdate{
			Email:  req.Email,
			Fields: req.ProfileFields,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		respondWithMessage(w, http.StatusOK, "profile updated successfully")
	}
}

// SetUserStatus handles PUT /admin/users/{id}/status
func (h *ProfileHandler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req struct {
		Status entities.UserStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	userID := r.PathValue("id")
	if err := h.service.SetUserStatus(r.Context(), actor, userID, req.Status); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "user status updated",
		"user_id": userID,
		"status":  string(req.Status),
	})
}

// ListDoctors handles GET /doctor/all
func (h *ProfileHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.service.ListDoctors(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if doctors == nil {
		doctors = []*entities.DoctorSummary{}
	}
	respondWithJSON(w, http.StatusOK, doctors)
}

// GetOwnDoctor handles GET /doctor/doctor-by-id
func (h *ProfileHandler) GetOwnDoctor(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	doctor, err := h.service.GetOwnDoctor(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, doctor)
}

// ListFields handles GET /doctor/fields
func (h *ProfileHandler) ListFields(w http.ResponseWriter, r *http.Request) {
	fields, err := h.service.ListFields(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if fields == nil {
		fields = []*entities.Field{}
	}
	respondWithJSON(w, http.StatusOK, fields)
}

// ListClients handles GET /client/all
func (h *ProfileHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.service.ListClients(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if clients == nil {
		clients = []*entities.ClientSummary{}
	}
	respondWithJSON(w, http.StatusOK, clients)
}
