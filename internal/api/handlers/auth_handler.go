package handlers

import (
	"context"
	"net/http"

	"github.com/medconnect/clinic-backend/internal/api/middleware"
	"github.com/medconnect/clinic-backend/internal/application/services"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

// AuthService defines the identity operations used by the handler
type AuthService interface {
	Register(ctx context.Context, role entities.Role, in services.RegisterInput) (*entities.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	VerifySession(ctx context.Context, token string) (*services.Session, error)
	GetProfile(ctx context.Context, actor services.Actor) (*services.ProfileView, error)
	ChangePassword(ctx context.Context, actor services.Actor, current, next string) error
	ChangeAvatar(ctx context.Context, actor services.Actor, avatarRef string) error
	SendOTP(ctx context.Context, actor services.Actor) (string, error)
	VerifyOTP(ctx context.Context, actor services.Actor, code string) error
}

// AuthHandler handles registration, login and session endpoints
type AuthHandler struct {
	service AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

type registerRequest struct {
	entities.ProfileFields
	Email     string `json:"email"`
	Password  string `json:"password"`
	SecretKey string `json:"secret_key"`
}

// Register returns a handler creating an account of role.
// POST /auth/admins, /auth/doctors, /auth/clients
func (h *AuthHandler) Register(role entities.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}

		user, err := h.service.Register(r.Context(), role, services.RegisterInput{
			Email:     req.Email,
			Password:  req.Password,
			SecretKey: req.SecretKey,
			Profile:   req.ProfileFields,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{
			"message": string(role) + " registered successfully",
			"user_id": user.ID,
			"status":  user.Status,
		})
	}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		handleServiceError(w, r, apperrors.NewValidationError("email and password are required"))
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"token":  token,
	})
}

// Verify handles POST /auth/verify. It authenticates on its own so an invalid
// token is reported with the same shape as every other auth failure.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractToken(r)
	if token == "" {
		handleServiceError(w, r, apperrors.NewUnauthorizedError("authentication token is required"))
		return
	}

	session, err := h.service.VerifySession(r.Context(), token)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "token is valid",
		"tabs":    session.Tabs,
		"role":    session.Role,
		"user_id": session.UserID,
	})
}

// GetProfile handles GET /auth/profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetProfile(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// ChangePassword handles PUT /auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
		LegacyPassword  string `json:"newPassword"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	next := firstNonEmpty(req.NewPassword, req.LegacyPassword)
	if err := h.service.ChangePassword(r.Context(), actor, req.CurrentPassword, next); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithMessage(w, http.StatusOK, "password updated successfully")
}

// ChangeProfilePicture handles PUT /auth/change-profile-picture
func (h *AuthHandler) ChangeProfilePicture(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req struct {
		ProfilePicture string `json:"profile_picture"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := h.service.ChangeAvatar(r.Context(), actor, req.ProfilePicture); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message":         "profile picture updated successfully",
		"profile_picture": req.ProfilePicture,
	})
}

// SendOTP handles POST /auth/send-otp
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	code, err := h.service.SendOTP(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "OTP generated successfully",
		"code":    code,
	})
}

// VerifyOTP handles POST /auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := h.service.VerifyOTP(r.Context(), actor, req.Code); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithMessage(w, http.StatusOK, "OTP verified successfully")
}
