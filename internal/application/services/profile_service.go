package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

// ProfileUpdate is the editable part of a profile plus an optional new email
type ProfileUpdate struct {
	Email  *string
	Fields entities.ProfileFields
}

// ProfileService manages the per-role profile directory
type ProfileService struct {
	users    repositories.UserRepository
	profiles repositories.ProfileRepository
	notifier Notifier
}

// NewProfileService creates a new profile service
func NewProfileService(users repositories.UserRepository, profiles repositories.ProfileRepository, notifier Notifier) *ProfileService {
	return &ProfileService{users: users, profiles: profiles, notifier: notifier}
}

// GetAdmin returns the caller's admin profile
func (s *ProfileService) GetAdmin(ctx context.Context, actor Actor) (*entities.AdminProfile, error) {
	if err := requireRole(actor, entities.RoleAdmin); err != nil {
		return nil, err
	}
	return s.profiles.GetAdmin(ctx, actor.UserID)
}

// ListAdmins returns every admin profile
func (s *ProfileService) ListAdmins(ctx context.Context) ([]*entities.AdminProfile, error) {
	ids, err := s.users.ListIDsByRole(ctx, entities.RoleAdmin)
	if err != nil {
		return nil, err
	}
	admins := make([]*entities.AdminProfile, 0, len(ids))
	for _, id := range ids {
		admin, err := s.profiles.GetAdmin(ctx, id)
		if err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
				continue
			}
			return nil, err
		}
		admins = append(admins, admin)
	}
	return admins, nil
}

// GetOwnDoctor returns the doctor profile of the calling doctor
func (s *ProfileService) GetOwnDoctor(ctx context.Context, actor Actor) (*entities.DoctorProfile, error) {
	if err := requireRole(actor, entities.RoleDoctor); err != nil {
		return nil, err
	}
	return s.profiles.GetDoctorByUserID(ctx, actor.UserID)
}

// ListDoctors returns the doctor directory
func (s *ProfileService) ListDoctors(ctx context.Context) ([]*entities.DoctorSummary, error) {
	return s.profiles.ListDoctors(ctx)
}

// ListClients returns every client profile
func (s *ProfileService) ListClients(ctx context.Context) ([]*entities.ClientSummary, error) {
	return s.profiles.ListClients(ctx)
}

// ListFields returns the specialties a doctor can belong to
func (s *ProfileService) ListFields(ctx context.Context) ([]*entities.Field, error) {
	return s.profiles.ListFields(ctx)
}

// UpdateOwn rewrites the caller's profile of role, and their email when given
func (s *ProfileService) UpdateOwn(ctx context.Context, actor Actor, role entities.Role, in ProfileUpdate) error {
	if err := requireRole(actor, role); err != nil {
		return err
	}
	if err := validateName(in.Fields.PersonName); err != nil {
		return err
	}

	var email *string
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		normalized, err := normalizeEmail(*in.Email)
		if err != nil {
			return err
		}
		email = &normalized
	}
	if role == entities.RoleAdmin {
		in.Fields.FieldID = nil
		in.Fields.ValidID = nil
	}

	return s.profiles.Update(ctx, actor.UserID, role, email, in.Fields)
}

// SetUserStatus changes an account status and tells the user about it
func (s *ProfileService) SetUserStatus(ctx context.Context, actor Actor, userID string, status entities.UserStatus) error {
	if err := requireRole(actor, entities.RoleAdmin); err != nil {
		return err
	}
	if !status.Valid() {
		return apperrors.NewValidationError("status must be one of pending, enabled, disabled")
	}
	if userID == actor.UserID && status != entities.UserStatusEnabled {
		return apperrors.NewValidationError("admins cannot disable their own account")
	}
	if err := s.users.UpdateStatus(ctx, userID, status); err != nil {
		return err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("user_id", userID).
		Str("status", string(status)).
		Str("admin_id", actor.UserID).
		Msg("User status changed")

	s.notifier.Notify(ctx, userID, entities.NotificationDraft{
		Type:      entities.NotificationAccountStatus,
		Title:     "Account Status Updated",
		Message:   fmt.Sprintf("Your account is now %s.", status),
		RelatedID: &userID,
	})
	return nil
}
