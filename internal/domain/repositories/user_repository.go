package repositories

import (
	"context"

	"github.com/medconnect/clinic-backend/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// CreateWithProfile creates the user and the profile row for its role in one transaction
	CreateWithProfile(ctx context.Context, user *entities.User, profile entities.ProfileFields) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*entities.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*entities.User, error)

	// UpdatePassword replaces the stored password hash
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// UpdateAvatar replaces the avatar reference
	UpdateAvatar(ctx context.Context, id, avatarRef string) error

	// UpdateStatus changes the account status and mirrors it onto the profile
	UpdateStatus(ctx context.Context, id string, status entities.UserStatus) error

	// ListIDs returns the ids of every user
	ListIDs(ctx context.Context) ([]string, error)

	// ListIDsByRole returns the ids of every user holding role
	ListIDsByRole(ctx context.Context, role entities.Role) ([]string, error)

	// CountByRole counts users holding role
	CountByRole(ctx context.Context, role entities.Role) (int, error)
}

// ProfileRepository defines the interface for per-role profile operations
type ProfileRepository interface {
	GetAdmin(ctx context.Context, userID string) (*entities.AdminProfile, error)
	GetDoctorByUserID(ctx context.Context, userID string) (*entities.DoctorProfile, error)
	GetDoctorByID(ctx context.Context, doctorID string) (*entities.DoctorProfile, error)
	GetClient(ctx context.Context, userID string) (*entities.ClientProfile, error)

	// Update writes the profile of userID and, when email is non-nil, the user's email,
	// in one transaction
	Update(ctx context.Context, userID string, role entities.Role, email *string, fields entities.ProfileFields) error

	ListDoctors(ctx context.Context) ([]*entities.DoctorSummary, error)
	ListClients(ctx context.Context) ([]*entities.ClientSummary, error)
	ListFields(ctx context.Context) ([]*entities.Field, error)
}

// OTPRepository stores one active one-time code per user
type OTPRepository interface {
	// Save stores code for userID, superseding any previous code
	Save(ctx context.Context, userID, code string, ttlSeconds int) error

	// Consume deletes the active code when it matches and has not expired.
	// It reports whether a matching code was consumed.
	Consume(ctx context.Context, userID, code string) (bool, error)
}
