package services

import (
	"context"
	"crypto/subtle"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	"github.com/medconnect/clinic-backend/internal/infrastructure/security"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

const msgInvalidCredentials = "invalid email or password"

// RegisterInput is the registration payload shared by every role
type RegisterInput struct {
	Email     string
	Password  string
	SecretKey string
	Profile   entities.ProfileFields
}

// Session is the verified identity behind a token
type Session struct {
	UserID string        `json:"user_id"`
	Role   entities.Role `json:"role"`
	Tabs   []string      `json:"tabs"`
}

// ProfileView is the caller's own account and profile
type ProfileView struct {
	Role           entities.Role `json:"role"`
	Email          string        `json:"email"`
	ProfilePicture *string       `json:"profile_picture"`
	Profile        interface{}   `json:"profile"`
}

// AuthService handles registration, login, sessions and one-time codes
type AuthService struct {
	users       repositories.UserRepository
	profiles    repositories.ProfileRepository
	otps        repositories.OTPRepository
	hasher      *security.PasswordHasher
	tokens      *security.TokenManager
	adminSecret string
	otpTTL      time.Duration
	generateOTP func() (string, error)
}

// NewAuthService creates a new auth service
func NewAuthService(
	users repositories.UserRepository,
	profiles repositories.ProfileRepository,
	otps repositories.OTPRepository,
	hasher *security.PasswordHasher,
	tokens *security.TokenManager,
	adminSecret string,
	otpTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:       users,
		profiles:    profiles,
		otps:        otps,
		hasher:      hasher,
		tokens:      tokens,
		adminSecret: adminSecret,
		otpTTL:      otpTTL,
		generateOTP: security.GenerateOTP,
	}
}

// Register creates a user of role together with its profile
func (s *AuthService) Register(ctx context.Context, role entities.Role, in RegisterInput) (*entities.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperrors.NewValidationError("password must be at least 8 characters")
	}
	if err := validateName(in.Profile.PersonName); err != nil {
		return nil, err
	}

	status := entities.UserStatusPending
	if role == entities.RoleAdmin {
		if s.adminSecret == "" || subtle.ConstantTimeCompare([]byte(in.SecretKey), []byte(s.adminSecret)) != 1 {
			return nil, apperrors.NewUnauthorizedError("invalid admin secret key")
		}
		status = entities.UserStatusEnabled
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	now := time.Now()
	user := &entities.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateWithProfile(ctx, user, in.Profile); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("user_id", user.ID).
		Str("role", string(role)).
		Msg("User registered")
	return user, nil
}

// Login checks credentials and issues a session token.
// Failed attempts have no side effects.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return "", apperrors.NewUnauthorizedError(msgInvalidCredentials)
		}
		return "", err
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return "", apperrors.NewUnauthorizedError(msgInvalidCredentials)
	}
	if user.Status == entities.UserStatusDisabled {
		return "", apperrors.NewForbiddenError("account is disabled")
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return "", apperrors.NewInternalError("failed to issue token", err)
	}
	return token, nil
}

// VerifySession validates token and returns the identity it carries
func (s *AuthService) VerifySession(ctx context.Context, token string) (*Session, error) {
	return sessionFromToken(s.tokens, token)
}

// TokenVerifier checks session tokens without touching storage. The realtime
// server uses it in place of a full AuthService.
type TokenVerifier struct {
	tokens *security.TokenManager
}

// NewTokenVerifier creates a verifier for tokens issued by tokens
func NewTokenVerifier(tokens *security.TokenManager) *TokenVerifier {
	return &TokenVerifier{tokens: tokens}
}

// VerifySession returns the session behind token
func (v *TokenVerifier) VerifySession(_ context.Context, token string) (*Session, error) {
	return sessionFromToken(v.tokens, token)
}

func sessionFromToken(tokens *security.TokenManager, token string) (*Session, error) {
	claims, err := tokens.Parse(token)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("token is invalid or expired")
	}
	return &Session{
		UserID: claims.UserID,
		Role:   claims.Role,
		Tabs:   claims.Role.Tabs(),
	}, nil
}

// GetProfile returns the caller's account with the profile of their role
func (s *AuthService) GetProfile(ctx context.Context, actor Actor) (*ProfileView, error) {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	var profile interface{}
	switch user.Role {
	case entities.RoleAdmin:
		profile, err = s.profiles.GetAdmin(ctx, user.ID)
	case entities.RoleDoctor:
		profile, err = s.profiles.GetDoctorByUserID(ctx, user.ID)
	case entities.RoleClient:
		profile, err = s.profiles.GetClient(ctx, user.ID)
	}
	if err != nil {
		return nil, err
	}

	return &ProfileView{
		Role:           user.Role,
		Email:          user.Email,
		ProfilePicture: user.AvatarRef,
		Profile:        profile,
	}, nil
}

// ChangePassword replaces the caller's password. When current is supplied it must match.
func (s *AuthService) ChangePassword(ctx context.Context, actor Actor, current, next string) error {
	if len(next) < MinPasswordLength {
		return apperrors.NewValidationError("password must be at least 8 characters")
	}
	if current != "" {
		user, err := s.users.GetByID(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if !s.hasher.Compare(user.PasswordHash, current) {
			return apperrors.NewUnauthorizedError("current password is incorrect")
		}
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return apperrors.NewInternalError("failed to hash password", err)
	}
	return s.users.UpdatePassword(ctx, actor.UserID, hash)
}

// ChangeAvatar stores a new avatar reference for the caller
func (s *AuthService) ChangeAvatar(ctx context.Context, actor Actor, avatarRef string) error {
	avatarRef = strings.TrimSpace(avatarRef)
	if avatarRef == "" {
		return apperrors.NewValidationError("profile picture is required")
	}
	return s.users.UpdateAvatar(ctx, actor.UserID, avatarRef)
}

// SendOTP issues a fresh one-time code for the caller, superseding any previous one
func (s *AuthService) SendOTP(ctx context.Context, actor Actor) (string, error) {
	code, err := s.generateOTP()
	if err != nil {
		return "", apperrors.NewInternalError("failed to generate code", err)
	}
	if err := s.otps.Save(ctx, actor.UserID, code, int(s.otpTTL/time.Second)); err != nil {
		return "", err
	}
	return code, nil
}

// VerifyOTP consumes the caller's active code when it matches
func (s *AuthService) VerifyOTP(ctx context.Context, actor Actor, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return apperrors.NewValidationError("invalid OTP")
	}
	ok, err := s.otps.Consume(ctx, actor.UserID, code)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewValidationError("invalid OTP")
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperrors.NewValidationError("a valid email is required")
	}
	return email, nil
}

func validateName(n entities.PersonName) error {
	var missing []string
	if strings.TrimSpace(n.FirstName) == "" {
		missing = append(missing, "first_name")
	}
	if strings.TrimSpace(n.LastName) == "" {
		missing = append(missing, "last_name")
	}
	switch len(missing) {
	case 1:
		return apperrors.NewValidationError(missing[0] + " is required")
	case 2:
		return apperrors.NewValidationError(strings.Join(missing, " and ") + " are required")
	}
	return nil
}
