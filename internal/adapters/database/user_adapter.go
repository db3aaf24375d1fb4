package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

const usersEmailKey = "users_email_key"

var userColumns = []interface{}{
	"id", "email", "password_hash", "role", "status", "avatar_ref", "created_at", "updated_at",
}

// UserAdapter implements the UserRepository interface
type UserAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewUserAdapter creates a new user adapter
func NewUserAdapter(client *postgres.Client) repositories.UserRepository {
	return &UserAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// profileTable returns the profile table owned by role
func profileTable(role entities.Role) string {
	switch role {
	case entities.RoleAdmin:
		return "admins"
	case entities.RoleDoctor:
		return "doctors"
	default:
		return "clients"
	}
}

// profileStatusFor mirrors an account status onto the profile flag
func profileStatusFor(status entities.UserStatus) entities.ProfileStatus {
	if status == entities.UserStatusEnabled {
		return entities.ProfileStatusEnabled
	}
	return entities.ProfileStatusDisabled
}

// CreateWithProfile inserts the user and its profile row in one transaction
func (a *UserAdapter) CreateWithProfile(ctx context.Context, user *entities.User, fields entities.ProfileFields) error {
	now := time.Now()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	userQuery, _, err := a.db.Insert("users").Rows(goqu.Record{
		"id":            user.ID,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"role":          user.Role,
		"status":        user.Status,
		"avatar_ref":    user.AvatarRef,
		"created_at":    now,
		"updated_at":    now,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	profile := goqu.Record{
		"id":             uuid.New().String(),
		"user_id":        user.ID,
		"first_name":     fields.FirstName,
		"middle_name":    fields.MiddleName,
		"last_name":      fields.LastName,
		"contact_number": fields.ContactNumber,
		"status":         profileStatusFor(user.Status),
		"created_at":     now,
		"updated_at":     now,
	}
	switch user.Role {
	case entities.RoleDoctor:
		profile["field_id"] = fields.FieldID
		profile["valid_id"] = fields.ValidID
	case entities.RoleClient:
		profile["field_id"] = fields.FieldID
	}

	profileQuery, _, err := a.db.Insert(profileTable(user.Role)).Rows(profile).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	err = a.client.RunInTx(ctx, "register", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, userQuery); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, profileQuery)
		return err
	})
	if isUniqueViolation(err, usersEmailKey) {
		return apperrors.NewConflictError("email is already registered")
	}
	return translate(err, "user", "create")
}

func scanUser(row interface{ Scan(...interface{}) error }) (*entities.User, error) {
	user := &entities.User{}
	var avatar sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&avatar,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.AvatarRef = nullString(avatar)
	return user, nil
}

// GetByID retrieves a user by ID
func (a *UserAdapter) GetByID(ctx context.Context, id string) (*entities.User, error) {
	query, _, err := a.db.Select(userColumns...).From("users").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	user, err := scanUser(a.client.DB().QueryRowContext(ctx, query))
	if err != nil {
		return nil, translate(err, "user", "get")
	}
	return user, nil
}

// GetByEmail retrieves a user by email, case-insensitively
func (a *UserAdapter) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	query, _, err := a.db.Select(userColumns...).From("users").
		Where(goqu.Func("lower", goqu.C("email")).Eq(strings.ToLower(email))).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	user, err := scanUser(a.client.DB().QueryRowContext(ctx, query))
	if err != nil {
		return nil, translate(err, "user", "get")
	}
	return user, nil
}

func (a *UserAdapter) updateColumns(ctx context.Context, id string, record goqu.Record) error {
	record["updated_at"] = time.Now()
	query, _, err := a.db.Update("users").Set(record).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query)
	if err != nil {
		return translate(err, "user", "update")
	}
	return expectAffected(result, "user")
}

// UpdatePassword replaces the stored password hash
func (a *UserAdapter) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return a.updateColumns(ctx, id, goqu.Record{"password_hash": passwordHash})
}

// UpdateAvatar replaces the avatar reference
func (a *UserAdapter) UpdateAvatar(ctx context.Context, id, avatarRef string) error {
	return a.updateColumns(ctx, id, goqu.Record{"avatar_ref": avatarRef})
}

// UpdateStatus changes the account status and the profile flag of its role together
func (a *UserAdapter) UpdateStatus(ctx context.Context, id string, status entities.UserStatus) error {
	user, err := a.GetByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	userQuery, _, err := a.db.Update("users").
		Set(goqu.Record{"status": status, "updated_at": now}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}
	profileQuery, _, err := a.db.Update(profileTable(user.Role)).
		Set(goqu.Record{"status": profileStatusFor(status), "updated_at": now}).
		Where(goqu.Ex{"user_id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	err = a.client.RunInTx(ctx, "update_user_status", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, userQuery); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, profileQuery)
		return err
	})
	return translate(err, "user", "update")
}

func (a *UserAdapter) listIDs(ctx context.Context, where goqu.Ex) ([]string, error) {
	ds := a.db.Select("id").From("users").Order(goqu.I("created_at").Asc())
	if len(where) > 0 {
		ds = ds.Where(where)
	}
	query, _, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "user", "list")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewInternalError("failed to scan user id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate users", err)
	}
	return ids, nil
}

// ListIDs returns the ids of every user
func (a *UserAdapter) ListIDs(ctx context.Context) ([]string, error) {
	return a.listIDs(ctx, nil)
}

// ListIDsByRole returns the ids of every user holding role
func (a *UserAdapter) ListIDsByRole(ctx context.Context, role entities.Role) ([]string, error) {
	return a.listIDs(ctx, goqu.Ex{"role": role})
}

// CountByRole counts users holding role
func (a *UserAdapter) CountByRole(ctx context.Context, role entities.Role) (int, error) {
	query, _, err := a.db.Select(goqu.COUNT("*")).From("users").Where(goqu.Ex{"role": role}).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, translate(err, "user", "count")
	}
	return count, nil
}
