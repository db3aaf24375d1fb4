package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

// ProfileAdapter implements the ProfileRepository interface
type ProfileAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProfileAdapter creates a new profile adapter
func NewProfileAdapter(client *postgres.Client) repositories.ProfileRepository {
	return &ProfileAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetAdmin retrieves the admin profile of a user
func (a *ProfileAdapter) GetAdmin(ctx context.Context, userID string) (*entities.AdminProfile, error) {
	query, _, err := a.db.Select(
		"id", "user_id", "first_name", "middle_name", "last_name",
		"contact_number", "status", "created_at", "updated_at",
	).From("admins").Where(goqu.Ex{"user_id": userID}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	p := &entities.AdminProfile{}
	var middle sql.NullString
	err = a.client.DB().QueryRowContext(ctx, query).Scan(
		&p.ID, &p.UserID, &p.FirstName, &middle, &p.LastName,
		&p.ContactNumber, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err, "admin profile", "get")
	}
	p.MiddleName = nullString(middle)
	return p, nil
}

func (a *ProfileAdapter) doctorDataset() *goqu.SelectDataset {
	return a.db.Select(
		goqu.I("d.id"), goqu.I("d.user_id"), goqu.I("d.first_name"), goqu.I("d.middle_name"),
		goqu.I("d.last_name"), goqu.I("d.contact_number"), goqu.I("d.field_id"), goqu.I("f.name"),
		goqu.I("d.valid_id"), goqu.I("d.status"), goqu.I("d.created_at"), goqu.I("d.updated_at"),
	).From(goqu.T("doctors").As("d")).
		LeftJoin(goqu.T("fields").As("f"), goqu.On(goqu.I("f.id").Eq(goqu.I("d.field_id"))))
}

func (a *ProfileAdapter) getDoctor(ctx context.Context, where goqu.Ex) (*entities.DoctorProfile, error) {
	query, _, err := a.doctorDataset().Where(where).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	p := &entities.DoctorProfile{}
	var middle, fieldID, fieldName, validID sql.NullString
	err = a.client.DB().QueryRowContext(ctx, query).Scan(
		&p.ID, &p.UserID, &p.FirstName, &middle, &p.LastName, &p.ContactNumber,
		&fieldID, &fieldName, &validID, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err, "doctor", "get")
	}
	p.MiddleName = nullString(middle)
	p.FieldID = nullString(fieldID)
	p.FieldName = nullString(fieldName)
	p.ValidID = nullString(validID)
	return p, nil
}

// GetDoctorByUserID retrieves the doctor profile owned by a user
func (a *ProfileAdapter) GetDoctorByUserID(ctx context.Context, userID string) (*entities.DoctorProfile, error) {
	return a.getDoctor(ctx, goqu.Ex{"d.user_id": userID})
}

// GetDoctorByID retrieves a doctor profile by its id
func (a *ProfileAdapter) GetDoctorByID(ctx context.Context, doctorID string) (*entities.DoctorProfile, error) {
	return a.getDoctor(ctx, goqu.Ex{"d.id": doctorID})
}

// GetClient retrieves the client profile of a user
func (a *ProfileAdapter) GetClient(ctx context.Context, userID string) (*entities.ClientProfile, error) {
	query, _, err := a.db.Select(
		"id", "user_id", "first_name", "middle_name", "last_name",
		"contact_number", "field_id", "status", "created_at", "updated_at",
	).From("clients").Where(goqu.Ex{"user_id": userID}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	p := &entities.ClientProfile{}
	var middle, fieldID sql.NullString
	err = a.client.DB().QueryRowContext(ctx, query).Scan(
		&p.ID, &p.UserID, &p.FirstName, &middle, &p.LastName,
		&p.ContactNumber, &fieldID, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err, "client profile", "get")
	}
	p.MiddleName = nullString(middle)
	p.FieldID = nullString(fieldID)
	return p, nil
}

// Update writes the profile and optionally the email of a user in one transaction.
// A taken email surfaces as Conflict.
func (a *ProfileAdapter) Update(ctx context.Context, userID string, role entities.Role, email *string, fields entities.ProfileFields) error {
	now := time.Now()
	record := goqu.Record{
		"first_name":     fields.FirstName,
		"middle_name":    fields.MiddleName,
		"last_name":      fields.LastName,
		"contact_number": fields.ContactNumber,
		"updated_at":     now,
	}
	switch role {
	case entities.RoleDoctor:
		record["field_id"] = fields.FieldID
		record["valid_id"] = fields.ValidID
	case entities.RoleClient:
		record["field_id"] = fields.FieldID
	}

	profileQuery, _, err := a.db.Update(profileTable(role)).Set(record).Where(goqu.Ex{"user_id": userID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	var emailQuery string
	if email != nil {
		emailQuery, _, err = a.db.Update("users").
			Set(goqu.Record{"email": strings.ToLower(*email), "updated_at": now}).
			Where(goqu.Ex{"id": userID}).
			ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build update query", err)
		}
	}

	err = a.client.RunInTx(ctx, "update_profile", func(tx *sql.Tx) error {
		if emailQuery != "" {
			if _, err := tx.ExecContext(ctx, emailQuery); err != nil {
				return err
			}
		}
		result, err := tx.ExecContext(ctx, profileQuery)
		if err != nil {
			return err
		}
		return expectAffected(result, "profile")
	})
	if isUniqueViolation(err, usersEmailKey) {
		return apperrors.NewConflictError("email is already registered")
	}
	return translate(err, "profile", "update")
}

// ListDoctors returns every doctor with specialty and account email
func (a *ProfileAdapter) ListDoctors(ctx context.Context) ([]*entities.DoctorSummary, error) {
	query, _, err := a.db.Select(
		goqu.I("d.id"), goqu.I("d.user_id"), goqu.I("d.first_name"), goqu.I("d.middle_name"),
		goqu.I("d.last_name"), goqu.I("f.name"), goqu.I("d.status"), goqu.I("u.email"),
	).From(goqu.T("doctors").As("d")).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("d.user_id")))).
		LeftJoin(goqu.T("fields").As("f"), goqu.On(goqu.I("f.id").Eq(goqu.I("d.field_id")))).
		Order(goqu.I("d.last_name").Asc(), goqu.I("d.first_name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "doctor", "list")
	}
	defer rows.Close()

	var doctors []*entities.DoctorSummary
	for rows.Next() {
		var name entities.PersonName
		var middle, specialty sql.NullString
		d := &entities.DoctorSummary{}
		if err := rows.Scan(&d.DoctorID, &d.UserID, &name.FirstName, &middle, &name.LastName, &specialty, &d.Status, &d.Email); err != nil {
			return nil, apperrors.NewInternalError("failed to scan doctor", err)
		}
		name.MiddleName = nullString(middle)
		d.Name = name.FullName()
		d.Specialty = specialty.String
		doctors = append(doctors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate doctors", err)
	}
	return doctors, nil
}

// ListClients returns every client profile with its account email and status
func (a *ProfileAdapter) ListClients(ctx context.Context) ([]*entities.ClientSummary, error) {
	query, _, err := a.db.Select(
		goqu.I("c.id"), goqu.I("c.user_id"), goqu.I("c.first_name"), goqu.I("c.middle_name"),
		goqu.I("c.last_name"), goqu.I("c.contact_number"), goqu.I("c.field_id"), goqu.I("c.status"),
		goqu.I("c.created_at"), goqu.I("c.updated_at"), goqu.I("u.email"), goqu.I("u.status"),
	).From(goqu.T("clients").As("c")).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("c.user_id")))).
		Order(goqu.I("c.created_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "client", "list")
	}
	defer rows.Close()

	var clients []*entities.ClientSummary
	for rows.Next() {
		c := &entities.ClientSummary{}
		var middle, fieldID sql.NullString
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.FirstName, &middle, &c.LastName, &c.ContactNumber, &fieldID,
			&c.Status, &c.CreatedAt, &c.UpdatedAt, &c.Email, &c.UserStatus,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan client", err)
		}
		c.MiddleName = nullString(middle)
		c.FieldID = nullString(fieldID)
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate clients", err)
	}
	return clients, nil
}

// ListFields returns every specialty ordered by name
func (a *ProfileAdapter) ListFields(ctx context.Context) ([]*entities.Field, error) {
	query, _, err := a.db.Select("id", "name").From("fields").Order(goqu.I("name").Asc()).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "field", "list")
	}
	defer rows.Close()

	var fields []*entities.Field
	for rows.Next() {
		f := &entities.Field{}
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, apperrors.NewInternalError("failed to scan field", err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate fields", err)
	}
	return fields, nil
}
