package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/medconnect/clinic-backend/internal/adapters/database"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDoctorUser() (*entities.User, entities.ProfileFields) {
	user := &entities.User{
		Email:        "house@example.com",
		PasswordHash: "$2a$10$hash",
		Role:         entities.RoleDoctor,
		Status:       entities.UserStatusPending,
	}
	fields := entities.ProfileFields{
		PersonName:    entities.PersonName{FirstName: "Greg", LastName: "House"},
		ContactNumber: "555-0100",
	}
	return user, fields
}

func TestUserAdapter_CreateWithProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user and profile together", func(t *testing.T) {
		client, mock := newMockClient(t)
		adapter := database.NewUserAdapter(client)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "users"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "doctors" (.+)'disabled'`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		user, fields := newDoctorUser()
		require.NoError(t, adapter.CreateWithProfile(ctx, user, fields))
		assert.NotEmpty(t, user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		client, mock := newMockClient(t)
		adapter := database.NewUserAdapter(client)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "users"`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})
		mock.ExpectRollback()

		user, fields := newDoctorUser()
		err := adapter.CreateWithProfile(ctx, user, fields)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("profile failure rolls back the user", func(t *testing.T) {
		client, mock := newMockClient(t)
		adapter := database.NewUserAdapter(client)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "users"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "doctors"`).WillReturnError(errors.New("violates foreign key"))
		mock.ExpectRollback()

		user, fields := newDoctorUser()
		err := adapter.CreateWithProfile(ctx, user, fields)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserAdapter_GetByEmail(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewUserAdapter(client)

	mock.ExpectQuery(`FROM "users" WHERE \(lower\("email"\) = 'house@example.com'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "status", "avatar_ref", "created_at", "updated_at"}).
			AddRow("u1", "house@example.com", "hash", "doctor", "enabled", nil, createdAt, createdAt))

	user, err := adapter.GetByEmail(context.Background(), "House@Example.com")

	require.NoError(t, err)
	assert.Equal(t, entities.RoleDoctor, user.Role)
	assert.Nil(t, user.AvatarRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserAdapter_GetByID_NotFound(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewUserAdapter(client)

	mock.ExpectQuery(`FROM "users"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := adapter.GetByID(context.Background(), "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestUserAdapter_ListIDsByRole(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewUserAdapter(client)

	mock.ExpectQuery(`SELECT "id" FROM "users" WHERE \("role" = 'admin'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a1").AddRow("a2"))

	ids, err := adapter.ListIDsByRole(context.Background(), entities.RoleAdmin)

	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, ids)
}
