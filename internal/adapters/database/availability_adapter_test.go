package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/medconnect/clinic-backend/internal/adapters/database"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSlot(start, end time.Time) *entities.AvailabilitySlot {
	return &entities.AvailabilitySlot{
		DoctorID:  "doctor-1",
		Date:      entities.Date{Time: day},
		StartTime: start,
		EndTime:   end,
	}
}

func TestAvailabilityAdapter_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("declares a free slot", func(t *testing.T) {
		client, mock := newMockClient(t)
		adapter := database.NewAvailabilityAdapter(client)

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs("slots:doctor-1:2025-01-10").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM "slots" WHERE (.+)"status" != 'cancelled'`).
			WillReturnRows(slotRow(sqlmock.NewRows(slotCols), "slot-0", "doctor-1", "available", tenAM, tenAM.Add(time.Hour)))
		mock.ExpectExec(`INSERT INTO "slots"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		slot := newSlot(nineAM, tenAM)
		require.NoError(t, adapter.Create(ctx, slot))
		assert.NotEmpty(t, slot.ID)
		assert.Equal(t, entities.SlotStatusAvailable, slot.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("overlapping slot is rejected", func(t *testing.T) {
		client, mock := newMockClient(t)
		adapter := database.NewAvailabilityAdapter(client)

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM "slots"`).
			WillReturnRows(slotRow(sqlmock.NewRows(slotCols), "slot-0", "doctor-1", "booked", nineAM, tenAM))
		mock.ExpectRollback()

		err := adapter.Create(ctx, newSlot(nineAM.Add(30*time.Minute), tenAM.Add(30*time.Minute)))

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAvailabilityAdapter_List(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := database.NewAvailabilityAdapter(client)

	rows := sqlmock.NewRows(slotCols)
	slotRow(rows, "slot-1", "doctor-1", "available", nineAM, tenAM)
	slotRow(rows, "slot-2", "doctor-1", "available", tenAM, tenAM.Add(time.Hour))
	mock.ExpectQuery(`FROM "slots" WHERE (.+)"status" = 'available'(.+) ORDER BY "start_time" ASC`).WillReturnRows(rows)

	slots, err := adapter.List(context.Background(), "doctor-1", entities.Date{Time: day}, entities.SlotStatusAvailable)

	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "slot-1", slots[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
