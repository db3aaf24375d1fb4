package database_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/medconnect/clinic-backend/internal/infrastructure/clients/postgres"
	"github.com/medconnect/clinic-backend/pkg/retry"
	"github.com/stretchr/testify/require"
)

func newMockClient(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return postgres.NewClientFromDB(db).WithTxRetry(retry.Config{MaxAttempts: 1}), mock
}

var (
	day       = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	nineAM    = day.Add(9 * time.Hour)
	tenAM     = day.Add(10 * time.Hour)
	createdAt = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
)

var slotCols = []string{"id", "doctor_id", "date", "start_time", "end_time", "status", "created_at", "updated_at"}

func slotRow(rows *sqlmock.Rows, id, doctorID, status string, start, end time.Time) *sqlmock.Rows {
	return rows.AddRow(id, doctorID, day, start, end, status, createdAt, createdAt)
}
