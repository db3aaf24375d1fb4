package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/medconnect/clinic-backend/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := retry.Transient(IsTransient)
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	return NewClientFromDB(db).WithTxRetry(cfg), mock
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"wrapped bad conn", fmt.Errorf("query: %w", driver.ErrBadConn), true},
		{"connection exception", &pq.Error{Code: "08006"}, true},
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock", &pq.Error{Code: "40P01"}, true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"reset", errors.New("read tcp: connection reset by peer"), true},
		{"no rows", sql.ErrNoRows, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestRunInTx_Commits(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE slots").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var observed string
	client.OnTx(func(ctx context.Context, operation string, d time.Duration) { observed = operation })

	err := client.RunInTx(context.Background(), "book", func(tx *sql.Tx) error {
		_, err := tx.Exec("UPDATE slots SET status = 'booked'")
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, "book", observed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_RollsBackBusinessError(t *testing.T) {
	client, mock := newMockClient(t)
	business := errors.New("slot unavailable")

	mock.ExpectBegin()
	mock.ExpectRollback()

	calls := 0
	err := client.RunInTx(context.Background(), "book", func(tx *sql.Tx) error {
		calls++
		return business
	})

	assert.Same(t, business, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_RetriesTransientFailure(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := client.RunInTx(context.Background(), "book", func(tx *sql.Tx) error {
		calls++
		if calls == 1 {
			return driver.ErrBadConn
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
