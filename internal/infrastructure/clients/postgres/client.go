package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	"github.com/medconnect/clinic-backend/pkg/config"
	"github.com/medconnect/clinic-backend/pkg/retry"
)

// Client represents a PostgreSQL database client
type Client struct {
	db       *sql.DB
	txRetry  retry.Config
	observer func(ctx context.Context, operation string, duration time.Duration)
}

// NewClient creates a new PostgreSQL client with exponential backoff retry
func NewClient(cfg *config.DatabaseConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger := observability.GetLogger()
	err = retry.DoWithLog(
		context.Background(),
		retry.DefaultConfig(),
		"PostgreSQL",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return db.PingContext(ctx)
		},
		func(attempt int, err error, nextDelay time.Duration) {
			logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("PostgreSQL connection attempt failed")
		},
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	logger.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Successfully connected to PostgreSQL")
	return NewClientFromDB(db), nil
}

// NewClientFromDB wraps an already opened pool
func NewClientFromDB(db *sql.DB) *Client {
	return &Client{
		db:      db,
		txRetry: retry.Transient(IsTransient),
	}
}

// WithTxRetry overrides the transaction retry policy
func (c *Client) WithTxRetry(cfg retry.Config) *Client {
	c.txRetry = cfg
	return c
}

// OnTx registers a callback invoked with the duration of every finished transaction
func (c *Client) OnTx(fn func(ctx context.Context, operation string, duration time.Duration)) {
	c.observer = fn
}

// DB returns the underlying database connection
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// BeginTx starts a new transaction
func (c *Client) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return c.db.BeginTx(ctx, nil)
}

// Ping verifies the connection to the database
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// RunInTx runs fn inside a transaction, committing on nil and rolling back otherwise.
// The whole transaction is retried when it fails with a transient error; errors returned
// by fn that are not transient surface immediately.
func (c *Client) RunInTx(ctx context.Context, operation string, fn func(tx *sql.Tx) error) error {
	start := time.Now()
	err := retry.Do(ctx, c.txRetry, func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
	if c.observer != nil {
		c.observer(ctx, operation, time.Since(start))
	}
	return err
}

// IsTransient reports whether err is a connection-level or serialization failure
// that is safe to retry as a whole transaction.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "08":
			return true
		case pqErr.Code == "40001", pqErr.Code == "40P01":
			return true
		}
		return false
	}
	return strings.Contains(err.Error(), "connection reset")
}
