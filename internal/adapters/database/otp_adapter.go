package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

// OTPAdapter keeps one-time codes in Postgres when Redis is not configured
type OTPAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewOTPAdapter creates a new OTP adapter
func NewOTPAdapter(client *postgres.Client) repositories.OTPRepository {
	return &OTPAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Save upserts the user's code, replacing any previous one
func (a *OTPAdapter) Save(ctx context.Context, userID, code string, ttlSeconds int) error {
	expiresAt := time.Now().Add(time.Duration(ttlSeconds) * time.Second)

	query, _, err := a.db.Insert("otp_codes").
		Rows(goqu.Record{"user_id": userID, "code": code, "expires_at": expiresAt}).
		OnConflict(goqu.DoUpdate("user_id", goqu.Record{
			"code":       goqu.L("EXCLUDED.code"),
			"expires_at": goqu.L("EXCLUDED.expires_at"),
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query); err != nil {
		return translate(err, "otp", "save")
	}
	return nil
}

// Consume deletes the user's code when it matches and has not expired
func (a *OTPAdapter) Consume(ctx context.Context, userID, code string) (bool, error) {
	query, _, err := a.db.Delete("otp_codes").
		Where(
			goqu.C("user_id").Eq(userID),
			goqu.C("code").Eq(code),
			goqu.C("expires_at").Gt(goqu.L("now()")),
		).
		Returning("user_id").
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build delete query", err)
	}

	var consumed string
	err = a.client.DB().QueryRowContext(ctx, query).Scan(&consumed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, translate(err, "otp", "consume")
	}
	return true, nil
}
