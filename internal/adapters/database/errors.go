package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

const (
	uniqueViolation = "23505"
	// class 22 covers malformed values such as a non-uuid id or an impossible date
	dataException pq.ErrorClass = "22"
)

// isUniqueViolation reports whether err is a unique constraint failure, optionally on a specific constraint
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func isDataException(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Class() == dataException
}

// translate maps driver errors onto the application taxonomy.
// AppErrors pass through untouched so business failures raised inside a transaction keep their type.
func translate(err error, entity, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFoundError(fmt.Sprintf("%s not found", entity))
	}
	if isUniqueViolation(err, "") {
		return &apperrors.AppError{
			Type:    apperrors.ErrorTypeConflict,
			Message: fmt.Sprintf("%s already exists", entity),
			Err:     err,
		}
	}
	if isDataException(err) {
		return &apperrors.AppError{
			Type:    apperrors.ErrorTypeValidation,
			Message: fmt.Sprintf("invalid %s reference or value", entity),
			Err:     err,
		}
	}
	return apperrors.NewInternalError(fmt.Sprintf("failed to %s %s", op, entity), err)
}

// expectAffected turns a zero-row write into NotFound
func expectAffected(result sql.Result, entity string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("%s not found", entity))
	}
	return nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
