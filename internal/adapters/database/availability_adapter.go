package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

var slotColumns = []interface{}{
	"id", "doctor_id", "date", "start_time", "end_time", "status", "created_at", "updated_at",
}

// AvailabilityAdapter implements the AvailabilityRepository interface
type AvailabilityAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAvailabilityAdapter creates a new availability adapter
func NewAvailabilityAdapter(client *postgres.Client) repositories.AvailabilityRepository {
	return &AvailabilityAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func scanSlot(row interface{ Scan(...interface{}) error }) (*entities.AvailabilitySlot, error) {
	s := &entities.AvailabilitySlot{}
	err := row.Scan(&s.ID, &s.DoctorID, &s.Date, &s.StartTime, &s.EndTime, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts slot after checking it against the doctor's other slots on the same date.
// Concurrent declarations for one doctor and date are serialized by a transaction-scoped
// advisory lock, so the check and the insert cannot interleave.
func (a *AvailabilityAdapter) Create(ctx context.Context, slot *entities.AvailabilitySlot) error {
	now := time.Now()
	if slot.ID == "" {
		slot.ID = uuid.New().String()
	}
	slot.Status = entities.SlotStatusAvailable
	slot.CreatedAt = now
	slot.UpdatedAt = now

	lockKey := fmt.Sprintf("slots:%s:%s", slot.DoctorID, slot.Date)

	existingQuery, _, err := a.db.Select(slotColumns...).From("slots").
		Where(goqu.Ex{
			"doctor_id": slot.DoctorID,
			"date":      slot.Date,
			"status":    goqu.Op{"neq": entities.SlotStatusCancelled},
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}

	insertQuery, _, err := a.db.Insert("slots").Rows(goqu.Record{
		"id":         slot.ID,
		"doctor_id":  slot.DoctorID,
		"date":       slot.Date,
		"start_time": slot.StartTime,
		"end_time":   slot.EndTime,
		"status":     slot.Status,
		"created_at": now,
		"updated_at": now,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	err = a.client.RunInTx(ctx, "declare_slot", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", lockKey); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, existingQuery)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			existing, err := scanSlot(rows)
			if err != nil {
				return err
			}
			if slot.Overlaps(existing) {
				return apperrors.NewConflictError(fmt.Sprintf(
					"slot overlaps %s-%s on %s",
					existing.StartTime.Format(entities.ClockLayout),
					existing.EndTime.Format(entities.ClockLayout),
					existing.Date,
				))
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		_, err = tx.ExecContext(ctx, insertQuery)
		return err
	})
	return translate(err, "slot", "create")
}

// GetByID retrieves an availability slot by ID
func (a *AvailabilityAdapter) GetByID(ctx context.Context, id string) (*entities.AvailabilitySlot, error) {
	query, _, err := a.db.Select(slotColumns...).From("slots").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	slot, err := scanSlot(a.client.DB().QueryRowContext(ctx, query))
	if err != nil {
		return nil, translate(err, "slot", "get")
	}
	return slot, nil
}

// List retrieves a doctor's slots on date ordered by start time
func (a *AvailabilityAdapter) List(ctx context.Context, doctorID string, date entities.Date, status entities.SlotStatus) ([]*entities.AvailabilitySlot, error) {
	where := goqu.Ex{"doctor_id": doctorID, "date": date}
	if status != "" {
		where["status"] = status
	}

	query, _, err := a.db.Select(slotColumns...).From("slots").
		Where(where).
		Order(goqu.I("start_time").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "slot", "list")
	}
	defer rows.Close()

	var slots []*entities.AvailabilitySlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan slot", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate slots", err)
	}
	return slots, nil
}
