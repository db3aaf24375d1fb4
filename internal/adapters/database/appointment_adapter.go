package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

const (
	activeSlotKey = "appointments_active_slot_key"

	// MsgSlotUnavailable is the conflict message for a slot that cannot be booked
	MsgSlotUnavailable = "slot is unavailable"
)

var appointmentColumns = []interface{}{
	goqu.I("a.id"), goqu.I("a.doctor_id"), goqu.I("a.client_user_id"), goqu.I("a.slot_id"),
	goqu.I("a.date"), goqu.I("a.start_time"), goqu.I("a.status"), goqu.I("a.remarks"),
	goqu.I("a.created_at"), goqu.I("a.updated_at"),
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func scanAppointment(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*entities.Appointment, error) {
	appt := &entities.Appointment{}
	var slotID sql.NullString
	dest := []interface{}{
		&appt.ID, &appt.DoctorID, &appt.ClientUserID, &slotID,
		&appt.Date, &appt.StartTime, &appt.Status, &appt.Remarks,
		&appt.CreatedAt, &appt.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	appt.SlotID = nullString(slotID)
	return appt, nil
}

// Book reserves the slot and creates the appointment as Pending in one transaction.
// The slot row is locked for the duration, so concurrent requests for it are serialized
// and all but the first observe it as booked.
func (a *AppointmentAdapter) Book(ctx context.Context, appt *entities.Appointment) error {
	if appt.SlotID == nil {
		return apperrors.NewValidationError("slot_id is required")
	}
	slotID := *appt.SlotID

	slotQuery, _, err := a.db.Select(slotColumns...).From("slots").
		Where(goqu.Ex{"id": slotID}).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}

	bookQuery, _, err := a.db.Update("slots").
		Set(goqu.Record{"status": entities.SlotStatusBooked, "updated_at": time.Now()}).
		Where(goqu.Ex{"id": slotID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	err = a.client.RunInTx(ctx, "book_appointment", func(tx *sql.Tx) error {
		slot, err := scanSlot(tx.QueryRowContext(ctx, slotQuery))
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewConflictError(MsgSlotUnavailable)
		}
		if err != nil {
			return err
		}
		if slot.DoctorID != appt.DoctorID || slot.Status != entities.SlotStatusAvailable {
			return apperrors.NewConflictError(MsgSlotUnavailable)
		}

		now := time.Now()
		appt.ID = uuid.New().String()
		appt.Date = slot.Date
		appt.StartTime = slot.StartTime
		appt.Status = entities.AppointmentStatusPending
		appt.CreatedAt = now
		appt.UpdatedAt = now

		insertQuery, _, err := a.db.Insert("appointments").Rows(goqu.Record{
			"id":             appt.ID,
			"doctor_id":      appt.DoctorID,
			"client_user_id": appt.ClientUserID,
			"slot_id":        slotID,
			"date":           appt.Date,
			"start_time":     appt.StartTime,
			"status":         appt.Status,
			"remarks":        appt.Remarks,
			"created_at":     now,
			"updated_at":     now,
		}).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build insert query", err)
		}

		if _, err := tx.ExecContext(ctx, insertQuery); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, bookQuery)
		return err
	})
	if isUniqueViolation(err, activeSlotKey) {
		return apperrors.NewConflictError(MsgSlotUnavailable)
	}
	return translate(err, "appointment", "create")
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, _, err := a.db.Select(appointmentColumns...).
		From(goqu.T("appointments").As("a")).
		Where(goqu.Ex{"a.id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appt, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query))
	if err != nil {
		return nil, translate(err, "appointment", "get")
	}
	return appt, nil
}

// Transition moves the locked appointment to next and releases its slot when next requires it
func (a *AppointmentAdapter) Transition(ctx context.Context, id string, next entities.AppointmentStatus, authorize func(*entities.Appointment) error) (*entities.Appointment, error) {
	lockQuery, _, err := a.db.Select(appointmentColumns...).
		From(goqu.T("appointments").As("a")).
		Where(goqu.Ex{"a.id": id}).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var updated *entities.Appointment
	err = a.client.RunInTx(ctx, "transition_appointment", func(tx *sql.Tx) error {
		appt, err := scanAppointment(tx.QueryRowContext(ctx, lockQuery))
		if err != nil {
			return err
		}
		if authorize != nil {
			if err := authorize(appt); err != nil {
				return err
			}
		}
		if !appt.Status.CanTransitionTo(next) {
			return apperrors.NewConflictError(fmt.Sprintf("cannot move appointment from %s to %s", appt.Status, next))
		}

		now := time.Now()
		updateQuery, _, err := a.db.Update("appointments").
			Set(goqu.Record{"status": next, "updated_at": now}).
			Where(goqu.Ex{"id": id}).
			ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build update query", err)
		}
		if _, err := tx.ExecContext(ctx, updateQuery); err != nil {
			return err
		}

		if next.ReleasesSlot() && appt.SlotID != nil {
			releaseQuery, _, err := a.db.Update("slots").
				Set(goqu.Record{"status": entities.SlotStatusAvailable, "updated_at": now}).
				Where(goqu.Ex{"id": *appt.SlotID, "status": entities.SlotStatusBooked}).
				ToSQL()
			if err != nil {
				return apperrors.NewInternalError("failed to build update query", err)
			}
			if _, err := tx.ExecContext(ctx, releaseQuery); err != nil {
				return err
			}
		}

		appt.Status = next
		appt.UpdatedAt = now
		updated = appt
		return nil
	})
	if err != nil {
		return nil, translate(err, "appointment", "update")
	}
	return updated, nil
}

func (a *AppointmentAdapter) list(ctx context.Context, where exp.Expression, limit int) ([]*entities.Appointment, error) {
	cols := append(append([]interface{}{}, appointmentColumns...),
		goqu.I("d.first_name"), goqu.I("d.middle_name"), goqu.I("d.last_name"), goqu.I("u.email"),
	)
	ds := a.db.Select(cols...).
		From(goqu.T("appointments").As("a")).
		Join(goqu.T("doctors").As("d"), goqu.On(goqu.I("d.id").Eq(goqu.I("a.doctor_id")))).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("a.client_user_id")))).
		Order(goqu.I("a.date").Asc(), goqu.I("a.start_time").Asc())
	if where != nil {
		ds = ds.Where(where)
	}
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, _, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "appointment", "list")
	}
	defer rows.Close()

	var appointments []*entities.Appointment
	for rows.Next() {
		var name entities.PersonName
		var middle sql.NullString
		var email string
		appt, err := scanAppointment(rows, &name.FirstName, &middle, &name.LastName, &email)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		name.MiddleName = nullString(middle)
		appt.DoctorName = name.FullName()
		appt.ClientEmail = email
		appointments = append(appointments, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate appointments", err)
	}
	return appointments, nil
}

// ListForClient retrieves appointments booked by a client user
func (a *AppointmentAdapter) ListForClient(ctx context.Context, clientUserID string) ([]*entities.Appointment, error) {
	return a.list(ctx, goqu.Ex{"a.client_user_id": clientUserID}, 0)
}

// ListForDoctor retrieves appointments of a doctor
func (a *AppointmentAdapter) ListForDoctor(ctx context.Context, doctorID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	where := goqu.Ex{"a.doctor_id": doctorID}
	if filter.Status != "" {
		where["a.status"] = filter.Status
	}
	return a.list(ctx, where, filter.Limit)
}

// ListAll retrieves every appointment
func (a *AppointmentAdapter) ListAll(ctx context.Context) ([]*entities.Appointment, error) {
	return a.list(ctx, nil, 0)
}

// MonthlyCounts returns month -> count for appointments dated in year
func (a *AppointmentAdapter) MonthlyCounts(ctx context.Context, year int) (map[int]int, error) {
	return monthlyCounts(ctx, a.client, a.db, "appointments", year)
}

// CountByStatus returns per-status appointment counts for a doctor
func (a *AppointmentAdapter) CountByStatus(ctx context.Context, doctorID string) (map[entities.AppointmentStatus]int, error) {
	query, _, err := a.db.Select("status", goqu.COUNT("*")).
		From("appointments").
		Where(goqu.Ex{"doctor_id": doctorID}).
		GroupBy("status").
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "appointment", "count")
	}
	defer rows.Close()

	counts := make(map[entities.AppointmentStatus]int)
	for rows.Next() {
		var status entities.AppointmentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperrors.NewInternalError("failed to scan count", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate counts", err)
	}
	return counts, nil
}

// monthlyCounts groups rows of table by the month of its date column within year
func monthlyCounts(ctx context.Context, client *postgres.Client, db *goqu.Database, table string, year int) (map[int]int, error) {
	from := fmt.Sprintf("%04d-01-01", year)
	to := fmt.Sprintf("%04d-01-01", year+1)

	query, _, err := db.Select(
		goqu.L("EXTRACT(MONTH FROM date)::int").As("month"),
		goqu.COUNT("*"),
	).From(table).
		Where(goqu.C("date").Gte(from), goqu.C("date").Lt(to)).
		GroupBy(goqu.I("month")).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, table, "count")
	}
	defer rows.Close()

	counts := make(map[int]int, 12)
	for rows.Next() {
		var month, count int
		if err := rows.Scan(&month, &count); err != nil {
			return nil, apperrors.NewInternalError("failed to scan monthly count", err)
		}
		counts[month] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate monthly counts", err)
	}
	return counts, nil
}
