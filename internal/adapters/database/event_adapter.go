package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

var eventColumns = []interface{}{
	goqu.I("e.id"), goqu.I("e.title"), goqu.I("e.description"), goqu.I("e.location"), goqu.I("e.date"),
	goqu.I("e.time"), goqu.I("e.status"), goqu.I("e.image_ref"), goqu.I("e.created_by"),
	goqu.I("e.created_at"), goqu.I("e.updated_at"),
}

// EventAdapter implements the EventRepository interface
type EventAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewEventAdapter creates a new event adapter
func NewEventAdapter(client *postgres.Client) repositories.EventRepository {
	return &EventAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func scanEvent(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*entities.Event, error) {
	e := &entities.Event{}
	var image sql.NullString
	dest := []interface{}{
		&e.ID, &e.Title, &e.Description, &e.Location, &e.Date,
		&e.Time, &e.Status, &image, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	e.ImageRef = nullString(image)
	return e, nil
}

// Create inserts an event
func (a *EventAdapter) Create(ctx context.Context, e *entities.Event) error {
	now := time.Now()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = now
	e.UpdatedAt = now

	query, _, err := a.db.Insert("events").Rows(goqu.Record{
		"id":          e.ID,
		"title":       e.Title,
		"description": e.Description,
		"location":    e.Location,
		"date":        e.Date,
		"time":        e.Time,
		"status":      e.Status,
		"image_ref":   e.ImageRef,
		"created_by":  e.CreatedBy,
		"created_at":  now,
		"updated_at":  now,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query); err != nil {
		return translate(err, "event", "create")
	}
	return nil
}

// GetByID retrieves an event by ID
func (a *EventAdapter) GetByID(ctx context.Context, id string) (*entities.Event, error) {
	query, _, err := a.db.Select(eventColumns...).From(goqu.T("events").As("e")).
		Where(goqu.Ex{"e.id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	e, err := scanEvent(a.client.DB().QueryRowContext(ctx, query))
	if err != nil {
		return nil, translate(err, "event", "get")
	}
	return e, nil
}

// List returns events matching filter with interest counts, soonest first
func (a *EventAdapter) List(ctx context.Context, filter repositories.EventFilter) ([]*entities.EventSummary, error) {
	interests := a.db.From(goqu.T("event_interests").As("i")).
		Select(goqu.COUNT("*")).
		Where(goqu.I("i.event_id").Eq(goqu.I("e.id")))

	interested := goqu.L("false")
	if filter.ViewerID != "" {
		interested = goqu.L("EXISTS ?", a.db.From(goqu.T("event_interests").As("v")).
			Select(goqu.L("1")).
			Where(goqu.I("v.event_id").Eq(goqu.I("e.id")), goqu.I("v.user_id").Eq(filter.ViewerID)))
	}

	cols := append(append([]interface{}{}, eventColumns...),
		interests.As("interest_count"), interested.As("user_interested"),
	)
	ds := a.db.Select(cols...).
		From(goqu.T("events").As("e")).
		Order(goqu.I("e.date").Asc(), goqu.I("e.time").Asc())

	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("e.title").ILike(pattern),
			goqu.I("e.description").ILike(pattern),
			goqu.I("e.location").ILike(pattern),
		))
	}
	if filter.Date != nil {
		ds = ds.Where(goqu.Ex{"e.date": *filter.Date})
	}
	if filter.From != nil {
		ds = ds.Where(goqu.I("e.date").Gte(*filter.From))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.I("e.date").Lte(*filter.To))
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"e.status": filter.Status})
	}

	query, _, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "event", "list")
	}
	defer rows.Close()

	events := []*entities.EventSummary{}
	for rows.Next() {
		s := &entities.EventSummary{}
		e, err := scanEvent(rows, &s.InterestCount, &s.UserInterested)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan event", err)
		}
		s.Event = *e
		events = append(events, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate events", err)
	}
	return events, nil
}

// Count counts every event
func (a *EventAdapter) Count(ctx context.Context) (int, error) {
	query, _, err := a.db.Select(goqu.COUNT("*")).From("events").ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, translate(err, "event", "count")
	}
	return count, nil
}

// MonthlyCounts returns month -> count for events dated in year
func (a *EventAdapter) MonthlyCounts(ctx context.Context, year int) (map[int]int, error) {
	return monthlyCounts(ctx, a.client, a.db, "events", year)
}

// ToggleInterest removes the user's interest in an event or records it
func (a *EventAdapter) ToggleInterest(ctx context.Context, eventID, userID string) (bool, error) {
	deleteQuery, _, err := a.db.Delete("event_interests").
		Where(goqu.Ex{"event_id": eventID, "user_id": userID}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build delete query", err)
	}
	insertQuery, _, err := a.db.Insert("event_interests").
		Rows(goqu.Record{
			"id":         uuid.New().String(),
			"event_id":   eventID,
			"user_id":    userID,
			"created_at": time.Now(),
		}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build insert query", err)
	}

	var interested bool
	err = a.client.RunInTx(ctx, "toggle_interest", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, deleteQuery)
		if err != nil {
			return err
		}
		removed, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if removed > 0 {
			interested = false
			return nil
		}
		if _, err := tx.ExecContext(ctx, insertQuery); err != nil {
			return err
		}
		interested = true
		return nil
	})
	if err != nil {
		return false, translate(err, "event interest", "toggle")
	}
	return interested, nil
}
