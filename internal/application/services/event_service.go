package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

// CreateEventInput is a new event posting in wire formats
type CreateEventInput struct {
	Title       string
	Description string
	Location    string
	Date        string
	Time        string
	Status      entities.EventStatus
	ImageRef    string
}

// EventQuery holds the raw board filters
type EventQuery struct {
	Keyword string
	Date    string
	Status  string
}

// EventService handles the event board
type EventService struct {
	events   repositories.EventRepository
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
}

// NewEventService creates a new event service interpreting dates in loc
func NewEventService(events repositories.EventRepository, notifier Notifier, loc *time.Location) *EventService {
	if loc == nil {
		loc = time.UTC
	}
	return &EventService{events: events, notifier: notifier, loc: loc, now: time.Now}
}

// Create posts an event and announces it to every user
func (s *EventService) Create(ctx context.Context, actor Actor, in CreateEventInput) (*entities.Event, error) {
	if err := requireRole(actor, entities.RoleAdmin, entities.RoleDoctor); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" || in.Date == "" || in.Time == "" {
		return nil, apperrors.NewValidationError("title, date and time are required")
	}
	date, err := entities.ParseDate(strings.TrimSpace(in.Date), s.loc)
	if err != nil {
		return nil, apperrors.NewValidationError("date must be formatted YYYY-MM-DD")
	}
	clock, err := time.Parse(entities.ClockLayout, strings.TrimSpace(in.Time))
	if err != nil {
		return nil, apperrors.NewValidationError("time must be formatted HH:MM")
	}
	status := in.Status
	if status == "" {
		status = entities.EventStatusUpcoming
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("status must be one of upcoming, ongoing, completed, cancelled")
	}

	now := s.now()
	event := &entities.Event{
		ID:          uuid.New().String(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		Date:        date,
		Time:        clock.Format(entities.ClockLayout),
		Status:      status,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ref := strings.TrimSpace(in.ImageRef); ref != "" {
		event.ImageRef = &ref
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	s.notifier.Broadcast(ctx, entities.NotificationDraft{
		Type:      entities.NotificationNewEvent,
		Title:     "New Event Posted",
		Message:   fmt.Sprintf("A new event titled %q has been posted!", event.Title),
		RelatedID: &event.ID,
	}, "")
	return event, nil
}

// List returns events matching q, ordered by date and time.
// A status of "all" or empty disables the status filter.
func (s *EventService) List(ctx context.Context, actor Actor, q EventQuery) ([]*entities.EventSummary, error) {
	filter := repositories.EventFilter{
		Query:    strings.TrimSpace(q.Keyword),
		ViewerID: actor.UserID,
	}
	if q.Date != "" {
		d, err := entities.ParseDate(strings.TrimSpace(q.Date), s.loc)
		if err != nil {
			return nil, apperrors.NewValidationError("date must be formatted YYYY-MM-DD")
		}
		filter.Date = &d
	}
	if status := strings.ToLower(strings.TrimSpace(q.Status)); status != "" && status != "all" {
		filter.Status = entities.EventStatus(status)
		if !filter.Status.Valid() {
			return nil, apperrors.NewValidationError("status must be one of upcoming, ongoing, completed, cancelled, all")
		}
	}
	return orEmpty(s.events.List(ctx, filter))
}

// UpcomingThisMonth returns upcoming events dated in the current month
func (s *EventService) UpcomingThisMonth(ctx context.Context, actor Actor) ([]*entities.EventSummary, error) {
	now := s.now().In(s.loc)
	first := entities.DateOf(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc))
	last := entities.DateOf(first.AddDate(0, 1, -1))
	return orEmpty(s.events.List(ctx, repositories.EventFilter{
		From:     &first,
		To:       &last,
		Status:   entities.EventStatusUpcoming,
		ViewerID: actor.UserID,
	}))
}

// MonthlyCounts returns twelve zero-filled rows of events per month of year
func (s *EventService) MonthlyCounts(ctx context.Context, year int) ([]entities.MonthlyCount, error) {
	if year < minReportYear || year > maxReportYear {
		return nil, apperrors.NewValidationError(fmt.Sprintf("year must be between %d and %d", minReportYear, maxReportYear))
	}
	counts, err := s.events.MonthlyCounts(ctx, year)
	if err != nil {
		return nil, err
	}
	return entities.ZeroFillMonths(counts), nil
}

// ToggleInterest flips the caller's interest in an event
func (s *EventService) ToggleInterest(ctx context.Context, actor Actor, eventID string) (bool, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return false, err
	}
	return s.events.ToggleInterest(ctx, eventID, actor.UserID)
}
