package services

import (
	"context"
	"strings"
	"time"

	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

// DeclareSlotInput is a slot declaration in wire formats.
// DoctorID is only honoured for admins; doctors always declare for themselves.
type DeclareSlotInput struct {
	DoctorID  string
	Date      string
	StartTime string
	EndTime   string
}

// AvailabilityService manages doctor-declared slots
type AvailabilityService struct {
	slots    repositories.AvailabilityRepository
	profiles repositories.ProfileRepository
	loc      *time.Location
}

// NewAvailabilityService creates a new availability service interpreting dates in loc
func NewAvailabilityService(slots repositories.AvailabilityRepository, profiles repositories.ProfileRepository, loc *time.Location) *AvailabilityService {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityService{slots: slots, profiles: profiles, loc: loc}
}

// DeclareSlot records a new available slot, rejecting overlaps with the doctor's other slots
func (s *AvailabilityService) DeclareSlot(ctx context.Context, actor Actor, in DeclareSlotInput) (*entities.AvailabilitySlot, error) {
	if err := requireRole(actor, entities.RoleDoctor, entities.RoleAdmin); err != nil {
		return nil, err
	}

	doctorID, err := s.resolveDoctor(ctx, actor, in.DoctorID)
	if err != nil {
		return nil, err
	}

	date, err := s.ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	start, err := s.parseClock(date, in.StartTime, "start_time")
	if err != nil {
		return nil, err
	}
	end, err := s.parseClock(date, in.EndTime, "end_time")
	if err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, apperrors.NewValidationError("start_time must be before end_time")
	}

	slot := &entities.AvailabilitySlot{
		DoctorID:  doctorID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("slot_id", slot.ID).
		Str("doctor_id", doctorID).
		Str("date", date.String()).
		Msg("Availability declared")
	return slot, nil
}

// ListSlots returns a doctor's slots on date ordered by start time.
// An empty status returns every slot.
func (s *AvailabilityService) ListSlots(ctx context.Context, doctorID, date string, status entities.SlotStatus) ([]*entities.AvailabilitySlot, error) {
	if strings.TrimSpace(doctorID) == "" {
		return nil, apperrors.NewValidationError("doctorId is required")
	}
	if status != "" && !status.Valid() {
		return nil, apperrors.NewValidationError("status must be one of available, booked, cancelled")
	}
	d, err := s.ParseDate(date)
	if err != nil {
		return nil, err
	}
	slots, err := s.slots.List(ctx, doctorID, d, status)
	if err != nil {
		return nil, err
	}
	if slots == nil {
		slots = []*entities.AvailabilitySlot{}
	}
	return slots, nil
}

// AvailableTimes returns the doctor's bookable slots on date
func (s *AvailabilityService) AvailableTimes(ctx context.Context, doctorID, date string) ([]*entities.AvailabilitySlot, error) {
	return s.ListSlots(ctx, doctorID, date, entities.SlotStatusAvailable)
}

// ParseDate parses a YYYY-MM-DD date in the clinic timezone
func (s *AvailabilityService) ParseDate(value string) (entities.Date, error) {
	if strings.TrimSpace(value) == "" {
		return entities.Date{}, apperrors.NewValidationError("date is required")
	}
	d, err := entities.ParseDate(strings.TrimSpace(value), s.loc)
	if err != nil {
		return entities.Date{}, apperrors.NewValidationError("date must be formatted YYYY-MM-DD")
	}
	return d, nil
}

func (s *AvailabilityService) parseClock(date entities.Date, value, field string) (time.Time, error) {
	clock, err := time.Parse(entities.ClockLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(field + " must be formatted HH:MM")
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, s.loc), nil
}

func (s *AvailabilityService) resolveDoctor(ctx context.Context, actor Actor, requested string) (string, error) {
	if actor.IsAdmin() {
		if requested == "" {
			return "", apperrors.NewValidationError("doctor_id is required")
		}
		doctor, err := s.profiles.GetDoctorByID(ctx, requested)
		if err != nil {
			return "", err
		}
		return doctor.ID, nil
	}

	doctor, err := s.profiles.GetDoctorByUserID(ctx, actor.UserID)
	if err != nil {
		return "", err
	}
	return doctor.ID, nil
}
