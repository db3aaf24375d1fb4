package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	minReportYear = 1970
	maxReportYear = 9999
)

// RequestAppointmentInput is a client's booking request
type RequestAppointmentInput struct {
	DoctorID string
	SlotID   string
	Remarks  string
}

// AppointmentService handles appointment booking logic
type AppointmentService struct {
	repo     repositories.AppointmentRepository
	profiles repositories.ProfileRepository
	notifier Notifier
	metrics  *observability.Metrics
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	repo repositories.AppointmentRepository,
	profiles repositories.ProfileRepository,
	notifier Notifier,
	metrics *observability.Metrics,
) *AppointmentService {
	return &AppointmentService{
		repo:     repo,
		profiles: profiles,
		notifier: notifier,
		metrics:  metrics,
	}
}

// RequestAppointment books slotID with doctorID for the calling client.
// The slot must belong to the doctor and be available; the booking and the slot
// flip happen atomically, so two concurrent requests cannot both hold the slot.
func (s *AppointmentService) RequestAppointment(ctx context.Context, actor Actor, in RequestAppointmentInput) (*entities.Appointment, error) {
	ctx, span := observability.StartSpan(ctx, "appointments.request")
	defer span.End()

	if err := requireRole(actor, entities.RoleClient); err != nil {
		return nil, err
	}
	in.DoctorID = strings.TrimSpace(in.DoctorID)
	in.SlotID = strings.TrimSpace(in.SlotID)
	if in.DoctorID == "" || in.SlotID == "" {
		return nil, apperrors.NewValidationError("doctor_id and slot_id are required")
	}

	doctor, err := s.profiles.GetDoctorByID(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}

	appt := &entities.Appointment{
		DoctorID:     doctor.ID,
		ClientUserID: actor.UserID,
		SlotID:       &in.SlotID,
		Remarks:      strings.TrimSpace(in.Remarks),
	}
	if err := s.repo.Book(ctx, appt); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	observability.SetSpanAttributes(span,
		attribute.String("appointment.id", appt.ID),
		attribute.String("slot.id", in.SlotID),
	)
	observability.RecordAppointmentTransition(ctx, s.metrics, string(appt.Status))

	observability.LoggerFromContext(ctx).Info().
		Str("appointment_id", appt.ID).
		Str("doctor_id", doctor.ID).
		Str("slot_id", in.SlotID).
		Msg("Appointment requested")

	s.notifier.Notify(ctx, doctor.UserID, entities.NotificationDraft{
		Type:      entities.NotificationAppointmentRequest,
		Title:     "New Appointment Request",
		Message:   fmt.Sprintf("You have a new appointment request on %s at %s.", appt.Date, appt.StartTime.Format(entities.ClockLayout)),
		RelatedID: &appt.ID,
	})
	return appt, nil
}

// Decide approves or rejects a pending appointment. Rejection frees the slot.
func (s *AppointmentService) Decide(ctx context.Context, actor Actor, id string, outcome entities.AppointmentStatus) (*entities.Appointment, error) {
	if outcome != entities.AppointmentStatusApproved && outcome != entities.AppointmentStatusRejected {
		return nil, apperrors.NewValidationError("status must be Approved or Rejected")
	}
	if err := requireRole(actor, entities.RoleDoctor, entities.RoleAdmin); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, outcome)
}

// Complete marks an approved appointment as done. The slot stays booked.
func (s *AppointmentService) Complete(ctx context.Context, actor Actor, id string) (*entities.Appointment, error) {
	if err := requireRole(actor, entities.RoleDoctor, entities.RoleAdmin); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, entities.AppointmentStatusCompleted)
}

// Cancel cancels an approved appointment and frees its slot
func (s *AppointmentService) Cancel(ctx context.Context, actor Actor, id string) (*entities.Appointment, error) {
	return s.transition(ctx, actor, id, entities.AppointmentStatusCancelled)
}

func (s *AppointmentService) transition(ctx context.Context, actor Actor, id string, next entities.AppointmentStatus) (*entities.Appointment, error) {
	ctx, span := observability.StartSpan(ctx, "appointments.transition")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("appointment.id", id),
		attribute.String("appointment.next_status", string(next)),
	)

	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("appointment id is required")
	}

	authorize, err := s.ownership(ctx, actor)
	if err != nil {
		return nil, err
	}

	appt, err := s.repo.Transition(ctx, id, next, authorize)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	observability.RecordAppointmentTransition(ctx, s.metrics, string(next))

	observability.LoggerFromContext(ctx).Info().
		Str("appointment_id", appt.ID).
		Str("status", string(next)).
		Str("actor_id", actor.UserID).
		Msg("Appointment status changed")

	s.notifyCounterpart(ctx, actor, appt)
	return appt, nil
}

// ownership returns the check run against the locked appointment row.
// Admins may act on any appointment, doctors on their own, clients on bookings they made.
func (s *AppointmentService) ownership(ctx context.Context, actor Actor) (func(*entities.Appointment) error, error) {
	switch actor.Role {
	case entities.RoleAdmin:
		return func(*entities.Appointment) error { return nil }, nil
	case entities.RoleDoctor:
		doctor, err := s.profiles.GetDoctorByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		return func(a *entities.Appointment) error {
			if a.DoctorID != doctor.ID {
				return apperrors.NewForbiddenError("appointment belongs to another doctor")
			}
			return nil
		}, nil
	case entities.RoleClient:
		return func(a *entities.Appointment) error {
			if a.ClientUserID != actor.UserID {
				return apperrors.NewForbiddenError("appointment belongs to another client")
			}
			return nil
		}, nil
	}
	return nil, apperrors.NewForbiddenError("unknown role")
}

func (s *AppointmentService) notifyCounterpart(ctx context.Context, actor Actor, appt *entities.Appointment) {
	draft := entities.NotificationDraft{
		Type:      entities.NotificationAppointmentStatus,
		Title:     "Appointment " + string(appt.Status),
		Message:   fmt.Sprintf("Your appointment on %s at %s is now %s.", appt.Date, appt.StartTime.Format(entities.ClockLayout), appt.Status),
		RelatedID: &appt.ID,
	}

	if actor.Role != entities.RoleClient {
		s.notifier.Notify(ctx, appt.ClientUserID, draft)
		return
	}

	doctor, err := s.profiles.GetDoctorByID(ctx, appt.DoctorID)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("appointment_id", appt.ID).
			Msg("Cannot resolve doctor to notify")
		return
	}
	draft.Message = fmt.Sprintf("An appointment on %s at %s was %s by the client.", appt.Date, appt.StartTime.Format(entities.ClockLayout), strings.ToLower(string(appt.Status)))
	s.notifier.Notify(ctx, doctor.UserID, draft)
}

// ListMine lists the caller's own appointments: bookings for clients,
// the doctor's schedule for doctors and everything for admins
func (s *AppointmentService) ListMine(ctx context.Context, actor Actor) ([]*entities.Appointment, error) {
	switch actor.Role {
	case entities.RoleClient:
		return s.ListForClient(ctx, actor)
	case entities.RoleDoctor:
		return s.ListForDoctor(ctx, actor, "")
	case entities.RoleAdmin:
		return orEmpty(s.repo.ListAll(ctx))
	}
	return nil, apperrors.NewForbiddenError("unknown role")
}

// ListForClient lists the calling client's bookings
func (s *AppointmentService) ListForClient(ctx context.Context, actor Actor) ([]*entities.Appointment, error) {
	if err := requireRole(actor, entities.RoleClient); err != nil {
		return nil, err
	}
	return orEmpty(s.repo.ListForClient(ctx, actor.UserID))
}

// ListForDoctor lists a doctor's appointments. Doctors always see their own;
// admins pass the doctor id.
func (s *AppointmentService) ListForDoctor(ctx context.Context, actor Actor, doctorID string) ([]*entities.Appointment, error) {
	switch actor.Role {
	case entities.RoleDoctor:
		doctor, err := s.profiles.GetDoctorByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		doctorID = doctor.ID
	case entities.RoleAdmin:
		if doctorID == "" {
			return nil, apperrors.NewValidationError("doctor_id is required")
		}
	default:
		return nil, apperrors.NewForbiddenError("this action is not allowed for role " + string(actor.Role))
	}
	return orEmpty(s.repo.ListForDoctor(ctx, doctorID, repositories.AppointmentFilter{}))
}

// MonthlyCounts returns twelve zero-filled rows of appointments per month of year
func (s *AppointmentService) MonthlyCounts(ctx context.Context, year int) ([]entities.MonthlyCount, error) {
	if year < minReportYear || year > maxReportYear {
		return nil, apperrors.NewValidationError(fmt.Sprintf("year must be between %d and %d", minReportYear, maxReportYear))
	}
	counts, err := s.repo.MonthlyCounts(ctx, year)
	if err != nil {
		return nil, err
	}
	return entities.ZeroFillMonths(counts), nil
}

func orEmpty[T any](items []*T, err error) ([]*T, error) {
	if err != nil {
		return nil, err
	}
	if items == nil {
		return []*T{}, nil
	}
	return items, nil
}
