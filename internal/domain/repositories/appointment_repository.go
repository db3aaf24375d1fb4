package repositories

import (
	"context"

	"github.com/medconnect/clinic-backend/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment data operations
type AppointmentRepository interface {
	// Book locks the appointment's slot, verifies it is available and owned by the
	// appointment's doctor, inserts the appointment as Pending and marks the slot booked,
	// all in one transaction. Date and StartTime are copied from the slot.
	Book(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// Transition locks the appointment, runs authorize against the locked row, moves it
	// to next and releases its slot when next does so. Returns the updated appointment.
	Transition(ctx context.Context, id string, next entities.AppointmentStatus, authorize func(*entities.Appointment) error) (*entities.Appointment, error)

	// ListForClient retrieves appointments booked by a client user
	ListForClient(ctx context.Context, clientUserID string) ([]*entities.Appointment, error)

	// ListForDoctor retrieves appointments of a doctor
	ListForDoctor(ctx context.Context, doctorID string, filter AppointmentFilter) ([]*entities.Appointment, error)

	// ListAll retrieves every appointment
	ListAll(ctx context.Context) ([]*entities.Appointment, error)

	// MonthlyCounts returns month (1-12) -> count for year
	MonthlyCounts(ctx context.Context, year int) (map[int]int, error)

	// CountByStatus returns per-status counts for a doctor
	CountByStatus(ctx context.Context, doctorID string) (map[entities.AppointmentStatus]int, error)
}

// AppointmentFilter defines filters for listing appointments
type AppointmentFilter struct {
	Status entities.AppointmentStatus
	Limit  int
}

// AvailabilityRepository defines the interface for availability slot operations
type AvailabilityRepository interface {
	// Create inserts slot unless it overlaps a non-cancelled slot of the same doctor and date
	Create(ctx context.Context, slot *entities.AvailabilitySlot) error

	// GetByID retrieves an availability slot by ID
	GetByID(ctx context.Context, id string) (*entities.AvailabilitySlot, error)

	// List retrieves a doctor's slots on date ordered by start time.
	// A non-empty status restricts the result to that status.
	List(ctx context.Context, doctorID string, date entities.Date, status entities.SlotStatus) ([]*entities.AvailabilitySlot, error)
}
