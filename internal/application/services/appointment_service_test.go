package services_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medconnect/clinic-backend/internal/application/services"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memoryScheduler is an in-memory AppointmentRepository with the same
// all-or-nothing booking semantics as the SQL adapter
type memoryScheduler struct {
	mu           sync.Mutex
	slots        map[string]*entities.AvailabilitySlot
	appointments map[string]*entities.Appointment
}

func newMemoryScheduler(slots ...*entities.AvailabilitySlot) *memoryScheduler {
	s := &memoryScheduler{
		slots:        map[string]*entities.AvailabilitySlot{},
		appointments: map[string]*entities.Appointment{},
	}
	for _, slot := range slots {
		s.slots[slot.ID] = slot
	}
	return s
}

func (s *memoryScheduler) Book(ctx context.Context, appt *entities.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[*appt.SlotID]
	if !ok || slot.DoctorID != appt.DoctorID || slot.Status != entities.SlotStatusAvailable {
		return apperrors.NewConflictError("slot is unavailable")
	}
	appt.ID = uuid.New().String()
	appt.Date = slot.Date
	appt.StartTime = slot.StartTime
	appt.Status = entities.AppointmentStatusPending
	slot.Status = entities.SlotStatusBooked
	stored := *appt
	s.appointments[appt.ID] = &stored
	return nil
}

func (s *memoryScheduler) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("appointment not found")
	}
	cp := *a
	return &cp, nil
}

func (s *memoryScheduler) Transition(ctx context.Context, id string, next entities.AppointmentStatus, authorize func(*entities.Appointment) error) (*entities.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("appointment not found")
	}
	if err := authorize(a); err != nil {
		return nil, err
	}
	if !a.Status.CanTransitionTo(next) {
		return nil, apperrors.NewConflictError("cannot move appointment from " + string(a.Status) + " to " + string(next))
	}
	a.Status = next
	if next.ReleasesSlot() {
		if slot, ok := s.slots[*a.SlotID]; ok && slot.Status == entities.SlotStatusBooked {
			slot.Status = entities.SlotStatusAvailable
		}
	}
	cp := *a
	return &cp, nil
}

func (s *memoryScheduler) slotStatus(id string) entities.SlotStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[id].Status
}

func (s *memoryScheduler) ListForClient(ctx context.Context, clientUserID string) ([]*entities.Appointment, error) {
	return nil, nil
}

func (s *memoryScheduler) ListForDoctor(ctx context.Context, doctorID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	return nil, nil
}

func (s *memoryScheduler) ListAll(ctx context.Context) ([]*entities.Appointment, error) {
	return nil, nil
}

func (s *memoryScheduler) MonthlyCounts(ctx context.Context, year int) (map[int]int, error) {
	return map[int]int{}, nil
}

func (s *memoryScheduler) CountByStatus(ctx context.Context, doctorID string) (map[entities.AppointmentStatus]int, error) {
	return map[entities.AppointmentStatus]int{}, nil
}

var (
	doctorD  = services.Actor{UserID: "user-D", Role: entities.RoleDoctor}
	doctorE  = services.Actor{UserID: "user-E", Role: entities.RoleDoctor}
	clientC  = services.Actor{UserID: "user-C", Role: entities.RoleClient}
	clientC2 = services.Actor{UserID: "user-C2", Role: entities.RoleClient}
	admin    = services.Actor{UserID: "user-A", Role: entities.RoleAdmin}
)

func scenarioSlot() *entities.AvailabilitySlot {
	day := entities.Date{Time: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)}
	return &entities.AvailabilitySlot{
		ID:        "slot-1",
		DoctorID:  "doc-D",
		Date:      day,
		StartTime: day.Add(9 * time.Hour),
		EndTime:   day.Add(10 * time.Hour),
		Status:    entities.SlotStatusAvailable,
	}
}

func schedulerProfiles() *MockProfileRepository {
	profiles := new(MockProfileRepository)
	profiles.On("GetDoctorByID", mock.Anything, "doc-D").Return(&entities.DoctorProfile{ID: "doc-D", UserID: "user-D"}, nil)
	profiles.On("GetDoctorByUserID", mock.Anything, "user-D").Return(&entities.DoctorProfile{ID: "doc-D", UserID: "user-D"}, nil)
	profiles.On("GetDoctorByUserID", mock.Anything, "user-E").Return(&entities.DoctorProfile{ID: "doc-E", UserID: "user-E"}, nil)
	return profiles
}

func TestAppointmentService_DoctorApprovesThenSecondClientIsRejected(t *testing.T) {
	store := newMemoryScheduler(scenarioSlot())
	notifier := &recordingNotifier{}
	svc := services.NewAppointmentService(store, schedulerProfiles(), notifier, nil)
	ctx := context.Background()

	appt, err := svc.RequestAppointment(ctx, clientC, services.RequestAppointmentInput{DoctorID: "doc-D", SlotID: "slot-1"})
	require.NoError(t, err)
	assert.Equal(t, entities.AppointmentStatusPending, appt.Status)
	assert.Equal(t, "2025-01-10", appt.Date.String())
	assert.Equal(t, entities.SlotStatusBooked, store.slotStatus("slot-1"))

	approved, err := svc.Decide(ctx, doctorD, appt.ID, entities.AppointmentStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, entities.AppointmentStatusApproved, approved.Status)
	assert.Equal(t, entities.SlotStatusBooked, store.slotStatus("slot-1"))

	_, err = svc.RequestAppointment(ctx, clientC2, services.RequestAppointmentInput{DoctorID: "doc-D", SlotID: "slot-1"})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrorTypeConflict, appErr.Type)
	assert.Equal(t, "slot is unavailable", appErr.Message)

	require.Len(t, notifier.notified, 2)
	assert.Equal(t, "user-D", notifier.notified[0].UserID)
	assert.Equal(t, entities.NotificationAppointmentRequest, notifier.notified[0].Draft.Type)
	assert.Equal(t, "user-C", notifier.notified[1].UserID)
	assert.Equal(t, entities.NotificationAppointmentStatus, notifier.notified[1].Draft.Type)
}

func TestAppointmentService_SlotReleaseByOutcome(t *testing.T) {
	tests := []struct {
		name        string
		approve     bool
		act         func(svc *services.AppointmentService, id string) (*entities.Appointment, error)
		wantSlot    entities.SlotStatus
		wantAppt    entities.AppointmentStatus
		rebookWorks bool
	}{
		{
			name: "reject releases",
			act: func(svc *services.AppointmentService, id string) (*entities.Appointment, error) {
				return svc.Decide(context.Background(), doctorD, id, entities.AppointmentStatusRejected)
			},
			wantSlot:    entities.SlotStatusAvailable,
			wantAppt:    entities.AppointmentStatusRejected,
			rebookWorks: true,
		},
		{
			name:    "client cancel releases",
			approve: true,
			act: func(svc *services.AppointmentService, id string) (*entities.Appointment, error) {
				return svc.Cancel(context.Background(), clientC, id)
			},
			wantSlot:    entities.SlotStatusAvailable,
			wantAppt:    entities.AppointmentStatusCancelled,
			rebookWorks: true,
		},
		{
			name:    "complete keeps the slot booked",
			approve: true,
			act: func(svc *services.AppointmentService, id string) (*entities.Appointment, error) {
				return svc.Complete(context.Background(), doctorD, id)
			},
			wantSlot: entities.SlotStatusBooked,
			wantAppt: entities.AppointmentStatusCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryScheduler(scenarioSlot())
			svc := services.NewAppointmentService(store, schedulerProfiles(), &recordingNotifier{}, nil)

			appt, err := svc.RequestAppointment(context.Background(), clientC, services.RequestAppointmentInput{DoctorID: "doc-D", SlotID: "slot-1"})
			require.NoError(t, err)
			if tt.approve {
				_, err = svc.Decide(context.Background(), admin, appt.ID, entities.AppointmentStatusApproved)
				require.NoError(t, err)
			}

			got, err := tt.act(svc, appt.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAppt, got.Status)
			assert.Equal(t, tt.wantSlot, store.slotStatus("slot-1"))

			_, err = svc.RequestAppointment(context.Background(), clientC2, services.RequestAppointmentInput{DoctorID: "doc-D", SlotID: "slot-1"})
			assert.Equal(t, tt.rebookWorks, err == nil, "rebook err: %v", err)
		})
	}
}

func TestAppointmentService_InvalidTransitions(t *testing.T) {
	store := newMemoryScheduler(scenarioSlot())
	svc := services.NewAppointmentService(store, schedulerProfiles(), &recordingNotifier{}, nil)
	ctx := context.Background()

	appt, err := svc.RequestAppointment(ctx, clientC, services.RequestAppointmentInput{DoctorID: "doc-D", SlotID: "slot-1"})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, doctorD, appt.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict), "complete from Pending")

	_, err = svc.Cancel(ctx, clientC, appt.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict), "cancel from Pending")

	_, err = svc.Decide(ctx, doctorD, appt.ID, entities.AppointmentStatusRejected)
	require.NoError(t, err)

	_, err = svc.Decide(ctx, doctorD, appt.ID, entities.AppointmentStatusApproved)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict), "decide twice")

	_, err = svc.Decide(ctx, doctorD, appt.ID, entities.AppointmentStatusCompleted)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "decide with a non-decision outcome")
}

func TestAppointmentService_Ownership(t *testing.T) {
	store := newMemoryScheduler(scenarioSlot())
	svc := services.NewAppointmentService(store, schedulerProfiles(), &recordingNotifier{}, nil)
	ctx := context.Background()

	appt, err := svc.RequestAppointment(ctx, clientC, services.RequestAppointmentInput{DoctorID: "doc-D", SlotID: "slot-1"})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, doctorE, appt.ID, entities.AppointmentStatusApproved)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden), "another doctor")

	_, err = svc.Decide(ctx, clientC, appt.ID, entities.AppointmentStatusApproved)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden), "client cannot decide")

	_, err = svc.Decide(ctx, doctorD, appt.ID, entities.AppointmentStatusApproved)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, clientC2, appt.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden), "another client")

	_, err = svc.RequestAppointment(ctx, doctorD, services.RequestAppointmentInput{DoctorID: "doc-D", SlotID: "slot-1"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden), "doctors cannot book")
}

func TestAppointmentService_ConcurrentRequestsBookOnce(t *testing.T) {
	store := newMemoryScheduler(scenarioSlot())
	svc := services.NewAppointmentService(store, schedulerProfiles(), &recordingNotifier{}, nil)

	const clients = 50
	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := services.Actor{UserID: uuid.NewString(), Role: entities.RoleClient}
			_, err := svc.RequestAppointment(context.Background(), actor, services.RequestAppointmentInput{DoctorID: "doc-D", SlotID: "slot-1"})
			switch {
			case err == nil:
				wins.Add(1)
			case apperrors.IsType(err, apperrors.ErrorTypeConflict):
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(clients-1), conflicts.Load())
}

func TestAppointmentService_MonthlyCounts(t *testing.T) {
	repo := new(MockAppointmentRepository)
	svc := services.NewAppointmentService(repo, new(MockProfileRepository), &recordingNotifier{}, nil)
	repo.On("MonthlyCounts", mock.Anything, 2025).Return(map[int]int{1: 3, 12: 1}, nil)

	rows, err := svc.MonthlyCounts(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, rows, 12)
	assert.Equal(t, entities.MonthlyCount{Month: "Jan", Count: 3}, rows[0])
	assert.Equal(t, entities.MonthlyCount{Month: "Jun", Count: 0}, rows[5])
	assert.Equal(t, entities.MonthlyCount{Month: "Dec", Count: 1}, rows[11])

	for _, year := range []int{1969, 10000} {
		_, err := svc.MonthlyCounts(context.Background(), year)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "year %d", year)
	}
}

func TestAppointmentService_ListMineByRole(t *testing.T) {
	repo := new(MockAppointmentRepository)
	svc := services.NewAppointmentService(repo, schedulerProfiles(), &recordingNotifier{}, nil)
	ctx := context.Background()

	repo.On("ListForClient", mock.Anything, "user-C").Return(nil, nil)
	repo.On("ListForDoctor", mock.Anything, "doc-D", repositories.AppointmentFilter{}).Return([]*entities.Appointment{{ID: "a1"}}, nil)
	repo.On("ListAll", mock.Anything).Return([]*entities.Appointment{{ID: "a1"}, {ID: "a2"}}, nil)

	mine, err := svc.ListMine(ctx, clientC)
	require.NoError(t, err)
	assert.NotNil(t, mine)
	assert.Empty(t, mine)

	mine, err = svc.ListMine(ctx, doctorD)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	mine, err = svc.ListMine(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
