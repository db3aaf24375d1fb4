package services

import (
	"context"
	"time"

	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	dashboardAppointments = 5
	dashboardArticles     = 3
	dashboardEvents       = 5
)

// Counts is the landing page summary
type Counts struct {
	DoctorCount    int `json:"doctorCount"`
	EventCount     int `json:"eventCount"`
	UnreadMessages int `json:"unreadMessages"`
}

// DoctorDashboard is the calling doctor's home screen
type DoctorDashboard struct {
	Appointments   []*entities.Appointment      `json:"appointments"`
	Announcements  []*entities.ArticleSummary   `json:"announcements"`
	Events         []*entities.EventSummary     `json:"events"`
	RecentMessage  *entities.Message            `json:"recentMessage"`
	Availabilities []*entities.AvailabilitySlot `json:"availabilities"`
}

// DoctorStats counts a doctor's appointments by status
type DoctorStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// DashboardService aggregates read-only summaries across components
type DashboardService struct {
	users        repositories.UserRepository
	profiles     repositories.ProfileRepository
	appointments repositories.AppointmentRepository
	slots        repositories.AvailabilityRepository
	articles     repositories.ArticleRepository
	events       repositories.EventRepository
	messages     repositories.MessageRepository
	loc          *time.Location
	now          func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	users repositories.UserRepository,
	profiles repositories.ProfileRepository,
	appointments repositories.AppointmentRepository,
	slots repositories.AvailabilityRepository,
	articles repositories.ArticleRepository,
	events repositories.EventRepository,
	messages repositories.MessageRepository,
	loc *time.Location,
) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{
		users:        users,
		profiles:     profiles,
		appointments: appointments,
		slots:        slots,
		articles:     articles,
		events:       events,
		messages:     messages,
		loc:          loc,
		now:          time.Now,
	}
}

// Counts returns doctor and event totals plus the caller's unread messages
func (s *DashboardService) Counts(ctx context.Context, actor Actor) (*Counts, error) {
	var c Counts
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		c.DoctorCount, err = s.users.CountByRole(ctx, entities.RoleDoctor)
		return err
	})
	g.Go(func() (err error) {
		c.EventCount, err = s.events.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		c.UnreadMessages, err = s.messages.CountUnread(ctx, actor.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &c, nil
}

// DoctorDashboard gathers the calling doctor's approved appointments, recent
// announcements, upcoming events, latest message and today's slots
func (s *DashboardService) DoctorDashboard(ctx context.Context, actor Actor) (*DoctorDashboard, error) {
	if err := requireRole(actor, entities.RoleDoctor); err != nil {
		return nil, err
	}
	doctor, err := s.profiles.GetDoctorByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	today := entities.DateOf(s.now().In(s.loc))

	var d DoctorDashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Appointments, err = s.appointments.ListForDoctor(gctx, doctor.ID, repositories.AppointmentFilter{
			Status: entities.AppointmentStatusApproved,
			Limit:  dashboardAppointments,
		})
		return err
	})
	g.Go(func() (err error) {
		d.Announcements, err = s.articles.List(gctx, repositories.ArticleFilter{
			Status:   entities.ArticleStatusPublished,
			ViewerID: actor.UserID,
			Limit:    dashboardArticles,
		})
		return err
	})
	g.Go(func() error {
		events, err := s.events.List(gctx, repositories.EventFilter{
			Status:   entities.EventStatusUpcoming,
			ViewerID: actor.UserID,
		})
		if err != nil {
			return err
		}
		if len(events) > dashboardEvents {
			events = events[:dashboardEvents]
		}
		d.Events = events
		return nil
	})
	g.Go(func() error {
		msg, err := s.messages.LatestReceived(gctx, actor.UserID)
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		d.RecentMessage = msg
		return nil
	})
	g.Go(func() (err error) {
		d.Availabilities, err = s.slots.List(gctx, doctor.ID, today, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if d.Appointments == nil {
		d.Appointments = []*entities.Appointment{}
	}
	if d.Announcements == nil {
		d.Announcements = []*entities.ArticleSummary{}
	}
	if d.Events == nil {
		d.Events = []*entities.EventSummary{}
	}
	if d.Availabilities == nil {
		d.Availabilities = []*entities.AvailabilitySlot{}
	}
	return &d, nil
}

// DoctorStats counts the calling doctor's appointments by status
func (s *DashboardService) DoctorStats(ctx context.Context, actor Actor) (*DoctorStats, error) {
	if err := requireRole(actor, entities.RoleDoctor); err != nil {
		return nil, err
	}
	doctor, err := s.profiles.GetDoctorByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	counts, err := s.appointments.CountByStatus(ctx, doctor.ID)
	if err != nil {
		return nil, err
	}

	stats := &DoctorStats{
		Pending:   counts[entities.AppointmentStatusPending],
		Approved:  counts[entities.AppointmentStatusApproved],
		Rejected:  counts[entities.AppointmentStatusRejected],
		Completed: counts[entities.AppointmentStatusCompleted],
		Cancelled: counts[entities.AppointmentStatusCancelled],
	}
	stats.Total = stats.Pending + stats.Approved + stats.Rejected + stats.Completed + stats.Cancelled
	return stats, nil
}
