package services_test

import (
	"context"
	"sync"

	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/stretchr/testify/mock"
)

// Mocks

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateWithProfile(ctx context.Context, user *entities.User, profile entities.ProfileFields) error {
	return m.Called(ctx, user, profile).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockUserRepository) UpdateAvatar(ctx context.Context, id, avatarRef string) error {
	return m.Called(ctx, id, avatarRef).Error(0)
}

func (m *MockUserRepository) UpdateStatus(ctx context.Context, id string, status entities.UserStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockUserRepository) ListIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserRepository) ListIDsByRole(ctx context.Context, role entities.Role) ([]string, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserRepository) CountByRole(ctx context.Context, role entities.Role) (int, error) {
	args := m.Called(ctx, role)
	return args.Int(0), args.Error(1)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetAdmin(ctx context.Context, userID string) (*entities.AdminProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AdminProfile), args.Error(1)
}

func (m *MockProfileRepository) GetDoctorByUserID(ctx context.Context, userID string) (*entities.DoctorProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DoctorProfile), args.Error(1)
}

func (m *MockProfileRepository) GetDoctorByID(ctx context.Context, doctorID string) (*entities.DoctorProfile, error) {
	args := m.Called(ctx, doctorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DoctorProfile), args.Error(1)
}

func (m *MockProfileRepository) GetClient(ctx context.Context, userID string) (*entities.ClientProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ClientProfile), args.Error(1)
}

func (m *MockProfileRepository) Update(ctx context.Context, userID string, role entities.Role, email *string, fields entities.ProfileFields) error {
	return m.Called(ctx, userID, role, email, fields).Error(0)
}

func (m *MockProfileRepository) ListDoctors(ctx context.Context) ([]*entities.DoctorSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*entities.DoctorSummary), args.Error(1)
}

func (m *MockProfileRepository) ListClients(ctx context.Context) ([]*entities.ClientSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*entities.ClientSummary), args.Error(1)
}

func (m *MockProfileRepository) ListFields(ctx context.Context) ([]*entities.Field, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*entities.Field), args.Error(1)
}

type MockOTPRepository struct {
	mock.Mock
}

func (m *MockOTPRepository) Save(ctx context.Context, userID, code string, ttlSeconds int) error {
	return m.Called(ctx, userID, code, ttlSeconds).Error(0)
}

func (m *MockOTPRepository) Consume(ctx context.Context, userID, code string) (bool, error) {
	args := m.Called(ctx, userID, code)
	return args.Bool(0), args.Error(1)
}

type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) Book(ctx context.Context, appointment *entities.Appointment) error {
	return m.Called(ctx, appointment).Error(0)
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) Transition(ctx context.Context, id string, next entities.AppointmentStatus, authorize func(*entities.Appointment) error) (*entities.Appointment, error) {
	args := m.Called(ctx, id, next, authorize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListForClient(ctx context.Context, clientUserID string) ([]*entities.Appointment, error) {
	args := m.Called(ctx, clientUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListForDoctor(ctx context.Context, doctorID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	args := m.Called(ctx, doctorID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListAll(ctx context.Context) ([]*entities.Appointment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) MonthlyCounts(ctx context.Context, year int) (map[int]int, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]int), args.Error(1)
}

func (m *MockAppointmentRepository) CountByStatus(ctx context.Context, doctorID string) (map[entities.AppointmentStatus]int, error) {
	args := m.Called(ctx, doctorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entities.AppointmentStatus]int), args.Error(1)
}

type MockAvailabilityRepository struct {
	mock.Mock
}

func (m *MockAvailabilityRepository) Create(ctx context.Context, slot *entities.AvailabilitySlot) error {
	return m.Called(ctx, slot).Error(0)
}

func (m *MockAvailabilityRepository) GetByID(ctx context.Context, id string) (*entities.AvailabilitySlot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AvailabilitySlot), args.Error(1)
}

func (m *MockAvailabilityRepository) List(ctx context.Context, doctorID string, date entities.Date, status entities.SlotStatus) ([]*entities.AvailabilitySlot, error) {
	args := m.Called(ctx, doctorID, date, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AvailabilitySlot), args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *entities.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockNotificationRepository) CreateBatch(ctx context.Context, ns []*entities.Notification) error {
	return m.Called(ctx, ns).Error(0)
}

func (m *MockNotificationRepository) List(ctx context.Context, userID string, unreadOnly bool) ([]*entities.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Notification), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, userID, relatedID string, t entities.NotificationType) (int64, error) {
	args := m.Called(ctx, userID, relatedID, t)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkReadByID(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *entities.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockMessageRepository) CreateMany(ctx context.Context, msgs []*entities.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *MockMessageRepository) GetByID(ctx context.Context, id string) (*entities.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Message), args.Error(1)
}

func (m *MockMessageRepository) Conversation(ctx context.Context, a, b string) ([]*entities.Message, error) {
	args := m.Called(ctx, a, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Message), args.Error(1)
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMessageRepository) MarkConversationRead(ctx context.Context, readerID, partnerID string) ([]string, error) {
	args := m.Called(ctx, readerID, partnerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockMessageRepository) Partners(ctx context.Context, userID string) ([]*entities.ConversationPartner, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ConversationPartner), args.Error(1)
}

func (m *MockMessageRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockMessageRepository) LatestReceived(ctx context.Context, userID string) (*entities.Message, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Message), args.Error(1)
}

type MockArticleRepository struct {
	mock.Mock
}

func (m *MockArticleRepository) Create(ctx context.Context, article *entities.Article) error {
	return m.Called(ctx, article).Error(0)
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id string) (*entities.Article, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Article), args.Error(1)
}

func (m *MockArticleRepository) GetDetail(ctx context.Context, id string) (*entities.ArticleDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ArticleDetail), args.Error(1)
}

func (m *MockArticleRepository) List(ctx context.Context, filter repositories.ArticleFilter) ([]*entities.ArticleSummary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ArticleSummary), args.Error(1)
}

func (m *MockArticleRepository) ToggleLike(ctx context.Context, articleID, userID string) (bool, error) {
	args := m.Called(ctx, articleID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockArticleRepository) AddComment(ctx context.Context, comment *entities.Comment) error {
	return m.Called(ctx, comment).Error(0)
}

func (m *MockArticleRepository) GetComment(ctx context.Context, id string) (*entities.Comment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Comment), args.Error(1)
}

func (m *MockArticleRepository) DeleteComment(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, event *entities.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventRepository) GetByID(ctx context.Context, id string) (*entities.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Event), args.Error(1)
}

func (m *MockEventRepository) List(ctx context.Context, filter repositories.EventFilter) ([]*entities.EventSummary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.EventSummary), args.Error(1)
}

func (m *MockEventRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockEventRepository) MonthlyCounts(ctx context.Context, year int) (map[int]int, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]int), args.Error(1)
}

func (m *MockEventRepository) ToggleInterest(ctx context.Context, eventID, userID string) (bool, error) {
	args := m.Called(ctx, eventID, userID)
	return args.Bool(0), args.Error(1)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.RealtimeEvent) error {
	return m.Called(ctx, channel, event).Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.RealtimeEvent, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan *entities.RealtimeEvent), args.Error(1)
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	return m.Called(ctx, channel).Error(0)
}

func (m *MockEventBus) Close() error {
	return m.Called().Error(0)
}

// recordingNotifier captures fan-out calls made by producer services
type recordingNotifier struct {
	mu         sync.Mutex
	notified   []notifyCall
	broadcasts []broadcastCall
	marked     []notifyCall
}

type notifyCall struct {
	UserID string
	Draft  entities.NotificationDraft
}

type broadcastCall struct {
	Draft   entities.NotificationDraft
	Exclude string
}

func (r *recordingNotifier) Notify(ctx context.Context, userID string, draft entities.NotificationDraft) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, notifyCall{UserID: userID, Draft: draft})
}

func (r *recordingNotifier) Broadcast(ctx context.Context, draft entities.NotificationDraft, excludeUserID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, broadcastCall{Draft: draft, Exclude: excludeUserID})
	return true
}

func (r *recordingNotifier) MarkRead(ctx context.Context, userID, relatedID string, t entities.NotificationType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marked = append(r.marked, notifyCall{UserID: userID, Draft: entities.NotificationDraft{Type: t, RelatedID: &relatedID}})
	return nil
}

func strPtr(s string) *string { return &s }
