package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medconnect/clinic-backend/internal/application/services"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/providers"
	"github.com/medconnect/clinic-backend/pkg/config"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func draft() entities.NotificationDraft {
	return entities.NotificationDraft{
		Type:      entities.NotificationNewEvent,
		Title:     "New Event Posted",
		Message:   "A new event titled \"Open day\" has been posted!",
		RelatedID: strPtr("event-1"),
	}
}

func TestNotificationService_Notify(t *testing.T) {
	t.Run("stores and publishes on the user channel", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		bus := new(MockEventBus)
		svc := services.NewNotificationService(repo, bus, nil, nil)

		repo.On("Create", mock.Anything, mock.MatchedBy(func(n *entities.Notification) bool {
			return n.UserID == "u1" && n.Type == entities.NotificationNewEvent
		})).Return(nil)
		bus.On("Publish", mock.Anything, providers.GetUserChannel("u1"), mock.MatchedBy(func(e *entities.RealtimeEvent) bool {
			return e.EventType == entities.RealtimeEventNotification && e.UserID == "u1"
		})).Return(nil)

		svc.Notify(context.Background(), "u1", draft())

		repo.AssertExpectations(t)
		bus.AssertExpectations(t)
	})

	t.Run("storage failure is swallowed and nothing is published", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		bus := new(MockEventBus)
		svc := services.NewNotificationService(repo, bus, nil, nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

		assert.NotPanics(t, func() { svc.Notify(context.Background(), "u1", draft()) })
		bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("works without an event bus", func(t *testing.T) {
		repo := new(MockNotificationRepository)
		svc := services.NewNotificationService(repo, nil, nil, nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		svc.Notify(context.Background(), "u1", draft())
		repo.AssertExpectations(t)
	})
}

func TestNotificationService_MarkReadIsIdempotent(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := services.NewNotificationService(repo, nil, nil, nil)

	repo.On("MarkRead", mock.Anything, "u1", "msg-1", entities.NotificationMessage).Return(int64(1), nil).Once()
	repo.On("MarkRead", mock.Anything, "u1", "msg-1", entities.NotificationMessage).Return(int64(1), nil).Once()

	require.NoError(t, svc.MarkRead(context.Background(), "u1", "msg-1", entities.NotificationMessage))
	require.NoError(t, svc.MarkRead(context.Background(), "u1", "msg-1", entities.NotificationMessage))
	repo.AssertExpectations(t)

	err := svc.MarkRead(context.Background(), "u1", "", entities.NotificationMessage)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestNotificationService_MarkReadByIDOfAnotherUser(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := services.NewNotificationService(repo, nil, nil, nil)
	repo.On("MarkReadByID", mock.Anything, "u2", "n1").Return(apperrors.NewNotFoundError("notification not found"))

	err := svc.MarkReadByID(context.Background(), "u2", "n1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestNotificationService_ListNeverNil(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := services.NewNotificationService(repo, nil, nil, nil)
	repo.On("List", mock.Anything, "u1", true).Return(nil, nil)

	ns, err := svc.List(context.Background(), "u1", true)
	require.NoError(t, err)
	assert.NotNil(t, ns)
	assert.Empty(t, ns)
}

func newDispatcher(users *MockUserRepository, repo *MockNotificationRepository, bus providers.EventBus, batch, queue int) *services.NotificationDispatcher {
	return services.NewNotificationDispatcher(users, repo, bus, config.NotificationConfig{
		Workers:   1,
		QueueSize: queue,
		BatchSize: batch,
	}, nil)
}

func shutdown(t *testing.T, d *services.NotificationDispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))
}

func TestNotificationDispatcher_BroadcastExcludesOriginator(t *testing.T) {
	users := new(MockUserRepository)
	repo := new(MockNotificationRepository)
	users.On("ListIDs", mock.Anything).Return([]string{"U1", "U2", "U3", "U4", "U5"}, nil)

	var stored []*entities.Notification
	repo.On("CreateBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			stored = append(stored, args.Get(1).([]*entities.Notification)...)
		}).
		Return(nil)

	d := newDispatcher(users, repo, nil, 500, 8)
	d.Start(context.Background())
	svc := services.NewNotificationService(repo, nil, d, nil)

	accepted := svc.Broadcast(context.Background(), draft(), "U3")
	require.True(t, accepted)
	shutdown(t, d)

	require.Len(t, stored, 4)
	recipients := make([]string, 0, len(stored))
	for _, n := range stored {
		recipients = append(recipients, n.UserID)
		assert.Equal(t, entities.NotificationNewEvent, n.Type)
		assert.Equal(t, "event-1", *n.RelatedID)
	}
	assert.ElementsMatch(t, []string{"U1", "U2", "U4", "U5"}, recipients)
	repo.AssertNumberOfCalls(t, "CreateBatch", 1)
}

func TestNotificationDispatcher_ChunksAndSkipsFailedChunk(t *testing.T) {
	users := new(MockUserRepository)
	repo := new(MockNotificationRepository)
	users.On("ListIDs", mock.Anything).Return([]string{"a", "b", "c", "d", "e"}, nil)

	var sizes []int
	repo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(ns []*entities.Notification) bool {
		return ns[0].UserID == "a"
	})).Run(func(args mock.Arguments) {
		sizes = append(sizes, len(args.Get(1).([]*entities.Notification)))
	}).Return(errors.New("deadlock detected")).Once()
	repo.On("CreateBatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sizes = append(sizes, len(args.Get(1).([]*entities.Notification)))
	}).Return(nil)

	bus := new(MockEventBus)
	bus.On("Publish", mock.Anything, providers.EventChannelBroadcast, mock.MatchedBy(func(e *entities.RealtimeEvent) bool {
		return e.EventType == entities.RealtimeEventBroadcast
	})).Return(nil).Once()

	d := newDispatcher(users, repo, bus, 2, 8)
	d.Start(context.Background())
	require.True(t, d.Enqueue(context.Background(), services.BroadcastJob{Draft: draft()}))
	shutdown(t, d)

	assert.Equal(t, []int{2, 2, 1}, sizes)
	bus.AssertExpectations(t)
}

func TestNotificationDispatcher_FullQueueDrops(t *testing.T) {
	users := new(MockUserRepository)
	repo := new(MockNotificationRepository)
	d := newDispatcher(users, repo, nil, 500, 1)

	// Workers are not started, so the single queue slot stays occupied.
	assert.True(t, d.Enqueue(context.Background(), services.BroadcastJob{Draft: draft()}))
	assert.False(t, d.Enqueue(context.Background(), services.BroadcastJob{Draft: draft()}))

	users.On("ListIDs", mock.Anything).Return([]string{"a"}, nil)
	repo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)
	d.Start(context.Background())
	shutdown(t, d)

	repo.AssertNumberOfCalls(t, "CreateBatch", 1)
	assert.False(t, d.Enqueue(context.Background(), services.BroadcastJob{Draft: draft()}), "enqueue after shutdown")
}

func TestNotificationDispatcher_RecipientLookupFailure(t *testing.T) {
	users := new(MockUserRepository)
	repo := new(MockNotificationRepository)
	users.On("ListIDs", mock.Anything).Return(nil, errors.New("connection reset"))

	d := newDispatcher(users, repo, nil, 500, 4)
	d.Start(context.Background())
	require.True(t, d.Enqueue(context.Background(), services.BroadcastJob{Draft: draft()}))
	shutdown(t, d)

	repo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}
