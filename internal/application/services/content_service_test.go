package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/medconnect/clinic-backend/internal/application/services"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestArticleService_CreateBroadcastsExceptAuthor(t *testing.T) {
	articles := new(MockArticleRepository)
	notifier := &recordingNotifier{}
	svc := services.NewArticleService(articles, notifier)
	articles.On("Create", mock.Anything, mock.Anything).Return(nil)

	article, err := svc.Create(context.Background(), doctorD, services.CreateArticleInput{
		Title:   "Flu Season: What To Know",
		Content: strings.Repeat("word ", 60),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(article.Slug, "flu-season-what-to-know-"))
	assert.True(t, strings.HasSuffix(article.Excerpt, "..."))
	assert.Equal(t, entities.ArticleStatusPublished, article.Status)

	require.Len(t, notifier.broadcasts, 1)
	b := notifier.broadcasts[0]
	assert.Equal(t, "user-D", b.Exclude)
	assert.Equal(t, entities.NotificationNewArticle, b.Draft.Type)
	assert.Equal(t, article.ID, *b.Draft.RelatedID)
}

func TestArticleService_DraftIsNotAnnounced(t *testing.T) {
	articles := new(MockArticleRepository)
	notifier := &recordingNotifier{}
	svc := services.NewArticleService(articles, notifier)
	articles.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Create(context.Background(), admin, services.CreateArticleInput{
		Title: "Draft", Content: "body", Status: entities.ArticleStatusDraft,
	})
	require.NoError(t, err)
	assert.Empty(t, notifier.broadcasts)

	_, err = svc.Create(context.Background(), clientC, services.CreateArticleInput{Title: "x", Content: "y"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
}

func TestArticleService_ToggleLikeTwice(t *testing.T) {
	articles := new(MockArticleRepository)
	notifier := &recordingNotifier{}
	svc := services.NewArticleService(articles, notifier)

	articles.On("GetByID", mock.Anything, "art-1").Return(&entities.Article{ID: "art-1", UserID: "user-D", Title: "Sleep"}, nil)
	articles.On("ToggleLike", mock.Anything, "art-1", "user-C").Return(true, nil).Once()
	articles.On("ToggleLike", mock.Anything, "art-1", "user-C").Return(false, nil).Once()

	liked, err := svc.ToggleLike(context.Background(), clientC, "art-1")
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = svc.ToggleLike(context.Background(), clientC, "art-1")
	require.NoError(t, err)
	assert.False(t, liked)

	require.Len(t, notifier.notified, 1, "only the like notifies")
	assert.Equal(t, "user-D", notifier.notified[0].UserID)
	assert.Equal(t, entities.NotificationLike, notifier.notified[0].Draft.Type)
}

func TestArticleService_SelfLikeDoesNotNotify(t *testing.T) {
	articles := new(MockArticleRepository)
	notifier := &recordingNotifier{}
	svc := services.NewArticleService(articles, notifier)
	articles.On("GetByID", mock.Anything, "art-1").Return(&entities.Article{ID: "art-1", UserID: "user-D"}, nil)
	articles.On("ToggleLike", mock.Anything, "art-1", "user-D").Return(true, nil)

	_, err := svc.ToggleLike(context.Background(), doctorD, "art-1")
	require.NoError(t, err)
	assert.Empty(t, notifier.notified)
}

func TestArticleService_Comment(t *testing.T) {
	articles := new(MockArticleRepository)
	notifier := &recordingNotifier{}
	svc := services.NewArticleService(articles, notifier)
	articles.On("GetByID", mock.Anything, "art-1").Return(&entities.Article{ID: "art-1", UserID: "user-D", Title: "Sleep"}, nil)
	articles.On("GetComment", mock.Anything, "c-other").Return(&entities.Comment{ID: "c-other", ArticleID: "art-2"}, nil)
	articles.On("GetComment", mock.Anything, "c-1").Return(&entities.Comment{ID: "c-1", ArticleID: "art-1"}, nil)
	articles.On("AddComment", mock.Anything, mock.Anything).Return(nil)

	reply, err := svc.Comment(context.Background(), clientC, services.CommentInput{ArticleID: "art-1", ParentID: "c-1", Content: "thanks"})
	require.NoError(t, err)
	assert.Equal(t, "c-1", *reply.ParentID)
	require.Len(t, notifier.notified, 1)
	assert.Equal(t, entities.NotificationComment, notifier.notified[0].Draft.Type)

	_, err = svc.Comment(context.Background(), clientC, services.CommentInput{ArticleID: "art-1", ParentID: "c-other", Content: "x"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestArticleService_DeleteComment(t *testing.T) {
	articles := new(MockArticleRepository)
	svc := services.NewArticleService(articles, &recordingNotifier{})
	articles.On("GetComment", mock.Anything, "c-1").Return(&entities.Comment{ID: "c-1", ArticleID: "art-1", UserID: "user-C"}, nil)
	articles.On("GetByID", mock.Anything, "art-1").Return(&entities.Article{ID: "art-1", UserID: "user-D"}, nil)
	articles.On("DeleteComment", mock.Anything, "c-1").Return(nil)

	err := svc.DeleteComment(context.Background(), clientC2, "c-1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))

	require.NoError(t, svc.DeleteComment(context.Background(), doctorD, "c-1"), "article author")
	require.NoError(t, svc.DeleteComment(context.Background(), clientC, "c-1"), "comment author")
}

func TestArticleService_ListDefaultsToPublished(t *testing.T) {
	articles := new(MockArticleRepository)
	svc := services.NewArticleService(articles, &recordingNotifier{})
	articles.On("List", mock.Anything, repositories.ArticleFilter{
		Query: "sleep", Status: entities.ArticleStatusPublished, ViewerID: "user-C",
	}).Return([]*entities.ArticleSummary{{UserLiked: true}}, nil)

	got, err := svc.List(context.Background(), clientC, repositories.ArticleFilter{Query: " sleep "})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].UserLiked)
}

func TestEventService_CreateBroadcastsToEveryone(t *testing.T) {
	events := new(MockEventRepository)
	notifier := &recordingNotifier{}
	svc := services.NewEventService(events, notifier, time.UTC)
	events.On("Create", mock.Anything, mock.MatchedBy(func(e *entities.Event) bool {
		return e.Status == entities.EventStatusUpcoming && e.Date.String() == "2025-03-01" && e.Time == "14:30"
	})).Return(nil)

	event, err := svc.Create(context.Background(), admin, services.CreateEventInput{
		Title: "Open day", Date: "2025-03-01", Time: "14:30",
	})
	require.NoError(t, err)
	require.Len(t, notifier.broadcasts, 1)
	assert.Equal(t, "", notifier.broadcasts[0].Exclude)
	assert.Equal(t, entities.NotificationNewEvent, notifier.broadcasts[0].Draft.Type)
	assert.Equal(t, event.ID, *notifier.broadcasts[0].Draft.RelatedID)

	_, err = svc.Create(context.Background(), admin, services.CreateEventInput{Title: "x", Date: "2025-03-01"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestEventService_ListFilters(t *testing.T) {
	events := new(MockEventRepository)
	svc := services.NewEventService(events, &recordingNotifier{}, time.UTC)
	events.On("List", mock.Anything, mock.MatchedBy(func(f repositories.EventFilter) bool {
		return f.Query == "yoga" && f.Status == "" && f.Date != nil && f.Date.String() == "2025-03-01"
	})).Return([]*entities.EventSummary{}, nil)

	_, err := svc.List(context.Background(), clientC, services.EventQuery{Keyword: "yoga", Date: "2025-03-01", Status: "All"})
	require.NoError(t, err)
	events.AssertExpectations(t)

	_, err = svc.List(context.Background(), clientC, services.EventQuery{Status: "postponed"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestEventService_MonthlyCountsAndInterest(t *testing.T) {
	events := new(MockEventRepository)
	svc := services.NewEventService(events, &recordingNotifier{}, time.UTC)
	events.On("MonthlyCounts", mock.Anything, 2025).Return(map[int]int{3: 2}, nil)
	events.On("GetByID", mock.Anything, "ev-1").Return(&entities.Event{ID: "ev-1"}, nil)
	events.On("ToggleInterest", mock.Anything, "ev-1", "user-C").Return(true, nil)

	rows, err := svc.MonthlyCounts(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, 2, rows[2].Count)
	assert.Equal(t, "Mar", rows[2].Month)

	interested, err := svc.ToggleInterest(context.Background(), clientC, "ev-1")
	require.NoError(t, err)
	assert.True(t, interested)
}

func TestArticleService_DraftListPinnedToCaller(t *testing.T) {
	articles := new(MockArticleRepository)
	svc := services.NewArticleService(articles, &recordingNotifier{})
	articles.On("List", mock.Anything, repositories.ArticleFilter{
		Status: entities.ArticleStatusDraft, AuthorID: "user-C", ViewerID: "user-C",
	}).Return([]*entities.ArticleSummary{}, nil).Once()
	articles.On("List", mock.Anything, repositories.ArticleFilter{
		Status: entities.ArticleStatusDraft, AuthorID: "user-D", ViewerID: admin.UserID,
	}).Return([]*entities.ArticleSummary{}, nil).Once()

	_, err := svc.List(context.Background(), clientC, repositories.ArticleFilter{
		Status: entities.ArticleStatusDraft, AuthorID: "user-D",
	})
	require.NoError(t, err)

	_, err = svc.List(context.Background(), admin, repositories.ArticleFilter{
		Status: entities.ArticleStatusDraft, AuthorID: "user-D",
	})
	require.NoError(t, err)
	articles.AssertExpectations(t)
}

func TestArticleService_OthersDraftIsHidden(t *testing.T) {
	articles := new(MockArticleRepository)
	notifier := &recordingNotifier{}
	svc := services.NewArticleService(articles, notifier)
	draft := entities.Article{ID: "art-d", UserID: "user-D", Status: entities.ArticleStatusDraft}
	articles.On("GetByID", mock.Anything, "art-d").Return(&draft, nil)
	articles.On("GetDetail", mock.Anything, "art-d").Return(&entities.ArticleDetail{Article: draft}, nil)

	_, err := svc.Get(context.Background(), clientC, "art-d")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	_, err = svc.ToggleLike(context.Background(), clientC, "art-d")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	_, err = svc.Comment(context.Background(), clientC, services.CommentInput{ArticleID: "art-d", Content: "hi"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	articles.AssertNotCalled(t, "ToggleLike", mock.Anything, mock.Anything, mock.Anything)
	articles.AssertNotCalled(t, "AddComment", mock.Anything, mock.Anything)
	assert.Empty(t, notifier.notified)

	own, err := svc.Get(context.Background(), doctorD, "art-d")
	require.NoError(t, err)
	assert.Empty(t, own.Comments)

	_, err = svc.Get(context.Background(), admin, "art-d")
	require.NoError(t, err)
}
