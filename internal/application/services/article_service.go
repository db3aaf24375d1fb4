package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

const excerptLength = 160

// CreateArticleInput is a new article as submitted by its author
type CreateArticleInput struct {
	Title    string
	Content  string
	Excerpt  string
	ImageRef string
	Status   entities.ArticleStatus
}

// CommentInput is a new comment, optionally replying to ParentID
type CommentInput struct {
	ArticleID string
	ParentID  string
	Content   string
}

// ArticleService handles the content feed
type ArticleService struct {
	articles repositories.ArticleRepository
	notifier Notifier
}

// NewArticleService creates a new article service
func NewArticleService(articles repositories.ArticleRepository, notifier Notifier) *ArticleService {
	return &ArticleService{articles: articles, notifier: notifier}
}

// Create stores an article. Published articles are announced to every other user.
func (s *ArticleService) Create(ctx context.Context, actor Actor, in CreateArticleInput) (*entities.Article, error) {
	if err := requireRole(actor, entities.RoleDoctor, entities.RoleAdmin); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return nil, apperrors.NewValidationError("title and content are required")
	}
	status := in.Status
	if status == "" {
		status = entities.ArticleStatusPublished
	}
	if status != entities.ArticleStatusDraft && status != entities.ArticleStatusPublished {
		return nil, apperrors.NewValidationError("status must be draft or published")
	}

	id := uuid.New().String()
	excerpt := strings.TrimSpace(in.Excerpt)
	if excerpt == "" {
		excerpt = entities.Excerpt(content, excerptLength)
	}
	slug := entities.Slugify(title)
	if slug == "" {
		slug = "article"
	}

	now := time.Now()
	article := &entities.Article{
		ID:        id,
		UserID:    actor.UserID,
		Title:     title,
		Slug:      slug + "-" + id[:8],
		Content:   content,
		Excerpt:   excerpt,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ref := strings.TrimSpace(in.ImageRef); ref != "" {
		article.ImageRef = &ref
	}
	if err := s.articles.Create(ctx, article); err != nil {
		return nil, err
	}

	if status == entities.ArticleStatusPublished {
		s.notifier.Broadcast(ctx, entities.NotificationDraft{
			Type:      entities.NotificationNewArticle,
			Title:     "New Article Published!",
			Message:   fmt.Sprintf("A new article titled %q has been posted.", article.Title),
			RelatedID: &article.ID,
		}, actor.UserID)
	}
	return article, nil
}

// List returns the feed with counts and whether the viewer liked each article
func (s *ArticleService) List(ctx context.Context, actor Actor, filter repositories.ArticleFilter) ([]*entities.ArticleSummary, error) {
	filter.ViewerID = actor.UserID
	filter.Query = strings.TrimSpace(filter.Query)
	switch {
	case filter.Status == "" && filter.AuthorID != actor.UserID:
		filter.Status = entities.ArticleStatusPublished
	case filter.Status != entities.ArticleStatusPublished && actor.Role != entities.RoleAdmin:
		// drafts are visible to their author and to admins only
		filter.AuthorID = actor.UserID
	}
	return orEmpty(s.articles.List(ctx, filter))
}

// Get returns one article with its comments and likes
func (s *ArticleService) Get(ctx context.Context, actor Actor, id string) (*entities.ArticleDetail, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("article id is required")
	}
	detail, err := s.articles.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, &detail.Article) {
		return nil, apperrors.NewNotFoundError("article not found")
	}
	if detail.Comments == nil {
		detail.Comments = []*entities.Comment{}
	}
	if detail.Likes == nil {
		detail.Likes = []*entities.Like{}
	}
	return detail, nil
}

// ToggleLike flips the caller's like and reports whether the article is now liked.
// A new like notifies the author unless they liked their own article.
func (s *ArticleService) ToggleLike(ctx context.Context, actor Actor, articleID string) (bool, error) {
	if articleID == "" {
		return false, apperrors.NewValidationError("article_id is required")
	}
	article, err := s.visibleArticle(ctx, actor, articleID)
	if err != nil {
		return false, err
	}

	liked, err := s.articles.ToggleLike(ctx, articleID, actor.UserID)
	if err != nil {
		return false, err
	}

	if liked && article.UserID != actor.UserID {
		s.notifier.Notify(ctx, article.UserID, entities.NotificationDraft{
			Type:      entities.NotificationLike,
			Title:     "Your article got a like!",
			Message:   fmt.Sprintf("Someone liked your article %q.", article.Title),
			RelatedID: &article.ID,
		})
	}
	return liked, nil
}

// Comment posts a comment on an article and notifies its author unless self
func (s *ArticleService) Comment(ctx context.Context, actor Actor, in CommentInput) (*entities.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if in.ArticleID == "" || content == "" {
		return nil, apperrors.NewValidationError("article_id and content are required")
	}
	article, err := s.visibleArticle(ctx, actor, in.ArticleID)
	if err != nil {
		return nil, err
	}

	comment := &entities.Comment{
		ID:        uuid.New().String(),
		ArticleID: article.ID,
		UserID:    actor.UserID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if in.ParentID != "" {
		parent, err := s.articles.GetComment(ctx, in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.ArticleID != article.ID {
			return nil, apperrors.NewValidationError("parent comment belongs to another article")
		}
		comment.ParentID = &parent.ID
	}
	if err := s.articles.AddComment(ctx, comment); err != nil {
		return nil, err
	}

	if article.UserID != actor.UserID {
		s.notifier.Notify(ctx, article.UserID, entities.NotificationDraft{
			Type:      entities.NotificationComment,
			Title:     "New Comment on Your Article",
			Message:   fmt.Sprintf("Someone commented on your article %q.", article.Title),
			RelatedID: &article.ID,
		})
	}
	return comment, nil
}

// DeleteComment removes a comment. Its author, the article author and admins may delete it.
func (s *ArticleService) DeleteComment(ctx context.Context, actor Actor, id string) error {
	comment, err := s.articles.GetComment(ctx, id)
	if err != nil {
		return err
	}
	if comment.UserID != actor.UserID && !actor.IsAdmin() {
		article, err := s.articles.GetByID(ctx, comment.ArticleID)
		if err != nil {
			return err
		}
		if article.UserID != actor.UserID {
			return apperrors.NewForbiddenError("you cannot delete this comment")
		}
	}
	if err := s.articles.DeleteComment(ctx, id); err != nil {
		return err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("comment_id", id).
		Str("actor_id", actor.UserID).
		Msg("Comment deleted")
	return nil
}

// visibleArticle loads an article the actor may see. Another author's draft
// is reported as missing.
func (s *ArticleService) visibleArticle(ctx context.Context, actor Actor, id string) (*entities.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, article) {
		return nil, apperrors.NewNotFoundError("article not found")
	}
	return article, nil
}

func canView(actor Actor, article *entities.Article) bool {
	return article.Status != entities.ArticleStatusDraft ||
		article.UserID == actor.UserID ||
		actor.Role == entities.RoleAdmin
}
