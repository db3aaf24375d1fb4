package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

var articleColumns = []interface{}{
	goqu.I("a.id"), goqu.I("a.user_id"), goqu.I("a.title"), goqu.I("a.slug"), goqu.I("a.content"),
	goqu.I("a.excerpt"), goqu.I("a.image_ref"), goqu.I("a.status"), goqu.I("a.created_at"), goqu.I("a.updated_at"),
}

// ArticleAdapter implements the ArticleRepository interface
type ArticleAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewArticleAdapter creates a new article adapter
func NewArticleAdapter(client *postgres.Client) repositories.ArticleRepository {
	return &ArticleAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func scanArticle(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*entities.Article, error) {
	art := &entities.Article{}
	var image sql.NullString
	dest := []interface{}{
		&art.ID, &art.UserID, &art.Title, &art.Slug, &art.Content,
		&art.Excerpt, &image, &art.Status, &art.CreatedAt, &art.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	art.ImageRef = nullString(image)
	return art, nil
}

// Create inserts an article
func (a *ArticleAdapter) Create(ctx context.Context, art *entities.Article) error {
	now := time.Now()
	if art.ID == "" {
		art.ID = uuid.New().String()
	}
	art.CreatedAt = now
	art.UpdatedAt = now

	query, _, err := a.db.Insert("articles").Rows(goqu.Record{
		"id":         art.ID,
		"user_id":    art.UserID,
		"title":      art.Title,
		"slug":       art.Slug,
		"content":    art.Content,
		"excerpt":    art.Excerpt,
		"image_ref":  art.ImageRef,
		"status":     art.Status,
		"created_at": now,
		"updated_at": now,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query); err != nil {
		return translate(err, "article", "create")
	}
	return nil
}

// GetByID retrieves an article by ID
func (a *ArticleAdapter) GetByID(ctx context.Context, id string) (*entities.Article, error) {
	query, _, err := a.db.Select(articleColumns...).From(goqu.T("articles").As("a")).
		Where(goqu.Ex{"a.id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	art, err := scanArticle(a.client.DB().QueryRowContext(ctx, query))
	if err != nil {
		return nil, translate(err, "article", "get")
	}
	return art, nil
}

// List returns feed entries with comment and like counts, newest first
func (a *ArticleAdapter) List(ctx context.Context, filter repositories.ArticleFilter) ([]*entities.ArticleSummary, error) {
	comments := a.db.From(goqu.T("comments").As("c")).
		Select(goqu.COUNT("*")).
		Where(goqu.I("c.article_id").Eq(goqu.I("a.id")))
	likes := a.db.From(goqu.T("likes").As("l")).
		Select(goqu.COUNT("*")).
		Where(goqu.I("l.article_id").Eq(goqu.I("a.id")))

	liked := goqu.L("false")
	if filter.ViewerID != "" {
		liked = goqu.L("EXISTS ?", a.db.From(goqu.T("likes").As("v")).
			Select(goqu.L("1")).
			Where(goqu.I("v.article_id").Eq(goqu.I("a.id")), goqu.I("v.user_id").Eq(filter.ViewerID)))
	}

	cols := append(append([]interface{}{}, articleColumns...),
		goqu.I("u.email"), comments.As("comment_count"), likes.As("like_count"), liked.As("user_liked"),
	)
	ds := a.db.Select(cols...).
		From(goqu.T("articles").As("a")).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("a.user_id")))).
		Order(goqu.I("a.created_at").Desc())

	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		ds = ds.Where(goqu.Or(goqu.I("a.title").ILike(pattern), goqu.I("a.content").ILike(pattern)))
	}
	if filter.AuthorID != "" {
		ds = ds.Where(goqu.Ex{"a.user_id": filter.AuthorID})
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"a.status": filter.Status})
	}
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	query, _, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "article", "list")
	}
	defer rows.Close()

	summaries := []*entities.ArticleSummary{}
	for rows.Next() {
		s := &entities.ArticleSummary{}
		art, err := scanArticle(rows, &s.AuthorEmail, &s.CommentCount, &s.LikeCount, &s.UserLiked)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan article", err)
		}
		s.Article = *art
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate articles", err)
	}
	return summaries, nil
}

// GetDetail returns an article with its comments, oldest first, and its likes
func (a *ArticleAdapter) GetDetail(ctx context.Context, id string) (*entities.ArticleDetail, error) {
	query, _, err := a.db.Select(append(append([]interface{}{}, articleColumns...), goqu.I("u.email"))...).
		From(goqu.T("articles").As("a")).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("a.user_id")))).
		Where(goqu.Ex{"a.id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	detail := &entities.ArticleDetail{Comments: []*entities.Comment{}, Likes: []*entities.Like{}}
	art, err := scanArticle(a.client.DB().QueryRowContext(ctx, query), &detail.AuthorEmail)
	if err != nil {
		return nil, translate(err, "article", "get")
	}
	detail.Article = *art

	commentsQuery, _, err := a.db.Select("id", "article_id", "user_id", "parent_id", "content", "created_at").
		From("comments").
		Where(goqu.Ex{"article_id": id}).
		Order(goqu.I("created_at").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	rows, err := a.client.DB().QueryContext(ctx, commentsQuery)
	if err != nil {
		return nil, translate(err, "comment", "list")
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan comment", err)
		}
		detail.Comments = append(detail.Comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate comments", err)
	}

	likesQuery, _, err := a.db.Select("id", "article_id", "user_id", "created_at").
		From("likes").
		Where(goqu.Ex{"article_id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	likeRows, err := a.client.DB().QueryContext(ctx, likesQuery)
	if err != nil {
		return nil, translate(err, "like", "list")
	}
	defer likeRows.Close()
	for likeRows.Next() {
		l := &entities.Like{}
		if err := likeRows.Scan(&l.ID, &l.ArticleID, &l.UserID, &l.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan like", err)
		}
		detail.Likes = append(detail.Likes, l)
	}
	if err := likeRows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate likes", err)
	}
	return detail, nil
}

// ToggleLike deletes the user's like or inserts one when none existed
func (a *ArticleAdapter) ToggleLike(ctx context.Context, articleID, userID string) (bool, error) {
	deleteQuery, _, err := a.db.Delete("likes").
		Where(goqu.Ex{"article_id": articleID, "user_id": userID}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build delete query", err)
	}
	insertQuery, _, err := a.db.Insert("likes").
		Rows(goqu.Record{
			"id":         uuid.New().String(),
			"article_id": articleID,
			"user_id":    userID,
			"created_at": time.Now(),
		}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build insert query", err)
	}

	var liked bool
	err = a.client.RunInTx(ctx, "toggle_like", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, deleteQuery)
		if err != nil {
			return err
		}
		removed, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if removed > 0 {
			liked = false
			return nil
		}
		if _, err := tx.ExecContext(ctx, insertQuery); err != nil {
			return err
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, translate(err, "like", "toggle")
	}
	return liked, nil
}

func scanComment(row interface{ Scan(...interface{}) error }) (*entities.Comment, error) {
	c := &entities.Comment{}
	var parent sql.NullString
	if err := row.Scan(&c.ID, &c.ArticleID, &c.UserID, &parent, &c.Content, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ParentID = nullString(parent)
	return c, nil
}

// AddComment inserts a comment
func (a *ArticleAdapter) AddComment(ctx context.Context, c *entities.Comment) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now()

	query, _, err := a.db.Insert("comments").Rows(goqu.Record{
		"id":         c.ID,
		"article_id": c.ArticleID,
		"user_id":    c.UserID,
		"parent_id":  c.ParentID,
		"content":    c.Content,
		"created_at": c.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query); err != nil {
		return translate(err, "comment", "create")
	}
	return nil
}

// GetComment retrieves a comment by ID
func (a *ArticleAdapter) GetComment(ctx context.Context, id string) (*entities.Comment, error) {
	query, _, err := a.db.Select("id", "article_id", "user_id", "parent_id", "content", "created_at").
		From("comments").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	c, err := scanComment(a.client.DB().QueryRowContext(ctx, query))
	if err != nil {
		return nil, translate(err, "comment", "get")
	}
	return c, nil
}

// DeleteComment removes a comment and, through the foreign key, its replies
func (a *ArticleAdapter) DeleteComment(ctx context.Context, id string) error {
	query, _, err := a.db.Delete("comments").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query)
	if err != nil {
		return translate(err, "comment", "delete")
	}
	return expectAffected(result, "comment")
}
