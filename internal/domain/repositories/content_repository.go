package repositories

import (
	"context"

	"github.com/medconnect/clinic-backend/internal/domain/entities"
)

// ArticleFilter defines filters for listing articles
type ArticleFilter struct {
	Query    string
	AuthorID string
	Status   entities.ArticleStatus
	ViewerID string
	Limit    int
}

// ArticleRepository defines the interface for the content feed
type ArticleRepository interface {
	Create(ctx context.Context, article *entities.Article) error
	GetByID(ctx context.Context, id string) (*entities.Article, error)
	GetDetail(ctx context.Context, id string) (*entities.ArticleDetail, error)
	List(ctx context.Context, filter ArticleFilter) ([]*entities.ArticleSummary, error)

	// ToggleLike removes the user's like when present and adds it otherwise.
	// It reports whether the article is liked afterwards.
	ToggleLike(ctx context.Context, articleID, userID string) (bool, error)

	AddComment(ctx context.Context, comment *entities.Comment) error
	GetComment(ctx context.Context, id string) (*entities.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

// EventFilter defines filters for listing events
type EventFilter struct {
	Query    string
	Date     *entities.Date
	From     *entities.Date
	To       *entities.Date
	Status   entities.EventStatus
	ViewerID string
}

// EventRepository defines the interface for the event board
type EventRepository interface {
	Create(ctx context.Context, event *entities.Event) error
	GetByID(ctx context.Context, id string) (*entities.Event, error)
	List(ctx context.Context, filter EventFilter) ([]*entities.EventSummary, error)
	Count(ctx context.Context) (int, error)

	// MonthlyCounts returns month (1-12) -> number of events dated in year
	MonthlyCounts(ctx context.Context, year int) (map[int]int, error)

	// ToggleInterest flips the user's interest and reports whether it is set afterwards
	ToggleInterest(ctx context.Context, eventID, userID string) (bool, error)
}
