package entities

import (
	"regexp"
	"strings"
	"time"
)

// ArticleStatus represents the publication state of an article
type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusPublished ArticleStatus = "published"
)

// Article is an authored post in the content feed
type Article struct {
	ID        string        `json:"id" db:"id"`
	UserID    string        `json:"user_id" db:"user_id"`
	Title     string        `json:"title" db:"title"`
	Slug      string        `json:"slug" db:"slug"`
	Content   string        `json:"content" db:"content"`
	Excerpt   string        `json:"excerpt" db:"excerpt"`
	ImageRef  *string       `json:"image,omitempty" db:"image_ref"`
	Status    ArticleStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// ArticleSummary is the feed listing shape with aggregate counts
type ArticleSummary struct {
	Article
	AuthorEmail  string `json:"author_email"`
	CommentCount int    `json:"comment_count"`
	LikeCount    int    `json:"like_count"`
	UserLiked    bool   `json:"user_liked"`
}

// ArticleDetail is a single article with its comments and likes
type ArticleDetail struct {
	Article
	AuthorEmail string     `json:"author_email"`
	Comments    []*Comment `json:"comments"`
	Likes       []*Like    `json:"likes"`
}

// Comment is a reply on an article, optionally threaded under another comment
type Comment struct {
	ID        string    `json:"id" db:"id"`
	ArticleID string    `json:"article_id" db:"article_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	ParentID  *string   `json:"parent_id,omitempty" db:"parent_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Like is a unique (user, article) pair
type Like struct {
	ID        string    `json:"id" db:"id"`
	ArticleID string    `json:"article_id" db:"article_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases title and joins alphanumeric runs with dashes
func Slugify(title string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
}

// Excerpt returns the first n runes of content, suffixed with an ellipsis when cut
func Excerpt(content string, n int) string {
	r := []rune(strings.TrimSpace(content))
	if len(r) <= n {
		return string(r)
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
