package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/medconnect/clinic-backend/internal/application/services"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
)

// ArticleService defines the content feed operations used by the handler
type ArticleService interface {
	Create(ctx context.Context, actor services.Actor, in services.CreateArticleInput) (*entities.Article, error)
	List(ctx context.Context, actor services.Actor, filter repositories.ArticleFilter) ([]*entities.ArticleSummary, error)
	Get(ctx context.Context, actor services.Actor, id string) (*entities.ArticleDetail, error)
	ToggleLike(ctx context.Context, actor services.Actor, articleID string) (bool, error)
	Comment(ctx context.Context, actor services.Actor, in services.CommentInput) (*entities.Comment, error)
	DeleteComment(ctx context.Context, actor services.Actor, id string) error
}

// ArticleHandler handles article, like and comment endpoints
type ArticleHandler struct {
	service ArticleService
}

// NewArticleHandler creates a new article handler
func NewArticleHandler(service ArticleService) *ArticleHandler {
	return &ArticleHandler{service: service}
}

// Create handles POST /articles
func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req struct {
		Title    string                 `json:"title"`
		Content  string                 `json:"content"`
		Excerpt  string                 `json:"excerpt"`
		ImageRef string                 `json:"image"`
		Status   entities.ArticleStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	article, err := h.service.Create(r.Context(), actor, services.CreateArticleInput{
		Title:    req.Title,
		Content:  req.Content,
		Excerpt:  req.Excerpt,
		ImageRef: req.ImageRef,
		Status:   req.Status,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, article)
}

// List handles GET /articles?q=&author_id=&status=&limit=
func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	filter := repositories.ArticleFilter{
		Query:    query.Get("q"),
		AuthorID: query.Get("author_id"),
		Status:   entities.ArticleStatus(query.Get("status")),
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}

	articles, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, articles)
}

// Get handles GET /articles/{id}
func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	detail, err := h.service.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}

// ToggleLike handles POST /articles/like
func (h *ArticleHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req struct {
		ArticleID string `json:"article_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	liked, err := h.service.ToggleLike(r.Context(), actor, req.ArticleID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	message := "article unliked"
	if liked {
		message = "article liked"
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": message,
		"liked":   liked,
	})
}

// Comment handles POST /articles/comments
func (h *ArticleHandler) Comment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var req struct {
		ArticleID string `json:"article_id"`
		ParentID  string `json:"parent_id"`
		Comment   string `json:"comment"`
		Content   string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	comment, err := h.service.Comment(r.Context(), actor, services.CommentInput{
		ArticleID: req.ArticleID,
		ParentID:  req.ParentID,
		Content:   firstNonEmpty(req.Comment, req.Content),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, comment)
}

// DeleteComment handles DELETE /articles/comments/{id}
func (h *ArticleHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteComment(r.Context(), actor, r.PathValue("id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondWithMessage(w, http.StatusOK, "comment deleted")
}
