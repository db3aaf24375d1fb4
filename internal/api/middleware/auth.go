package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/medconnect/clinic-backend/internal/application/services"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

// maxTokenBody bounds how much of a request body is buffered while looking for a token
const maxTokenBody = 1 << 20

type actorKey struct{}

// SessionVerifier turns a bearer token into a verified session
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*services.Session, error)
}

// WithActor stores the authenticated caller in ctx
func WithActor(ctx context.Context, actor services.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller stored by Authenticate
func ActorFromContext(ctx context.Context) (services.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(services.Actor)
	return actor, ok
}

// Authenticate rejects requests without a valid session token and stores the caller
// in the request context. The token may arrive as "Authorization: Bearer <t>", as a
// bare Authorization header, or as the "token" field of a JSON body.
func Authenticate(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, apperrors.ErrorTypeUnauthorized, "authentication token is required")
				return
			}

			session, err := verifier.VerifySession(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, apperrors.ErrorTypeUnauthorized, "token is invalid or expired")
				return
			}

			ctx := WithActor(r.Context(), services.Actor{UserID: session.UserID, Role: session.Role})
			logger := observability.LoggerFromContext(ctx).With().
				Str("user_id", session.UserID).
				Str("role", string(session.Role)).
				Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
		})
	}
}

// RequireRole answers 403 unless the authenticated caller holds one of roles.
// It must run inside Authenticate.
func RequireRole(roles ...entities.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, apperrors.ErrorTypeUnauthorized, "authentication token is required")
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, apperrors.ErrorTypeForbidden, "this action is not allowed for role "+string(actor.Role))
		})
	}
}

// replayBody re-serves a consumed prefix ahead of the unread rest of a body
type replayBody struct {
	io.Reader
	io.Closer
}

// ExtractToken finds the session token of r. A JSON body is read and restored
// so handlers can decode it again. Bodies larger than maxTokenBody are not
// searched and reach the handler whole.
func ExtractToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
			return strings.TrimSpace(header[7:])
		}
		return header
	}

	if r.Body == nil || !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return ""
	}
	original := r.Body
	body, err := io.ReadAll(io.LimitReader(original, maxTokenBody+1))
	r.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(body), original), Closer: original}
	if err != nil || len(body) == 0 || len(body) > maxTokenBody {
		return ""
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Token)
}

func writeError(w http.ResponseWriter, status int, errType apperrors.ErrorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   string(errType),
		"message": message,
	})
}
