package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/auth"
	"thesis-eval/internal/models"
)

type contextKey string

const actorKey contextKey = "actor"

// RoleLoader looks up the current roles of a user
type RoleLoader interface {
	GetRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// AuthMiddleware validates session tokens and resolves the caller's roles
type AuthMiddleware struct {
	authService *auth.Service
	roles       RoleLoader
	cookieName  string
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authService *auth.Service, roles RoleLoader, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		roles:       roles,
		cookieName:  cookieName,
	}
}

// Authenticate validates the session cookie or bearer token and adds the
// actor, with roles loaded fresh from storage, to the request context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, problem := m.extractToken(r)
		if problem != "" {
			respondWithError(w, http.StatusUnauthorized, apperror.KindUnauthorized, problem)
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "Session has expired"
			}
			respondWithError(w, http.StatusUnauthorized, apperror.KindUnauthorized, msg)
			return
		}

		roles, err := m.roles.GetRoles(r.Context(), claims.UserID)
		if err != nil {
			respondWithError(w, http.StatusServiceUnavailable, apperror.KindUnavailable, "Failed to load user roles")
			return
		}

		actor := models.Actor{
			UserID:    claims.UserID,
			Roles:     roles,
			IPAddress: ClientIP(r),
			UserAgent: r.UserAgent(),
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// extractToken prefers the Authorization header over the session cookie.
// A non-empty second result describes why no token was found.
func (m *AuthMiddleware) extractToken(r *http.Request) (string, string) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", "Invalid authorization header format"
		}
		return parts[1], ""
	}

	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value, ""
	}

	return "", "Missing session"
}

// WithActor stores the authenticated actor in ctx
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the actor stored by Authenticate
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(models.Actor)
	return actor, ok
}
