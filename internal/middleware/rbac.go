package middleware

import (
	"net/http"

	"thesis-eval/internal/apperror"
)

// RequireRole allows the request when the actor holds any of roles.
// It must run after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				respondWithError(w, http.StatusUnauthorized, apperror.KindUnauthorized, "User not authenticated")
				return
			}

			for _, role := range roles {
				if actor.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			respondWithError(w, http.StatusForbidden, apperror.KindForbidden, "Insufficient permissions")
		})
	}
}
