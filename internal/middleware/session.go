package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"gitsum/internal/auth"
	"gitsum/internal/utils"
)

const (
	// UserIDKey is the context key for the resolved user id of the current
	// dashboard request
	UserIDKey ContextKey = "userID"
)

// RequireSession gates dashboard routes behind the session identity
// resolver. No usable session is a clean 401; only a store failure is a
// 500.
func RequireSession(resolver *auth.SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok, err := resolver.ResolveUserID(r.Context(), r)
			if err != nil {
				utils.RespondWithError(w, http.StatusInternalServerError, "Error resolving session")
				return
			}
			if !ok {
				utils.RespondWithError(w, http.StatusUnauthorized, "Sign in required")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID retrieves the resolved user id from the request context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return id, ok
}
