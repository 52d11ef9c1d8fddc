package middleware

import (
	"context"
	"net/http"
	"strings"

	"gitsum/internal/auth"
	"gitsum/internal/utils"
)

// ContextKey defines the type for context keys to avoid conflicts
type ContextKey string

const (
	// DecisionKey is the context key for the authorization decision of the
	// current request
	DecisionKey ContextKey = "gateDecision"
)

// ExtractCredential pulls the bearer credential from the request headers:
// Authorization: Bearer first, then X-API-Key, whitespace trimmed. Empty
// string means no credential was presented.
func ExtractCredential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if rest, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// KeyAuth gates a handler behind the validation gate. The request is
// rejected before the wrapped handler runs — and therefore before any
// metered downstream work happens — unless the credential is valid and
// within quota. Authorized requests are charged exactly once here.
func KeyAuth(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := ExtractCredential(r)
			if credential == "" {
				utils.RespondWithJSON(w, http.StatusUnauthorized, map[string]interface{}{
					"error": "API key is required",
					"valid": false,
				})
				return
			}

			decision, err := gate.Check(r.Context(), credential)
			if err != nil {
				utils.RespondWithError(w, http.StatusInternalServerError, "Error validating API key")
				return
			}

			if !decision.Authorized {
				if decision.Reason == auth.ReasonRateLimited {
					utils.RespondWithJSON(w, http.StatusTooManyRequests, map[string]interface{}{
						"error": "API key usage limit exceeded",
						"valid": false,
					})
					return
				}
				utils.RespondWithJSON(w, http.StatusUnauthorized, map[string]interface{}{
					"error": "Invalid API key",
					"valid": false,
				})
				return
			}

			ctx := context.WithValue(r.Context(), DecisionKey, &decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetDecision retrieves the authorization decision from the request context
func GetDecision(ctx context.Context) (*auth.Decision, bool) {
	decision, ok := ctx.Value(DecisionKey).(*auth.Decision)
	return decision, ok
}
