package middleware

import (
	"log/slog"
	"net/http"

	"gitsum/internal/ratelimit"
	"gitsum/internal/utils"
)

// RequestRate caps per-credential request bursts in front of the quota
// gate, so a rejected burst is never charged against the key's quota.
// The limiter is keyed by the raw credential; requests without one pass
// through for KeyAuth to reject. A limiter failure fails open: the quota
// gate behind this middleware still bounds total usage.
func RequestRate(limiter ratelimit.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := ExtractCredential(r)
			if credential != "" {
				allowed, err := limiter.Allow(r.Context(), credential)
				if err != nil {
					logger.Warn("rate limiter unavailable, allowing request", "error", err)
				} else if !allowed {
					utils.RespondWithJSON(w, http.StatusTooManyRequests, map[string]interface{}{
						"error": "Too many requests",
						"valid": false,
					})
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
