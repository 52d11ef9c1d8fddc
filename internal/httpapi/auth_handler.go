package httpapi

import (
	"log/slog"
	"net/http"

	"gitsum/internal/auth"
	"gitsum/internal/models"
	"gitsum/internal/storage"
	"gitsum/internal/utils"
)

// AuthHandler provisions application users from verified sign-ins.
type AuthHandler struct {
	resolver *auth.SessionResolver
	users    *storage.UserRepository
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(resolver *auth.SessionResolver, users *storage.UserRepository, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{resolver: resolver, users: users, logger: logger}
}

// ProvisionSession handles POST /api/auth/session: the sign-in callback.
// It decodes the session cookie and upserts the user row — created on
// first sign-in, name and avatar refreshed on every one after.
func (h *AuthHandler) ProvisionSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.resolver.Claims(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Sign in required")
		return
	}

	provider := claims.Provider
	if provider == "" {
		provider = "oauth"
	}

	user := &models.User{
		Email:      claims.Email,
		Provider:   provider,
		ProviderID: claims.Subject,
	}
	if claims.Name != "" {
		user.Name = &claims.Name
	}
	if claims.Picture != "" {
		user.AvatarURL = &claims.Picture
	}

	if err := h.users.Upsert(r.Context(), user); err != nil {
		h.logger.Error("failed to provision user", "email", claims.Email, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to provision user")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, user)
}
