package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gitsum/internal/keys"
	"gitsum/internal/middleware"
	"gitsum/internal/models"
	"gitsum/internal/utils"
)

// KeysHandler handles the dashboard's API key CRUD endpoints. All routes
// here sit behind the session middleware; the owner is always the
// resolved user.
type KeysHandler struct {
	svc    *keys.Service
	logger *slog.Logger
}

// NewKeysHandler creates a new keys handler
func NewKeysHandler(svc *keys.Service, logger *slog.Logger) *KeysHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeysHandler{svc: svc, logger: logger}
}

// CreateKeyRequest is the payload for POST /api/keys
type CreateKeyRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"` // "dev" | "prod"
	Limit *int   `json:"limit,omitempty"`
}

// UpdateKeyRequest is the payload for PUT /api/keys/{id}
type UpdateKeyRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Key  string `json:"key"`
}

// List handles GET /api/keys
func (h *KeysHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Sign in required")
		return
	}

	list, err := h.svc.ListKeys(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list API keys", "user_id", userID, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list API keys")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, list)
}

// Create handles POST /api/keys
func (h *KeysHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Sign in required")
		return
	}

	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	env, envOK := models.ParseEnvironment(req.Type)
	if !envOK {
		utils.RespondWithError(w, http.StatusBadRequest, keys.ErrInvalidEnvironment.Error())
		return
	}

	key, err := h.svc.CreateKey(r.Context(), userID, keys.CreateParams{
		Name:  req.Name,
		Env:   env,
		Limit: req.Limit,
	})
	if err != nil {
		h.respondKeyError(w, userID, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, key)
}

// Update handles PUT /api/keys/{id}
func (h *KeysHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Sign in required")
		return
	}

	keyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid API key ID")
		return
	}

	var req UpdateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	env, envOK := models.ParseEnvironment(req.Type)
	if !envOK {
		utils.RespondWithError(w, http.StatusBadRequest, keys.ErrInvalidEnvironment.Error())
		return
	}

	key, err := h.svc.UpdateKey(r.Context(), userID, keyID, keys.UpdateParams{
		Name: req.Name,
		Env:  env,
		Key:  req.Key,
	})
	if err != nil {
		h.respondKeyError(w, userID, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, key)
}

// Delete handles DELETE /api/keys/{id}
func (h *KeysHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Sign in required")
		return
	}

	keyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid API key ID")
		return
	}

	if err := h.svc.DeleteKey(r.Context(), userID, keyID); err != nil {
		h.respondKeyError(w, userID, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// respondKeyError maps lifecycle errors to status codes. Validation
// failures name the bad field; ownership failures are uniform 404s.
func (h *KeysHandler) respondKeyError(w http.ResponseWriter, userID uuid.UUID, err error) {
	switch {
	case errors.Is(err, keys.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "API key not found")
	case errors.Is(err, keys.ErrInvalidName),
		errors.Is(err, keys.ErrInvalidEnvironment),
		errors.Is(err, keys.ErrInvalidLimit),
		errors.Is(err, keys.ErrInvalidKey):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, keys.ErrTransient):
		utils.RespondWithError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("API key operation failed", "user_id", userID, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
