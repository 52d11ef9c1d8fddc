package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"gitsum/internal/auth"
	"gitsum/internal/utils"
)

// ValidateHandler serves the dashboard's informational "validate this
// key" action. The key itself is the credential; no session is needed.
type ValidateHandler struct {
	gate   *auth.Gate
	logger *slog.Logger
}

// NewValidateHandler creates a new validate handler
func NewValidateHandler(gate *auth.Gate, logger *slog.Logger) *ValidateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidateHandler{gate: gate, logger: logger}
}

// ValidateKeyRequest is the payload for POST /api/keys/validate
type ValidateKeyRequest struct {
	Key string `json:"key"`
}

// ValidateKeyResponse reports the outcome. An unknown or exhausted key is
// a well-formed negative result, not an error status.
type ValidateKeyResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"` // "invalid" | "rate_limited"
	Name   string `json:"name,omitempty"`
	Type   string `json:"type,omitempty"`
	Usage  int    `json:"usage,omitempty"`
}

// Validate handles POST /api/keys/validate. This call site is
// informational and does not charge quota.
func (h *ValidateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.Key == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "key is required")
		return
	}

	decision, err := h.gate.Peek(r.Context(), req.Key)
	if err != nil {
		h.logger.Error("key validation failed", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Error validating API key")
		return
	}

	resp := ValidateKeyResponse{Valid: decision.Authorized}
	if decision.Authorized {
		resp.Name = decision.Name
		resp.Type = decision.Env.Short()
		resp.Usage = decision.Usage
	} else {
		resp.Reason = string(decision.Reason)
	}

	utils.RespondWithJSON(w, http.StatusOK, resp)
}
