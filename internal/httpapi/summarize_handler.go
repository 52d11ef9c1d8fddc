package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"gitsum/internal/middleware"
	"gitsum/internal/summarizer"
	"gitsum/internal/utils"
)

// SummarizeHandler serves the metered summarizer endpoint. The key
// middleware has already validated and charged the credential by the
// time a request reaches here.
type SummarizeHandler struct {
	svc    *summarizer.Service
	logger *slog.Logger
}

// NewSummarizeHandler creates a new summarize handler
func NewSummarizeHandler(svc *summarizer.Service, logger *slog.Logger) *SummarizeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SummarizeHandler{svc: svc, logger: logger}
}

// SummarizeRequest is the payload for POST /api/github-summarizer
type SummarizeRequest struct {
	GithubURL string `json:"githubUrl"`
}

// Summarize handles POST /api/github-summarizer
func (h *SummarizeHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.GithubURL == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "githubUrl is required")
		return
	}

	summary, err := h.svc.SummarizeRepo(r.Context(), req.GithubURL)
	if err != nil {
		if errors.Is(err, summarizer.ErrInvalidRepoURL) {
			utils.RespondWithError(w, http.StatusBadRequest, "githubUrl must be a GitHub repository URL")
			return
		}
		// Upstream fetch or summarization failure. The quota charge
		// stands; metering is fail-closed.
		if decision, ok := middleware.GetDecision(r.Context()); ok {
			h.logger.Warn("summarization failed after metering", "key_id", decision.KeyID, "error", err)
		}
		utils.RespondWithError(w, http.StatusBadGateway, "Failed to summarize repository")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, summary)
}
