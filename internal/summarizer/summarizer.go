// Package summarizer fetches a GitHub repository's README and turns it
// into a structured summary via an external text-generation service,
// falling back to a plain-text extraction when that service is slow or
// unreachable.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Summary is the structured result returned to API callers.
type Summary struct {
	Summary   string   `json:"summary"`
	CoolFacts []string `json:"cool_facts"`
}

// Summarizer turns README text into a Summary.
type Summarizer interface {
	Summarize(ctx context.Context, readme string) (*Summary, error)
}

// Fetcher retrieves a repository README.
type Fetcher interface {
	Fetch(ctx context.Context, owner, repo string) (string, error)
}

// Service orchestrates the fetch-then-summarize pipeline.
type Service struct {
	fetcher Fetcher
	llm     Summarizer // nil disables AI summarization entirely
	logger  *slog.Logger
}

// NewService creates the pipeline. llm may be nil, in which case every
// request takes the extraction path.
func NewService(fetcher Fetcher, llm Summarizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fetcher: fetcher, llm: llm, logger: logger}
}

// SummarizeRepo resolves the URL, fetches the README and summarizes it.
// A failing or timed-out summarization collaborator degrades to the
// non-AI extraction path rather than failing the request; only the
// upstream README fetch is fatal.
func (s *Service) SummarizeRepo(ctx context.Context, repoURL string) (*Summary, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	readme, err := s.fetcher.Fetch(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch README for %s/%s: %w", owner, repo, err)
	}

	if s.llm != nil {
		summary, err := s.llm.Summarize(ctx, readme)
		if err == nil {
			return summary, nil
		}
		s.logger.Warn("summarization collaborator failed, using extraction fallback",
			"repo", owner+"/"+repo, "error", err)
	}

	return extractSummary(readme), nil
}

// extractSummary is the non-AI fallback: first prose paragraph as the
// summary, section headings as the facts.
func extractSummary(readme string) *Summary {
	var summary string
	var facts []string

	for _, block := range strings.Split(readme, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		lines := strings.Split(block, "\n")
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "#") {
				heading := strings.TrimSpace(strings.TrimLeft(line, "# "))
				if heading != "" && len(facts) < 5 {
					facts = append(facts, "Has a section on "+heading)
				}
			}
		}

		if summary == "" && !strings.HasPrefix(lines[0], "#") && !strings.HasPrefix(lines[0], "!") &&
			!strings.HasPrefix(lines[0], "[") && !strings.HasPrefix(lines[0], "<") {
			summary = block
		}
	}

	if summary == "" {
		summary = "No description available."
	}
	if len(summary) > 500 {
		summary = summary[:500] + "…"
	}

	return &Summary{Summary: summary, CoolFacts: facts}
}
