package summarizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrInvalidRepoURL is returned for URLs that do not name a GitHub
	// repository
	ErrInvalidRepoURL = errors.New("invalid GitHub repository URL")

	// ErrReadmeNotFound is returned when no README could be fetched
	ErrReadmeNotFound = errors.New("README not found")
)

const (
	rawContentBaseURL = "https://raw.githubusercontent.com"
	fetchTimeout      = 15 * time.Second
)

// readmeBranches are tried in order; repositories created before the
// default-branch rename still use master.
var readmeBranches = []string{"main", "master"}

// ParseRepoURL extracts owner and repository name from a GitHub URL.
func ParseRepoURL(raw string) (owner, repo string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", ErrInvalidRepoURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", ErrInvalidRepoURL
	}
	if u.Hostname() != "github.com" && u.Hostname() != "www.github.com" {
		return "", "", ErrInvalidRepoURL
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidRepoURL
	}

	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// ReadmeFetcher retrieves repository READMEs over raw.githubusercontent.
type ReadmeFetcher struct {
	client  *http.Client
	baseURL string
}

// NewReadmeFetcher creates a fetcher with a bounded request timeout.
func NewReadmeFetcher() *ReadmeFetcher {
	return &ReadmeFetcher{
		client:  &http.Client{Timeout: fetchTimeout},
		baseURL: rawContentBaseURL,
	}
}

// NewReadmeFetcherWithBaseURL is used by tests to point at a stub server.
func NewReadmeFetcherWithBaseURL(baseURL string) *ReadmeFetcher {
	return &ReadmeFetcher{
		client:  &http.Client{Timeout: fetchTimeout},
		baseURL: baseURL,
	}
}

// Fetch returns the README contents, trying the common default branches.
func (f *ReadmeFetcher) Fetch(ctx context.Context, owner, repo string) (string, error) {
	for _, branch := range readmeBranches {
		url := fmt.Sprintf("%s/%s/%s/%s/README.md", f.baseURL, owner, repo, branch)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to fetch README: %w", err)
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return "", fmt.Errorf("README fetch returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read README: %w", err)
		}

		return string(body), nil
	}

	return "", ErrReadmeNotFound
}
