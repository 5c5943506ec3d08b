package websearch

import (
	"context"
	"errors"
)

// ErrRateLimited signals the provider refused the call due to rate limiting.
// Callers are expected to fall back rather than retry immediately.
var ErrRateLimited = errors.New("web search provider rate limited")

// Result is one ranked web search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// SearchProvider is the primary web search capability.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// SummaryProvider is the slower, less rate-sensitive fallback: it returns a
// single prose summary rather than ranked results.
type SummaryProvider interface {
	Summarize(ctx context.Context, query string) (string, error)
}
