package agent

import (
	"context"
	"fmt"
	"log"

	"koios-rag-be/pkg/llm"
	"koios-rag-be/pkg/retrieval"
	"koios-rag-be/pkg/toon"
	"koios-rag-be/pkg/websearch"

	"golang.org/x/time/rate"
)

const defaultTopK = 4

// SearchOrchestrator runs the two retrieval paths: vector search over the
// document store and rate-limited web search with a fallback provider.
type SearchOrchestrator struct {
	retriever    retrieval.Retriever
	reformulator *Reformulator
	webPrimary   websearch.SearchProvider
	webFallback  websearch.SummaryProvider
	limiter      *rate.Limiter
	topK         int
	logger       *log.Logger
}

func NewSearchOrchestrator(
	retriever retrieval.Retriever,
	reformulator *Reformulator,
	webPrimary websearch.SearchProvider,
	webFallback websearch.SummaryProvider,
	limiter *rate.Limiter,
	logger *log.Logger,
) *SearchOrchestrator {
	return &SearchOrchestrator{
		retriever:    retriever,
		reformulator: reformulator,
		webPrimary:   webPrimary,
		webFallback:  webFallback,
		limiter:      limiter,
		topK:         defaultTopK,
		logger:       logger,
	}
}

// WithTopK sets how many passages document retrieval asks for. Values
// below one keep the default.
func (s *SearchOrchestrator) WithTopK(k int) *SearchOrchestrator {
	if k > 0 {
		s.topK = k
	}
	return s
}

// DocSearch contextualizes the question against the history, retrieves the
// top passages and serializes them. An empty document collection yields an
// empty context string, which is a valid outcome, not an error.
func (s *SearchOrchestrator) DocSearch(ctx context.Context, question string, history []llm.Message) (string, error) {
	standalone, err := s.reformulator.Contextualize(ctx, question, history)
	if err != nil {
		return "", err
	}

	passages, err := s.retriever.Retrieve(ctx, standalone, s.topK)
	if err != nil {
		return "", fmt.Errorf("document retrieval failed: %w", err)
	}

	s.logger.Printf("[DOC_SEARCH] Retrieved %d passages", len(passages))
	if len(passages) == 0 {
		return "", nil
	}

	documents := make([]map[string]any, len(passages))
	for i, p := range passages {
		documents[i] = map[string]any{
			"content": p.Content,
			"source":  p.Source,
		}
	}
	return toon.Dumps(map[string]any{"documents": documents}), nil
}

// WebSearch queries the primary engine behind the shared rate limiter and
// falls back to the summary provider when the primary fails. It never
// returns an error: total failure is reported inside the context string so
// generation can tell the user what happened.
func (s *SearchOrchestrator) WebSearch(ctx context.Context, query string) string {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Sprintf("Search failed: %v", err)
	}

	results, primaryErr := s.webPrimary.Search(ctx, query, 3)
	if primaryErr == nil && len(results) > 0 {
		s.logger.Printf("[WEB_SEARCH] Primary returned %d results", len(results))
		records := make([]map[string]any, len(results))
		for i, r := range results {
			records[i] = map[string]any{
				"title":   r.Title,
				"snippet": r.Snippet,
				"url":     r.URL,
			}
		}
		return toon.Dumps(map[string]any{"results": records})
	}
	if primaryErr == nil {
		primaryErr = fmt.Errorf("no results for %q", query)
	}

	s.logger.Printf("[WARN] Primary web search failed, trying fallback: %v", primaryErr)

	summary, fallbackErr := s.webFallback.Summarize(ctx, query)
	if fallbackErr == nil && summary != "" {
		return summary
	}
	if fallbackErr == nil {
		fallbackErr = fmt.Errorf("no summary for %q", query)
	}

	s.logger.Printf("[ERROR] Web search fallback failed: %v", fallbackErr)
	return fmt.Sprintf("Search failed: %v. Fallback failed: %v.", primaryErr, fallbackErr)
}
