package retrieval

import "context"

// Passage is a single piece of retrieved context.
type Passage struct {
	Content string
	Source  string
}

// Retriever finds passages relevant to a natural-language query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Passage, error)
}
