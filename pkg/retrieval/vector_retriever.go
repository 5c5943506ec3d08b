package retrieval

import (
	"context"
	"fmt"

	"koios-rag-be/internal/repository/contract"
	"koios-rag-be/pkg/embedding"
)

const defaultThreshold = 0.35

// VectorRetriever embeds the query and runs a cosine-similarity search over
// the document embedding store.
type VectorRetriever struct {
	embeddingProvider embedding.EmbeddingProvider
	embeddingRepo     contract.DocumentEmbeddingRepository
	threshold         float64
}

func NewVectorRetriever(provider embedding.EmbeddingProvider, repo contract.DocumentEmbeddingRepository) *VectorRetriever {
	return &VectorRetriever{
		embeddingProvider: provider,
		embeddingRepo:     repo,
		threshold:         defaultThreshold,
	}
}

func (r *VectorRetriever) WithThreshold(threshold float64) *VectorRetriever {
	r.threshold = threshold
	return r
}

func (r *VectorRetriever) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	resp, err := r.embeddingProvider.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	scored, err := r.embeddingRepo.SearchSimilarWithScore(ctx, resp.Embedding.Values, k, r.threshold)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	passages := make([]Passage, 0, len(scored))
	for _, s := range scored {
		passages = append(passages, Passage{
			Content: s.Embedding.Chunk,
			Source:  s.Source,
		})
	}
	return passages, nil
}
