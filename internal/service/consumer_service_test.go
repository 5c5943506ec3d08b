package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"koios-rag-be/internal/dto"
	"koios-rag-be/internal/entity"
	"koios-rag-be/internal/repository/contract"
	"koios-rag-be/internal/repository/specification"
	"koios-rag-be/pkg/embedding"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocumentRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*entity.Document
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[uuid.UUID]*entity.Document)}
}

func (r *fakeDocumentRepo) Create(ctx context.Context, document *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[document.Id] = document
	return nil
}

func (r *fakeDocumentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

func (r *fakeDocumentRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			return r.docs[byID.ID], nil
		}
	}
	return nil, nil
}

func (r *fakeDocumentRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Document, 0, len(r.docs))
	for _, d := range r.docs {
		out = append(out, d)
	}
	return out, nil
}

func (r *fakeDocumentRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.docs)), nil
}

type fakeEmbeddingRepo struct {
	mu      sync.Mutex
	stored  []*entity.DocumentEmbedding
	deleted []uuid.UUID
}

func (r *fakeEmbeddingRepo) Create(ctx context.Context, e *entity.DocumentEmbedding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, e)
	return nil
}

func (r *fakeEmbeddingRepo) CreateBulk(ctx context.Context, embeddings []*entity.DocumentEmbedding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, embeddings...)
	return nil
}

func (r *fakeEmbeddingRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (r *fakeEmbeddingRepo) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, documentId)
	kept := r.stored[:0]
	for _, e := range r.stored {
		if e.DocumentId != documentId {
			kept = append(kept, e)
		}
	}
	r.stored = kept
	return nil
}

func (r *fakeEmbeddingRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentEmbedding, error) {
	return nil, nil
}

func (r *fakeEmbeddingRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentEmbedding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.DocumentEmbedding(nil), r.stored...), nil
}

func (r *fakeEmbeddingRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.stored)), nil
}

func (r *fakeEmbeddingRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*contract.ScoredDocumentEmbedding, error) {
	return nil, nil
}

type fixedEmbeddingProvider struct{}

func (fixedEmbeddingProvider) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2, 0.3}},
	}, nil
}

func TestConsumerEmbedsPublishedDocument(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	docRepo := newFakeDocumentRepo()
	embRepo := &fakeEmbeddingRepo{}

	doc := &entity.Document{
		Id:      uuid.New(),
		Title:   "handbook",
		Source:  "handbook.md",
		Content: "alpha bravo charlie delta echo foxtrot golf hotel india juliett",
	}
	require.NoError(t, docRepo.Create(context.Background(), doc))

	consumer := NewConsumerService(pubSub, "embed-test", docRepo, embRepo, fixedEmbeddingProvider{}, 30, 5)
	require.NoError(t, consumer.Consume(context.Background()))

	publisher := NewPublisherService("embed-test", pubSub)
	payload, err := json.Marshal(dto.PublishEmbedDocumentMessage{DocumentId: doc.Id})
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(context.Background(), payload))

	require.Eventually(t, func() bool {
		embRepo.mu.Lock()
		defer embRepo.mu.Unlock()
		return len(embRepo.stored) > 0
	}, 2*time.Second, 10*time.Millisecond, "consumer should store embeddings")

	embRepo.mu.Lock()
	defer embRepo.mu.Unlock()
	assert.Contains(t, embRepo.deleted, doc.Id, "old chunks are cleared before re-embedding")
	for i, e := range embRepo.stored {
		assert.Equal(t, doc.Id, e.DocumentId)
		assert.Equal(t, i, e.ChunkIndex)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, e.EmbeddingValue)
	}
}
