package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"koios-rag-be/internal/dto"
	"koios-rag-be/internal/entity"
	"koios-rag-be/internal/repository/contract"
	"koios-rag-be/internal/repository/specification"

	"github.com/google/uuid"
)

// IDocumentService manages the retrievable document collection. Embedding is
// asynchronous: Create stores the document and publishes an embed job.
type IDocumentService interface {
	Create(ctx context.Context, request *dto.CreateDocumentRequest) (*dto.DocumentResponse, error)
	List(ctx context.Context) (*dto.DocumentListResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type documentService struct {
	documentRepo  contract.DocumentRepository
	embeddingRepo contract.DocumentEmbeddingRepository
	publisher     IPublisherService
}

func NewDocumentService(
	documentRepo contract.DocumentRepository,
	embeddingRepo contract.DocumentEmbeddingRepository,
	publisher IPublisherService,
) IDocumentService {
	return &documentService{
		documentRepo:  documentRepo,
		embeddingRepo: embeddingRepo,
		publisher:     publisher,
	}
}

func (s *documentService) Create(ctx context.Context, request *dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	document := &entity.Document{
		Id:      uuid.New(),
		Title:   request.Title,
		Source:  request.Source,
		Content: request.Content,
	}

	if err := s.documentRepo.Create(ctx, document); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	payload, err := json.Marshal(dto.PublishEmbedDocumentMessage{DocumentId: document.Id})
	if err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		// The document exists; embedding can be retried by re-publishing.
		log.Printf("[ERROR] Failed to publish embed job for document %s: %v", document.Id, err)
	}

	return &dto.DocumentResponse{
		Id:        document.Id,
		Title:     document.Title,
		Source:    document.Source,
		CreatedAt: document.CreatedAt,
	}, nil
}

func (s *documentService) List(ctx context.Context) (*dto.DocumentListResponse, error) {
	documents, err := s.documentRepo.FindAll(ctx, specification.OrderBy{Field: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}

	out := make([]dto.DocumentResponse, len(documents))
	for i, d := range documents {
		out[i] = dto.DocumentResponse{
			Id:        d.Id,
			Title:     d.Title,
			Source:    d.Source,
			CreatedAt: d.CreatedAt,
		}
	}
	return &dto.DocumentListResponse{Documents: out}, nil
}

func (s *documentService) Delete(ctx context.Context, id uuid.UUID) error {
	document, err := s.documentRepo.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if document == nil {
		return fmt.Errorf("document %s not found", id)
	}

	if err := s.embeddingRepo.DeleteByDocumentId(ctx, id); err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}
	return s.documentRepo.Delete(ctx, id)
}
