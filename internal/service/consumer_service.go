package service

import (
	"context"
	"encoding/json"
	"log"

	"koios-rag-be/internal/dto"
	"koios-rag-be/internal/entity"
	"koios-rag-be/internal/repository/contract"
	"koios-rag-be/internal/repository/specification"
	"koios-rag-be/pkg/embedding"
	"koios-rag-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	documentRepo      contract.DocumentRepository
	embeddingRepo     contract.DocumentEmbeddingRepository
	embeddingProvider embedding.EmbeddingProvider
	chunkSize         int
	chunkOverlap      int
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	documentRepo contract.DocumentRepository,
	embeddingRepo contract.DocumentEmbeddingRepository,
	embeddingProvider embedding.EmbeddingProvider,
	chunkSize int,
	chunkOverlap int,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		documentRepo:      documentRepo,
		embeddingRepo:     embeddingRepo,
		embeddingProvider: embeddingProvider,
		chunkSize:         chunkSize,
		chunkOverlap:      chunkOverlap,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Processing embedding for DocumentId: %s", payload.DocumentId)

	document, err := cs.documentRepo.FindOne(ctx, specification.ByID{ID: payload.DocumentId})
	if err != nil {
		log.Printf("[ERROR] Failed to get document %s: %v", payload.DocumentId, err)
		msg.Nack() // Nack for retriable errors
		return
	}
	if document == nil {
		log.Printf("[ERROR] Document not found: %s", payload.DocumentId)
		msg.Ack() // Document deleted? Ack.
		return
	}

	// Re-embedding replaces the old chunks.
	if err := cs.embeddingRepo.DeleteByDocumentId(ctx, document.Id); err != nil {
		log.Printf("[ERROR] Failed to clear old embeddings for %s: %v", document.Id, err)
		msg.Nack()
		return
	}

	chunks := utils.SplitText(document.Content, cs.chunkSize, cs.chunkOverlap)
	embeddings := make([]*entity.DocumentEmbedding, 0, len(chunks))
	for i, chunk := range chunks {
		resp, err := cs.embeddingProvider.Generate(ctx, chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			log.Printf("[ERROR] Failed to embed chunk %d of document %s: %v", i, document.Id, err)
			msg.Nack()
			return
		}
		embeddings = append(embeddings, &entity.DocumentEmbedding{
			Chunk:          chunk,
			EmbeddingValue: resp.Embedding.Values,
			DocumentId:     document.Id,
			ChunkIndex:     i,
		})
	}

	if err := cs.embeddingRepo.CreateBulk(ctx, embeddings); err != nil {
		log.Printf("[ERROR] Failed to store embeddings for %s: %v", document.Id, err)
		msg.Nack()
		return
	}

	log.Printf("[INFO] Stored %d embeddings for document %s", len(embeddings), document.Id)
	msg.Ack()
}
