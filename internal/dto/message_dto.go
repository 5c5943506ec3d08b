package dto

import "github.com/google/uuid"

// PublishEmbedDocumentMessage is the payload of the embed-document topic.
type PublishEmbedDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
}
