package mapper

import (
	"koios-rag-be/internal/entity"
	"koios-rag-be/internal/model"
)

type ChatMessageMapper struct{}

func NewChatMessageMapper() *ChatMessageMapper {
	return &ChatMessageMapper{}
}

func (m *ChatMessageMapper) ToEntity(e *model.ChatMessage) *entity.ChatMessage {
	if e == nil {
		return nil
	}

	return &entity.ChatMessage{
		Id:        e.Id,
		UserId:    e.UserId,
		Role:      e.Role,
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
	}
}

func (m *ChatMessageMapper) ToModel(e *entity.ChatMessage) *model.ChatMessage {
	if e == nil {
		return nil
	}

	return &model.ChatMessage{
		Id:        e.Id,
		UserId:    e.UserId,
		Role:      e.Role,
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
	}
}

func (m *ChatMessageMapper) ToEntities(messages []*model.ChatMessage) []*entity.ChatMessage {
	entities := make([]*entity.ChatMessage, len(messages))
	for i, e := range messages {
		entities[i] = m.ToEntity(e)
	}
	return entities
}

func (m *ChatMessageMapper) ToModels(messages []*entity.ChatMessage) []*model.ChatMessage {
	models := make([]*model.ChatMessage, len(messages))
	for i, e := range messages {
		models[i] = m.ToModel(e)
	}
	return models
}
