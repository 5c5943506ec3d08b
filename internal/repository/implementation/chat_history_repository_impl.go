package implementation

import (
	"context"

	"koios-rag-be/internal/entity"
	"koios-rag-be/internal/mapper"
	"koios-rag-be/internal/model"
	"koios-rag-be/internal/repository/contract"

	"gorm.io/gorm"
)

type ChatHistoryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMessageMapper
}

func NewChatHistoryRepository(db *gorm.DB) contract.ChatHistoryRepository {
	return &ChatHistoryRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMessageMapper(),
	}
}

func (r *ChatHistoryRepositoryImpl) GetHistory(ctx context.Context, userId string, limit int) ([]*entity.ChatMessage, error) {
	var models []*model.ChatMessage

	query := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		// Keep the most recent messages, but still return them oldest first.
		subQuery := r.db.Model(&model.ChatMessage{}).
			Select("id").
			Where("user_id = ?", userId).
			Order("created_at DESC, id DESC").
			Limit(limit)
		query = r.db.WithContext(ctx).
			Where("id IN (?)", subQuery).
			Order("created_at ASC, id ASC")
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ChatHistoryRepositoryImpl) AppendTurns(ctx context.Context, userId string, turns []*entity.ChatMessage, maxMessages int) error {
	if len(turns) == 0 {
		return nil
	}

	models := make([]*model.ChatMessage, len(turns))
	for i, t := range turns {
		m := r.mapper.ToModel(t)
		m.UserId = userId
		models[i] = m
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if maxMessages > 0 {
			var count int64
			if err := tx.Model(&model.ChatMessage{}).
				Where("user_id = ?", userId).
				Count(&count).Error; err != nil {
				return err
			}

			overflow := count + int64(len(models)) - int64(maxMessages)
			if overflow > 0 {
				// Oldest rows go first; id breaks created_at ties.
				subQuery := tx.Model(&model.ChatMessage{}).
					Select("id").
					Where("user_id = ?", userId).
					Order("created_at ASC, id ASC").
					Limit(int(overflow))
				if err := tx.Where("id IN (?)", subQuery).
					Delete(&model.ChatMessage{}).Error; err != nil {
					return err
				}
			}
		}

		return tx.Create(models).Error
	})
	if err != nil {
		return err
	}

	for i, m := range models {
		*turns[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *ChatHistoryRepositoryImpl) ClearByUserID(ctx context.Context, userId string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Delete(&model.ChatMessage{})
	return result.RowsAffected, result.Error
}

func (r *ChatHistoryRepositoryImpl) CountByUserID(ctx context.Context, userId string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Where("user_id = ?", userId).
		Count(&count).Error
	return count, err
}

