package contract

import (
	"context"

	"koios-rag-be/internal/entity"
)

type ChatHistoryRepository interface {
	// GetHistory returns up to limit messages for the user in chronological
	// order (oldest first). limit <= 0 means no limit.
	GetHistory(ctx context.Context, userId string, limit int) ([]*entity.ChatMessage, error)
	// AppendTurns inserts the given messages and evicts the oldest rows so the
	// user keeps at most maxMessages messages. Eviction and insertion run in a
	// single transaction.
	AppendTurns(ctx context.Context, userId string, turns []*entity.ChatMessage, maxMessages int) error
	// ClearByUserID hard-deletes all messages for the user and returns how
	// many rows were removed.
	ClearByUserID(ctx context.Context, userId string) (int64, error)
	CountByUserID(ctx context.Context, userId string) (int64, error)
}
