package service

import (
	"context"
	"sync"
	"time"

	"koios-rag-be/internal/entity"
	"koios-rag-be/internal/repository/contract"
	"koios-rag-be/pkg/llm"
)

// IChatHistoryService owns the persistent per-user conversation window.
type IChatHistoryService interface {
	// WithUserLock serializes history writes for one user so concurrent
	// appends never both skip eviction; different users do not block each
	// other. Callers must not hold it across provider calls.
	WithUserLock(userId string, fn func() error) error
	GetHistory(ctx context.Context, userId string) ([]llm.Message, error)
	GetMessages(ctx context.Context, userId string) ([]*entity.ChatMessage, error)
	AppendExchange(ctx context.Context, userId, question, answer string) error
	Clear(ctx context.Context, userId string) (int64, error)
}

type chatHistoryService struct {
	historyRepo contract.ChatHistoryRepository
	maxMessages int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewChatHistoryService(historyRepo contract.ChatHistoryRepository, maxMessages int) IChatHistoryService {
	return &chatHistoryService{
		historyRepo: historyRepo,
		maxMessages: maxMessages,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (s *chatHistoryService) userLock(userId string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userId]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userId] = lock
	}
	return lock
}

func (s *chatHistoryService) WithUserLock(userId string, fn func() error) error {
	lock := s.userLock(userId)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

func (s *chatHistoryService) GetHistory(ctx context.Context, userId string) ([]llm.Message, error) {
	messages, err := s.historyRepo.GetHistory(ctx, userId, s.maxMessages)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, len(messages))
	for i, m := range messages {
		history[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return history, nil
}

func (s *chatHistoryService) GetMessages(ctx context.Context, userId string) ([]*entity.ChatMessage, error) {
	return s.historyRepo.GetHistory(ctx, userId, s.maxMessages)
}

func (s *chatHistoryService) AppendExchange(ctx context.Context, userId, question, answer string) error {
	now := time.Now()
	turns := []*entity.ChatMessage{
		{UserId: userId, Role: llm.RoleUser, Content: question, CreatedAt: now},
		{UserId: userId, Role: llm.RoleAssistant, Content: answer, CreatedAt: now},
	}
	return s.historyRepo.AppendTurns(ctx, userId, turns, s.maxMessages)
}

func (s *chatHistoryService) Clear(ctx context.Context, userId string) (int64, error) {
	return s.historyRepo.ClearByUserID(ctx, userId)
}
