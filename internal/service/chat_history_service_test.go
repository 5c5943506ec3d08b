package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"koios-rag-be/internal/entity"
	"koios-rag-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHistoryRepo keeps messages in memory with the same sliding-window
// semantics as the real repository.
type fakeHistoryRepo struct {
	mu       sync.Mutex
	messages map[string][]*entity.ChatMessage
	nextId   uint
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{messages: make(map[string][]*entity.ChatMessage)}
}

func (f *fakeHistoryRepo) GetHistory(ctx context.Context, userId string, limit int) ([]*entity.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[userId]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*entity.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *fakeHistoryRepo) AppendTurns(ctx context.Context, userId string, turns []*entity.ChatMessage, maxMessages int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range turns {
		f.nextId++
		t.Id = f.nextId
		t.UserId = userId
		f.messages[userId] = append(f.messages[userId], t)
	}
	if maxMessages > 0 && len(f.messages[userId]) > maxMessages {
		f.messages[userId] = f.messages[userId][len(f.messages[userId])-maxMessages:]
	}
	return nil
}

func (f *fakeHistoryRepo) ClearByUserID(ctx context.Context, userId string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.messages[userId]))
	delete(f.messages, userId)
	return n, nil
}

func (f *fakeHistoryRepo) CountByUserID(ctx context.Context, userId string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.messages[userId])), nil
}

func TestAppendExchangeStoresBothTurns(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := NewChatHistoryService(repo, 500)
	ctx := context.Background()

	require.NoError(t, svc.AppendExchange(ctx, "alice", "hi", "hello"))

	history, err := svc.GetHistory(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "hi"}, history[0])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "hello"}, history[1])
}

func TestHistoryIsPerUser(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := NewChatHistoryService(repo, 500)
	ctx := context.Background()

	require.NoError(t, svc.AppendExchange(ctx, "alice", "q1", "a1"))
	require.NoError(t, svc.AppendExchange(ctx, "bob", "q2", "a2"))

	aliceHistory, err := svc.GetHistory(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, aliceHistory, 2)
	assert.Equal(t, "q1", aliceHistory[0].Content)

	deleted, err := svc.Clear(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	bobHistory, err := svc.GetHistory(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, bobHistory, 2)
}

func TestWithUserLockSerializesSameUser(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := NewChatHistoryService(repo, 500)

	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.WithUserLock("alice", func() error {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive, "same-user sections must not overlap")
}

func TestWithUserLockAllowsDifferentUsersConcurrently(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := NewChatHistoryService(repo, 500)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go svc.WithUserLock("alice", func() error {
		close(started)
		<-release
		return nil
	})

	<-started
	go func() {
		svc.WithUserLock("bob", func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bob was blocked by alice's lock")
	}
	close(release)
}
