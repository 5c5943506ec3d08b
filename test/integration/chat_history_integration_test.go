package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"koios-rag-be/internal/entity"
	"koios-rag-be/internal/model"
	"koios-rag-be/internal/repository/implementation"
	"koios-rag-be/pkg/database"
	"koios-rag-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatHistorySlidingWindow(t *testing.T) {
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&model.ChatMessage{}))

	repo := implementation.NewChatHistoryRepository(gormDB)
	ctx := context.Background()
	userId := "it-" + uuid.NewString()

	t.Cleanup(func() {
		repo.ClearByUserID(ctx, userId)
	})

	appendPair := func(n int) {
		now := time.Now()
		turns := []*entity.ChatMessage{
			{Role: llm.RoleUser, Content: fmt.Sprintf("question %d", n), CreatedAt: now},
			{Role: llm.RoleAssistant, Content: fmt.Sprintf("answer %d", n), CreatedAt: now},
		}
		require.NoError(t, repo.AppendTurns(ctx, userId, turns, 6))
	}

	// Fill to the cap (3 pairs, cap 6)
	for i := 1; i <= 3; i++ {
		appendPair(i)
	}

	count, err := repo.CountByUserID(ctx, userId)
	require.NoError(t, err)
	assert.EqualValues(t, 6, count)

	// One more pair evicts the oldest pair
	appendPair(4)

	count, err = repo.CountByUserID(ctx, userId)
	require.NoError(t, err)
	assert.EqualValues(t, 6, count)

	messages, err := repo.GetHistory(ctx, userId, 0)
	require.NoError(t, err)
	require.Len(t, messages, 6)
	assert.Equal(t, "question 2", messages[0].Content, "pair 1 should have been evicted first")
	assert.Equal(t, "answer 4", messages[len(messages)-1].Content)

	// Chronological order, user before assistant inside a pair
	for i := 0; i < len(messages)-1; i++ {
		assert.False(t, messages[i].CreatedAt.After(messages[i+1].CreatedAt))
	}

	// Clear reports the removed rows and is idempotent
	deleted, err := repo.ClearByUserID(ctx, userId)
	require.NoError(t, err)
	assert.EqualValues(t, 6, deleted)

	deleted, err = repo.ClearByUserID(ctx, userId)
	require.NoError(t, err)
	assert.EqualValues(t, 0, deleted)
}
