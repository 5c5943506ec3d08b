package service

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"koios-rag-be/internal/dto"
	"koios-rag-be/internal/pkg/crypto"
	"koios-rag-be/pkg/agent"
	"koios-rag-be/pkg/llm"
	"koios-rag-be/pkg/retrieval"
	"koios-rag-be/pkg/websearch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// scriptedLLM returns canned responses in order: router first, generator
// after.
type scriptedLLM struct {
	mu           sync.Mutex
	responses    []string
	calls        int
	lastMessages []llm.Message
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMessages = history
	if s.calls >= len(s.responses) {
		return "", errors.New("no scripted response left")
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

type noopRetriever struct{}

func (noopRetriever) Retrieve(ctx context.Context, query string, k int) ([]retrieval.Passage, error) {
	return nil, nil
}

type noopSearch struct{}

func (noopSearch) Search(ctx context.Context, query string, maxResults int) ([]websearch.Result, error) {
	return nil, errors.New("unavailable")
}

type noopSummary struct{}

func (noopSummary) Summarize(ctx context.Context, query string) (string, error) {
	return "", errors.New("unavailable")
}

type noopILogger struct{}

func (noopILogger) Debug(module, message string, details map[string]interface{}) {}

func (noopILogger) Info(module, message string, details map[string]interface{}) {}

func (noopILogger) Warn(module, message string, details map[string]interface{}) {}

func (noopILogger) Error(module, message string, details map[string]interface{}) {}

func (noopILogger) Sync() error { return nil }

// failingStoreHistoryService answers history reads but refuses writes.
type failingStoreHistoryService struct {
	IChatHistoryService
	storeErr error
}

func (f *failingStoreHistoryService) AppendExchange(ctx context.Context, userId, question, answer string) error {
	return f.storeErr
}

func newTestBuilder(responses ...string) *agent.WorkflowBuilder {
	provider := &scriptedLLM{responses: responses}
	return agent.NewWorkflowBuilder(
		provider,
		noopRetriever{},
		noopSearch{},
		noopSummary{},
		rate.NewLimiter(rate.Inf, 1),
		testDiscardLogger(),
	)
}

func TestQueryAppendsExchange(t *testing.T) {
	repo := newFakeHistoryRepo()
	historyService := NewChatHistoryService(repo, 500)
	builder := newTestBuilder(`{"decision": "generate"}`, "the answer")

	svc := NewChatService(historyService, builder, &scriptedLLM{}, nil, "test-model", 0.2, false, noopILogger{})

	res, err := svc.Query(context.Background(), "alice", &dto.QueryRequest{Question: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "the answer", res.Answer)
	assert.Equal(t, "alice", res.UserId)
	assert.Equal(t, "test-model", res.Model)
	require.Len(t, res.History, 2, "response carries the updated transcript")
	assert.Equal(t, dto.ChatTurn{Role: llm.RoleUser, Content: "hello"}, res.History[0])
	assert.Equal(t, dto.ChatTurn{Role: llm.RoleAssistant, Content: "the answer"}, res.History[1])

	history, err := historyService.GetMessages(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "the answer", history[1].Content)
}

func TestQueryReturnsAnswerOnStoreFailure(t *testing.T) {
	repo := newFakeHistoryRepo()
	inner := NewChatHistoryService(repo, 500)
	historyService := &failingStoreHistoryService{
		IChatHistoryService: inner,
		storeErr:            errors.New("disk full"),
	}
	builder := newTestBuilder(`{"decision": "generate"}`, "still an answer")

	svc := NewChatService(historyService, builder, &scriptedLLM{}, nil, "test-model", 0.2, false, noopILogger{})

	res, err := svc.Query(context.Background(), "alice", &dto.QueryRequest{Question: "hello"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHistoryStore), "store failure must be distinguishable")
	require.NotNil(t, res, "the generated answer must survive a store failure")
	assert.Equal(t, "still an answer", res.Answer)
}

func TestQueryEncryptedRoundTrip(t *testing.T) {
	key := "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	cipher, err := crypto.NewCipher(key)
	require.NoError(t, err)

	repo := newFakeHistoryRepo()
	historyService := NewChatHistoryService(repo, 500)
	builder := newTestBuilder(`{"decision": "generate"}`, "secret answer")

	svc := NewChatService(historyService, builder, &scriptedLLM{}, cipher, "test-model", 0.2, false, noopILogger{})

	encryptedQuestion, err := cipher.Encrypt("what is the secret?")
	require.NoError(t, err)

	res, err := svc.Query(context.Background(), "alice", &dto.QueryRequest{
		Question:  encryptedQuestion,
		Encrypted: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Encrypted)

	decrypted, err := cipher.Decrypt(res.Answer)
	require.NoError(t, err)
	assert.Equal(t, "secret answer", decrypted)

	// History stores plaintext so future turns can use it as context
	history, err := historyService.GetMessages(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "what is the secret?", history[0].Content)
	assert.Equal(t, "secret answer", history[1].Content)
}

func TestQueryRejectsEncryptedWithoutKey(t *testing.T) {
	repo := newFakeHistoryRepo()
	historyService := NewChatHistoryService(repo, 500)
	builder := newTestBuilder(`{"decision": "generate"}`, "answer")

	svc := NewChatService(historyService, builder, &scriptedLLM{}, nil, "test-model", 0.2, false, noopILogger{})

	_, err := svc.Query(context.Background(), "alice", &dto.QueryRequest{
		Question:  "whatever",
		Encrypted: true,
	})
	assert.Error(t, err)
}

func TestAnalyzeInjectsDetailsAsContext(t *testing.T) {
	repo := newFakeHistoryRepo()
	historyService := NewChatHistoryService(repo, 500)

	// Analyze skips routing, so the single scripted response is the answer.
	provider := &scriptedLLM{responses: []string{"analysis result"}}
	builder := agent.NewWorkflowBuilder(
		provider,
		noopRetriever{},
		noopSearch{},
		noopSummary{},
		rate.NewLimiter(rate.Inf, 1),
		testDiscardLogger(),
	)
	svc := NewChatService(historyService, builder, provider, nil, "test-model", 0.2, false, noopILogger{})

	res, err := svc.Analyze(context.Background(), "alice", &dto.AnalyzeRequest{
		Prompt: "summarize these metrics",
		Details: []map[string]interface{}{
			{"metric": "latency", "value": 120},
			{"metric": "errors", "value": 3},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "analysis result", res.Answer)
	assert.Equal(t, "alice", res.UserId)
	assert.Equal(t, "test-model", res.Model)

	require.NotEmpty(t, provider.lastMessages)
	systemPrompt := provider.lastMessages[0].Content
	assert.Contains(t, systemPrompt, "details[2]{", "details must be TOON-packed into the context")
	assert.Contains(t, systemPrompt, "latency")

	history, err := historyService.GetMessages(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, history, "analyze is stateless")
}

func TestQueryStatelessDoesNotPersist(t *testing.T) {
	repo := newFakeHistoryRepo()
	historyService := NewChatHistoryService(repo, 500)
	builder := newTestBuilder(`{"decision": "generate"}`, "one-shot answer")

	svc := NewChatService(historyService, builder, &scriptedLLM{}, nil, "test-model", 0.2, false, noopILogger{})

	res, err := svc.QueryStateless(context.Background(), "alice", &dto.QueryRequest{Question: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "one-shot answer", res.Answer)
	assert.Empty(t, res.History)

	history, err := historyService.GetMessages(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestQuerySecondTurnSeesFirstTurn(t *testing.T) {
	repo := newFakeHistoryRepo()
	historyService := NewChatHistoryService(repo, 500)

	// Two turns: router + generator each time
	provider := &scriptedLLM{responses: []string{
		`{"decision": "generate"}`, "first answer",
		`{"decision": "generate"}`, "second answer",
	}}
	builder := agent.NewWorkflowBuilder(
		provider,
		noopRetriever{},
		noopSearch{},
		noopSummary{},
		rate.NewLimiter(rate.Inf, 1),
		testDiscardLogger(),
	)
	svc := NewChatService(historyService, builder, provider, nil, "test-model", 0.2, false, noopILogger{})

	_, err := svc.Query(context.Background(), "alice", &dto.QueryRequest{Question: "first"})
	require.NoError(t, err)
	_, err = svc.Query(context.Background(), "alice", &dto.QueryRequest{Question: "second"})
	require.NoError(t, err)

	messages, err := historyService.GetMessages(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, []string{"first", "first answer", "second", "second answer"},
		[]string{messages[0].Content, messages[1].Content, messages[2].Content, messages[3].Content})
}

// failingListerLLM can never reach its model endpoint.
type failingListerLLM struct {
	scriptedLLM
}

func (f *failingListerLLM) ListModels(ctx context.Context) ([]string, error) {
	return nil, errors.New("upstream unreachable")
}

func TestListModelsFallsBackOnListerError(t *testing.T) {
	repo := newFakeHistoryRepo()
	historyService := NewChatHistoryService(repo, 500)
	builder := newTestBuilder()

	svc := NewChatService(historyService, builder, &failingListerLLM{}, nil, "test-model", 0.2, false, noopILogger{})

	res, err := svc.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"test-model"}, res.Models)
}

// gateLLM answers the routing call immediately and parks the generation
// call until the gate opens.
type gateLLM struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	gate    chan struct{}
}

func (g *gateLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	g.mu.Unlock()
	if call == 1 {
		return `{"decision": "generate"}`, nil
	}
	close(g.entered)
	<-g.gate
	return "slow answer", nil
}

func (g *gateLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return g.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

func TestQueryReleasesUserLockDuringGeneration(t *testing.T) {
	repo := newFakeHistoryRepo()
	historyService := NewChatHistoryService(repo, 500)

	provider := &gateLLM{entered: make(chan struct{}), gate: make(chan struct{})}
	builder := agent.NewWorkflowBuilder(
		provider,
		noopRetriever{},
		noopSearch{},
		noopSummary{},
		rate.NewLimiter(rate.Inf, 1),
		testDiscardLogger(),
	)
	svc := NewChatService(historyService, builder, provider, nil, "test-model", 0.2, false, noopILogger{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Query(context.Background(), "alice", &dto.QueryRequest{Question: "slow question"})
		done <- err
	}()

	<-provider.entered

	// The user lock must be free while the provider call is in flight.
	acquired := make(chan struct{})
	go func() {
		historyService.WithUserLock("alice", func() error { return nil })
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("user lock held across the provider call")
	}

	close(provider.gate)
	require.NoError(t, <-done)

	messages, err := historyService.GetMessages(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "slow answer", messages[1].Content)
}

func testDiscardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
