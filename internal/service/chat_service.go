package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"koios-rag-be/internal/dto"
	"koios-rag-be/internal/pkg/crypto"
	"koios-rag-be/internal/pkg/logger"
	"koios-rag-be/pkg/agent"
	"koios-rag-be/pkg/llm"
	"koios-rag-be/pkg/toon"

	gocache "github.com/patrickmn/go-cache"
)

// ErrHistoryStore marks answers that were generated but could not be
// persisted. Callers still get the answer; the error tells them the next
// turn will not remember this one.
var ErrHistoryStore = errors.New("failed to persist chat history")

const modelsCacheKey = "available_models"

// IChatService runs the question-answering workflow and keeps the per-user
// conversation window in sync.
type IChatService interface {
	Query(ctx context.Context, userId string, request *dto.QueryRequest) (*dto.QueryResponse, error)
	// QueryStateless answers without loading or persisting any history.
	QueryStateless(ctx context.Context, userId string, request *dto.QueryRequest) (*dto.QueryResponse, error)
	Analyze(ctx context.Context, userId string, request *dto.AnalyzeRequest) (*dto.AnalyzeResponse, error)
	GetHistory(ctx context.Context, userId string) (*dto.HistoryResponse, error)
	ClearHistory(ctx context.Context, userId string) (*dto.ClearHistoryResponse, error)
	ListModels(ctx context.Context) (*dto.ModelsResponse, error)
}

type chatService struct {
	historyService       IChatHistoryService
	builder              *agent.WorkflowBuilder
	llmProvider          llm.LLMProvider
	cipher               *crypto.Cipher // nil when encryption is disabled
	modelsCache          *gocache.Cache
	defaultModel         string
	defaultTemperature   float64
	enableInternetSearch bool
	logger               logger.ILogger
	llmLogger            *log.Logger
}

func NewChatService(
	historyService IChatHistoryService,
	builder *agent.WorkflowBuilder,
	llmProvider llm.LLMProvider,
	cipher *crypto.Cipher,
	defaultModel string,
	defaultTemperature float64,
	enableInternetSearch bool,
	sysLogger logger.ILogger,
) IChatService {
	return &chatService{
		historyService:       historyService,
		builder:              builder,
		llmProvider:          llmProvider,
		cipher:               cipher,
		modelsCache:          gocache.New(5*time.Minute, 10*time.Minute),
		defaultModel:         defaultModel,
		defaultTemperature:   defaultTemperature,
		enableInternetSearch: enableInternetSearch,
		logger:               sysLogger,
		llmLogger:            initLLMLogger(),
	}
}

func initLLMLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_workflow.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[LLM] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

func (s *chatService) effectiveModel(requested string) string {
	if requested != "" {
		return requested
	}
	return s.defaultModel
}

func (s *chatService) effectiveTemperature(requested *float64) float64 {
	if requested != nil {
		return *requested
	}
	return s.defaultTemperature
}

func (s *chatService) effectiveInternetSearch(requested *bool) bool {
	if requested != nil {
		return *requested
	}
	return s.enableInternetSearch
}

func (s *chatService) Query(ctx context.Context, userId string, request *dto.QueryRequest) (*dto.QueryResponse, error) {
	question := request.Question
	if request.Encrypted {
		if s.cipher == nil {
			return nil, fmt.Errorf("encryption requested but no encryption key configured")
		}
		decrypted, err := s.cipher.Decrypt(question)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt question: %w", err)
		}
		question = decrypted
	}

	history, err := s.historyService.GetHistory(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	workflow := s.builder.Build(agent.WorkflowConfig{
		Model:                request.Model,
		Temperature:          s.effectiveTemperature(request.Temperature),
		EnableInternetSearch: s.effectiveInternetSearch(request.EnableInternetSearch),
	})

	state, err := workflow.Run(ctx, &agent.GraphState{
		Question: question,
		History:  history,
	})
	if err != nil {
		return nil, err
	}

	answer := state.Generation
	if request.Encrypted {
		encrypted, err := s.cipher.Encrypt(answer)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt answer: %w", err)
		}
		answer = encrypted
	}

	// Clients get the full updated transcript back. On the encrypted
	// path the transcript is withheld; it would expose plaintext turns.
	var transcript []dto.ChatTurn
	if !request.Encrypted {
		transcript = make([]dto.ChatTurn, 0, len(history)+2)
		for _, m := range history {
			transcript = append(transcript, dto.ChatTurn{Role: m.Role, Content: m.Content})
		}
		transcript = append(transcript,
			dto.ChatTurn{Role: llm.RoleUser, Content: question},
			dto.ChatTurn{Role: llm.RoleAssistant, Content: state.Generation},
		)
	}

	response := &dto.QueryResponse{
		Question:  request.Question,
		UserId:    userId,
		Answer:    answer,
		Model:     s.effectiveModel(request.Model),
		History:   transcript,
		Encrypted: request.Encrypted,
	}

	// The lock covers only the store write. Holding it across the workflow
	// would park a user's second request behind the first one's provider
	// calls; eviction stays safe because the pair lands in one locked append.
	storeErr := s.historyService.WithUserLock(userId, func() error {
		return s.historyService.AppendExchange(ctx, userId, question, state.Generation)
	})
	if storeErr != nil {
		s.llmLogger.Printf("[ERROR] History store failed for user %s: %v", userId, storeErr)
		s.logger.Error("chat", "history store failed", map[string]interface{}{
			"user_id": userId,
			"error":   storeErr.Error(),
		})
		// The answer still goes out.
		return response, fmt.Errorf("%w: %v", ErrHistoryStore, storeErr)
	}
	return response, nil
}

func (s *chatService) QueryStateless(ctx context.Context, userId string, request *dto.QueryRequest) (*dto.QueryResponse, error) {
	workflow := s.builder.Build(agent.WorkflowConfig{
		Model:                request.Model,
		Temperature:          s.effectiveTemperature(request.Temperature),
		EnableInternetSearch: s.effectiveInternetSearch(request.EnableInternetSearch),
	})

	state, err := workflow.Run(ctx, &agent.GraphState{Question: request.Question})
	if err != nil {
		return nil, err
	}

	return &dto.QueryResponse{
		Question: request.Question,
		UserId:   userId,
		Answer:   state.Generation,
		Model:    s.effectiveModel(request.Model),
		History:  []dto.ChatTurn{},
	}, nil
}

// Analyze packs the supplied detail records into the prompt context and
// generates directly; no routing, no history, no web search.
func (s *chatService) Analyze(ctx context.Context, userId string, request *dto.AnalyzeRequest) (*dto.AnalyzeResponse, error) {
	detailsContext := ""
	if len(request.Details) > 0 {
		detailsContext = toon.Dumps(map[string]any{"details": request.Details})
	}

	generator := s.builder.BuildGenerator(agent.WorkflowConfig{
		Model:       request.Model,
		Temperature: s.effectiveTemperature(request.Temperature),
	})

	generation, err := generator.Generate(ctx, &agent.GraphState{
		Question: request.Prompt,
		Context:  detailsContext,
	})
	if err != nil {
		return nil, err
	}

	return &dto.AnalyzeResponse{
		Prompt: request.Prompt,
		UserId: userId,
		Answer: generation,
		Model:  s.effectiveModel(request.Model),
	}, nil
}

func (s *chatService) GetHistory(ctx context.Context, userId string) (*dto.HistoryResponse, error) {
	messages, err := s.historyService.GetMessages(ctx, userId)
	if err != nil {
		return nil, err
	}

	out := make([]dto.HistoryMessage, len(messages))
	for i, m := range messages {
		out[i] = dto.HistoryMessage{
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}
	return &dto.HistoryResponse{UserId: userId, Messages: out}, nil
}

func (s *chatService) ClearHistory(ctx context.Context, userId string) (*dto.ClearHistoryResponse, error) {
	var deleted int64
	err := s.historyService.WithUserLock(userId, func() error {
		var err error
		deleted, err = s.historyService.Clear(ctx, userId)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("chat", "history cleared", map[string]interface{}{
		"user_id": userId,
		"deleted": deleted,
	})
	return &dto.ClearHistoryResponse{Deleted: deleted}, nil
}

func (s *chatService) ListModels(ctx context.Context) (*dto.ModelsResponse, error) {
	if cached, found := s.modelsCache.Get(modelsCacheKey); found {
		return &dto.ModelsResponse{Models: cached.([]string)}, nil
	}

	lister, ok := s.llmProvider.(llm.ModelLister)
	if !ok {
		return &dto.ModelsResponse{Models: []string{s.defaultModel}}, nil
	}

	models, err := lister.ListModels(ctx)
	if err != nil {
		s.logger.Warn("chat", "model listing failed, using default", map[string]interface{}{
			"error": err.Error(),
		})
		return &dto.ModelsResponse{Models: []string{s.defaultModel}}, nil
	}
	if len(models) == 0 {
		models = []string{s.defaultModel}
	}

	s.modelsCache.Set(modelsCacheKey, models, gocache.DefaultExpiration)
	return &dto.ModelsResponse{Models: models}, nil
}
