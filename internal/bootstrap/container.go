package bootstrap

import (
	"log"
	"time"

	"koios-rag-be/internal/config"
	"koios-rag-be/internal/controller"
	"koios-rag-be/internal/pkg/crypto"
	"koios-rag-be/internal/pkg/logger"
	"koios-rag-be/internal/pkg/serverutils"
	"koios-rag-be/internal/repository/implementation"
	"koios-rag-be/internal/service"
	"koios-rag-be/pkg/agent"
	"koios-rag-be/pkg/embedding"
	"koios-rag-be/pkg/llm/factory"
	"koios-rag-be/pkg/retrieval"
	"koios-rag-be/pkg/websearch"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController     controller.IAuthController
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController

	// Middleware
	JwtMiddleware fiber.Handler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "openai" {
		embeddingProvider = embedding.NewOpenAIProvider(cfg.Ai.LLMBaseURL, cfg.Ai.LLMAPIKey, cfg.Ai.OllamaModel)
		log.Printf("[INFO] Using Embedding Provider: OPENAI (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		providerBaseURL(cfg),
		cfg.Ai.LLMAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Repositories
	historyRepo := implementation.NewChatHistoryRepository(db)
	documentRepo := implementation.NewDocumentRepository(db)
	embeddingRepo := implementation.NewDocumentEmbeddingRepository(db)

	// 5. Retrieval and web search
	retriever := retrieval.NewVectorRetriever(embeddingProvider, embeddingRepo).
		WithThreshold(cfg.Search.SimilarityThreshold)

	webPrimary := websearch.NewDuckDuckGoProvider()
	webFallback := websearch.NewWikipediaProvider()

	// One limiter for the whole process; every web search waits on it.
	interval := time.Duration(cfg.Search.MinIntervalMs) * time.Millisecond
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	builder := agent.NewWorkflowBuilder(
		llmProvider,
		retriever,
		webPrimary,
		webFallback,
		limiter,
		log.Default(),
	).WithTopK(cfg.Search.TopK)

	// 6. Encryption (optional)
	var cipher *crypto.Cipher
	if cfg.Auth.EncryptionKey != "" {
		cipher, err = crypto.NewCipher(cfg.Auth.EncryptionKey)
		if err != nil {
			log.Fatalf("[FATAL] Invalid ENCRYPTION_KEY: %v", err)
		}
	}

	// 7. Services
	historyService := service.NewChatHistoryService(historyRepo, cfg.App.MaxMessagesPerUser)
	chatService := service.NewChatService(
		historyService,
		builder,
		llmProvider,
		cipher,
		cfg.Ai.LLMModel,
		cfg.Ai.Temperature,
		cfg.Search.EnableInternetSearch,
		sysLogger,
	)
	authService := service.NewAuthService(
		cfg.Auth.JwtSecretKey,
		cfg.Auth.JwtIssuer,
		cfg.Auth.JwtExpiryHours,
		cfg.Auth.ApprovedUserIds,
		cfg.Auth.AuthorizedTokenIps,
	)

	publisherService := service.NewPublisherService(cfg.App.EmbedDocumentTopic, pubSub)
	documentService := service.NewDocumentService(documentRepo, embeddingRepo, publisherService)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.App.EmbedDocumentTopic,
		documentRepo,
		embeddingRepo,
		embeddingProvider,
		cfg.Search.ChunkSize,
		cfg.Search.ChunkOverlap,
	)

	return &Container{
		AuthController:     controller.NewAuthController(authService),
		ChatController:     controller.NewChatController(chatService),
		DocumentController: controller.NewDocumentController(documentService),
		JwtMiddleware:      serverutils.NewJwtMiddleware(cfg.Auth.JwtSecretKey, cfg.Auth.ApprovedUserIds),
		ConsumerService:    consumerService,
		Logger:             sysLogger,
	}
}

func providerBaseURL(cfg *config.Config) string {
	if cfg.Ai.LLMProvider == "ollama" {
		return cfg.Ai.OllamaBaseURL
	}
	return cfg.Ai.LLMBaseURL
}
