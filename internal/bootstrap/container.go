package bootstrap

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"ai-studymate-be/internal/config"
	"ai-studymate-be/internal/controller"
	"ai-studymate-be/internal/pkg/logger"
	"ai-studymate-be/internal/repository/cache"
	"ai-studymate-be/internal/repository/implementation"
	"ai-studymate-be/internal/repository/memory"
	"ai-studymate-be/internal/repository/unitofwork"
	"ai-studymate-be/internal/search"
	"ai-studymate-be/internal/service"
	"ai-studymate-be/internal/websocket"
	"ai-studymate-be/pkg/embedding"
	"ai-studymate-be/pkg/llm"
	"ai-studymate-be/pkg/llm/factory"
	"ai-studymate-be/pkg/rag/domain"
	"ai-studymate-be/pkg/rag/retrieval"

	pktNats "ai-studymate-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// WebSockets
	TurnHandler *websocket.TurnHandler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	// 3. AI Providers
	embeddingProvider := embedding.NewOllamaProvider(
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OllamaEmbeddingModel,
	)
	log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaEmbeddingModel)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Retrieval
	chunkRepo := implementation.NewDocumentChunkRepository(db)
	vectorProvider := search.NewVectorProvider(embeddingProvider, chunkRepo)
	keywordProvider := search.NewKeywordProvider(chunkRepo)

	retrievalConfig := retrieval.Config{
		VectorWeight:    cfg.Rag.VectorWeight,
		KeywordWeight:   cfg.Rag.KeywordWeight,
		ProviderTimeout: time.Duration(cfg.Rag.ProviderTimeoutMs) * time.Millisecond,
		RetryBackoff:    time.Duration(cfg.Rag.RetryBackoffMs) * time.Millisecond,
		PreviewLength:   cfg.Rag.PreviewLength,
		DefaultK:        cfg.Rag.DefaultTopK,
	}
	retriever := retrieval.NewHybridRetriever(
		vectorProvider,
		keywordProvider,
		retrievalConfig,
		newRetrievalLogger(),
	)
	registry := domain.NewRegistry()

	// 5. Session & Memory Storage
	stateRepo := memory.NewSessionStateRepository()
	sessionCache := cache.NewSessionCacheRepository(rdb)

	// 6. Services
	publisherService := service.NewPublisherService(pubSub, cfg.Topics.TurnPersisted)
	consumerService := service.NewConsumerService(pubSub, cfg.Topics.TurnPersisted, natsPub)

	sessionService := service.NewSessionService(uowFactory, stateRepo, sessionCache)
	memoryService := service.NewMemoryService(uowFactory)

	// Analytics worker (NATS -> usage log)
	if natsSub != nil {
		analyticsLogger := logger.NewIsolatedLogger("logs/analytics.log")
		analyticsService := service.NewAnalyticsService(natsSub, analyticsLogger)
		if err := analyticsService.Start(); err != nil {
			log.Printf("[WARN] Failed to start analytics worker: %v", err)
		}
	}

	chatService := service.NewChatService(
		uowFactory,
		sessionService,
		memoryService,
		publisherService,
		llmProvider,
		retriever,
		registry,
		retrievalConfig,
		llm.DefaultRetryConfig(),
	)

	// 7. Controllers
	return &Container{
		ChatController:  controller.NewChatController(chatService),
		TurnHandler:     websocket.NewTurnHandler(chatService, sysLogger),
		ConsumerService: consumerService,
	}
}

// newRetrievalLogger writes fusion diagnostics to a dedicated file so the
// scoring breakdowns do not drown the main application log.
func newRetrievalLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "retrieval.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[RETRIEVAL] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
