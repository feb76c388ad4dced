package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"docuchat/internal/config"
	"docuchat/internal/domain/repositories"
	"docuchat/internal/handler"
	"docuchat/internal/middleware"
	"docuchat/internal/ollama"
	"docuchat/internal/repository/memory"
	"docuchat/internal/repository/postgres"
	"docuchat/internal/service"
	"docuchat/internal/service/chunker"
	"docuchat/internal/service/jobs"
	"docuchat/internal/service/scope"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.OpenLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"ollama_url", cfg.OllamaBaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage: postgres when DATABASE_URL is set, in-memory otherwise
	var (
		docRepo   repositories.DocumentRepository
		convRepo  repositories.ConversationRepository
		msgRepo   repositories.MessageRepository
		jobRepo   repositories.JobRepository
		txManager repositories.TransactionManager
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.InitSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		logger.Info("database connected", "table_prefix", cfg.TablePrefix)

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: tables,
			Logger: logger,
		}
		docRepo = postgres.NewDocumentRepository(repoConfig)
		convRepo = postgres.NewConversationRepository(repoConfig)
		msgRepo = postgres.NewMessageRepository(repoConfig)
		jobRepo = postgres.NewJobRepository(repoConfig)
		txManager = postgres.NewTransactionManager(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		store := memory.NewStore()
		docRepo = store.Documents()
		convRepo = store.Conversations()
		msgRepo = store.Messages()
		jobRepo = store.Jobs()
		txManager = store.TxManager()
	}

	// Inference backend
	generator := ollama.NewClient(cfg.OllamaBaseURL, logger)

	// Scope validation
	validator, err := scope.NewValidator(logger)
	if err != nil {
		log.Fatalf("Failed to load scope markers: %v", err)
	}

	// Job queue
	registry := jobs.NewRegistry()
	queue := jobs.NewQueue(jobRepo, registry, cfg.WorkerCount, logger)

	// Services
	ch := chunker.New(chunker.DefaultWindow)
	docService := service.NewDocumentService(docRepo, txManager, ch, queue, logger)
	convService := service.NewConversationService(convRepo, msgRepo, docRepo, txManager, logger)
	streamService := service.NewStreamingService(msgRepo, generator, validator, logger)

	jobs.RegisterHandlers(registry, docService, docRepo, generator, logger)
	queue.Start(ctx)
	logger.Info("job queue started", "workers", cfg.WorkerCount, "types", registry.Types())

	// Handlers
	chatHandler := handler.NewChatHandler(convService, docService, streamService, logger)
	docHandler := handler.NewDocumentHandler(docService, queue, logger)
	jobHandler := handler.NewJobHandler(queue)
	modelsHandler := handler.NewModelsHandler(generator, logger)

	logger.Info("services initialized")

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.Health)

	// Chat routes
	mux.HandleFunc("POST /api/chat", chatHandler.Chat)
	mux.HandleFunc("POST /api/chat/multi", chatHandler.MultiChat)

	// Conversation routes
	mux.HandleFunc("GET /api/conversations/{documentId}", chatHandler.GetConversation)
	mux.HandleFunc("POST /api/conversations/multi", chatHandler.CreateMultiConversation)

	// Message routes
	mux.HandleFunc("GET /api/messages/{conversationId}", chatHandler.ListMessages)
	mux.HandleFunc("PUT /api/messages/{id}", chatHandler.EditMessage)
	mux.HandleFunc("DELETE /api/messages/{id}", chatHandler.DeleteMessage)
	mux.HandleFunc("POST /api/messages/{id}/rate", chatHandler.RateMessage)
	mux.HandleFunc("POST /api/messages/{id}/regenerate", chatHandler.Regenerate)

	// Document routes
	mux.HandleFunc("POST /api/documents", docHandler.Upload)
	mux.HandleFunc("GET /api/documents", docHandler.List)
	mux.HandleFunc("GET /api/documents/{id}", docHandler.Get)
	mux.HandleFunc("DELETE /api/documents/{id}", docHandler.Delete)
	mux.HandleFunc("POST /api/documents/{id}/versions", docHandler.CreateVersion)
	mux.HandleFunc("POST /api/documents/bulk-upload", docHandler.BulkUpload)

	// Job routes
	mux.HandleFunc("GET /api/jobs", jobHandler.List)
	mux.HandleFunc("GET /api/jobs/{id}", jobHandler.Get)

	// Model routes
	mux.HandleFunc("GET /api/models", modelsHandler.List)

	// Build middleware chain
	var httpHandler http.Handler = mux
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - must wrap everything to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Last-Event-ID"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("server stopped")
}
