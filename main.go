package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/learnloop/assignment-engine/internal/cache"
	"github.com/learnloop/assignment-engine/internal/config"
	"github.com/learnloop/assignment-engine/internal/events"
	"github.com/learnloop/assignment-engine/internal/handlers"
	"github.com/learnloop/assignment-engine/internal/repositories"
	"github.com/learnloop/assignment-engine/internal/repositories/catalog"
	"github.com/learnloop/assignment-engine/internal/repositories/postgres"
	"github.com/learnloop/assignment-engine/internal/repositories/upstream"
	"github.com/learnloop/assignment-engine/internal/services"
	"github.com/learnloop/assignment-engine/internal/utils"
	"github.com/learnloop/assignment-engine/internal/validator"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize Redis (if configured); the engine runs cache-less without it
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: invalid REDIS_URL, continuing without cache: %v", err)
		} else {
			redisClient = redis.NewClient(opts)
		}
	}
	cacheHelper := cache.NewHelper(redisClient, "assignment:")

	// Initialize the local attempt journal (if configured)
	var journal repositories.AttemptJournal
	var journalStore *postgres.AttemptJournal
	if cfg.JournalDSN != "" {
		journalStore, err = postgres.Open(cfg.JournalDSN, slogLogger)
		if err != nil {
			log.Fatalf("Failed to initialize attempt journal: %v", err)
		}
		journal = journalStore
	}

	// Embedded fallback catalog
	fallbackCatalog, err := catalog.New(slogLogger)
	if err != nil {
		log.Fatalf("Failed to load fallback catalog: %v", err)
	}

	// Upstream platform API client (content, attempts, grading, progress)
	upstreamClient := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, slogLogger)

	// Attempt event publisher: Kafka when brokers are configured,
	// otherwise an in-memory recorder
	var publisher events.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err = events.NewKafkaEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, slogLogger)
		if err != nil {
			log.Fatalf("Failed to initialize event publisher: %v", err)
		}
	} else {
		slogLogger.Warn("no Kafka brokers configured, attempt events stay in memory")
		publisher = events.NewMockEventPublisher(slogLogger)
	}

	// Initialize validator
	v := validator.New()

	// Initialize services
	serviceManager, err := services.NewDefaultServiceManager(services.ManagerDeps{
		RemoteContent:   upstreamClient,
		FallbackContent: fallbackCatalog,
		Grading:         upstreamClient,
		Attempts:        upstreamClient,
		ProgressSink:    upstreamClient,
		Journal:         journal,
		Cache:           cacheHelper,
		Events:          publisher,
		Validator:       v,
		Logger:          slogLogger,
	})
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, logger, cfg.Casdoor)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := serviceManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown services: %v", err)
	}

	if journalStore != nil {
		if err := journalStore.Close(); err != nil {
			log.Printf("Failed to close attempt journal: %v", err)
		}
	}

	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}
