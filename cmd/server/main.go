package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/chatbot-web/internal/api"
	"github.com/dom/chatbot-web/internal/archive"
	"github.com/dom/chatbot-web/internal/completion"
	"github.com/dom/chatbot-web/internal/config"
	"github.com/dom/chatbot-web/internal/idempotency"
	"github.com/dom/chatbot-web/internal/repository"
	"github.com/dom/chatbot-web/internal/repository/mongodb"
	"github.com/dom/chatbot-web/internal/repository/postgres"
	"github.com/dom/chatbot-web/internal/service"
	"github.com/dom/chatbot-web/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// Initialize store
	repos, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect to %s store: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	// Idempotency keys for POST /chat/new
	idem := idempotency.NewNoopStore()
	if cfg.RedisEnabled() {
		rdb, err := idempotency.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		idem = idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL)
	}

	// Conversation archive
	archiver := archive.NewNoopArchiver()
	if cfg.ArchiveEnabled() {
		archiver, err = archive.NewMinioArchiver(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to initialize archive: %v", err)
		}
	}

	if cfg.OpenAIAPIKey == "" {
		log.Println("OPENAI_API_KEY is not set, completion calls will fail")
	}
	completer := completion.NewOpenAIClient(completion.OptionsFromConfig(cfg))

	// Initialize WebSocket hub
	hub := websocket.NewHub(repos.Chat)
	go hub.Run()

	// Initialize services
	services := service.NewServices(repos, completer, archiver, hub, cfg)

	// Initialize router
	router := api.NewRouter(services, hub, idem, cfg)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.CompletionTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s (store: %s)", cfg.Port, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR [main] server forced to shutdown: %v", err)
	}
	hub.Stop()

	log.Println("Server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (*repository.Repositories, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMongo {
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		repos, err := mongodb.NewRepositories(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			client.Disconnect(ctx)
			return nil, nil, err
		}
		return repos, func() { client.Disconnect(context.Background()) }, nil
	}

	db, err := postgres.NewConnection(cfg)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewRepositories(db), func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}, nil
}
