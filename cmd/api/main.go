package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"transcript-request-service/internal/api"
	"transcript-request-service/internal/config"
	"transcript-request-service/internal/db"
	"transcript-request-service/internal/delivery"
	"transcript-request-service/internal/document"
	"transcript-request-service/internal/logger"
	"transcript-request-service/internal/notify"
	"transcript-request-service/internal/queue"
	"transcript-request-service/internal/storage"
	"transcript-request-service/internal/submission"
	"transcript-request-service/internal/validation"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Str("env", cfg.App.Env).Msg("Starting API server")

	// Initialize database
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	if cfg.Database.MigrateOnStart {
		if err := db.RunMigrations(database.DB, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	// Initialize repository
	repo := db.NewRepository(database)

	// Initialize delivery client
	deliverer, err := delivery.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize delivery client")
	}
	log.Info().Str("mode", deliverer.Mode()).Msg("Delivery client ready")

	// Initialize notifier
	notifier := notify.New(cfg)
	log.Info().Str("mode", notifier.Mode()).Msg("Notifier ready")

	// Initialize artifact storage
	store, err := storage.New(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Artifact storage unavailable, archive disabled")
		store = storage.NewNoopStorage()
	}

	// Initialize status event publisher
	var publisher queue.EventPublisher = queue.NoopProducer{}
	if cfg.Redis.Enabled() {
		redisClient, err := queue.NewRedisClient(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, status callbacks disabled")
		} else {
			defer redisClient.Close()
			publisher = queue.NewProducer(redisClient, cfg.Redis.StatusQueue)
		}
	}

	// Initialize submission pipeline
	service := submission.NewService(submission.Dependencies{
		Validator:   validation.NewValidator(),
		Renderer:    document.NewGenerator(document.WithBrand(cfg.Documents.BrandName)),
		Repo:        repo,
		Deliverer:   deliverer,
		Notifier:    notifier,
		Storage:     store,
		Publisher:   publisher,
		Environment: cfg.App.Env,
	})

	// Setup Gin router
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(cfg, api.NewHandler(service))

	if cfg.Auth.APIKey == "" {
		log.Warn().Msg("EXTERNAL_API_KEY not set, partner routes will answer CONFIG_ERROR")
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
