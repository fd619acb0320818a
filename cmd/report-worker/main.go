package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"transcript-request-service/internal/config"
	"transcript-request-service/internal/db"
	"transcript-request-service/internal/logger"
	"transcript-request-service/internal/storage"
	"transcript-request-service/internal/worker"
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

	log.Info().Str("version", cfg.App.Version).Msg("Starting report worker")

	// Initialize database
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	// Initialize repository
	repo := db.NewRepository(database)

	// Initialize report storage
	if !cfg.Storage.S3.Enabled() {
		log.Fatal().Msg("S3 bucket is not configured; the report worker has nowhere to upload")
	}
	store, err := storage.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	// Create report worker
	reportWorker := worker.NewReportWorker(cfg.Workers.Report, repo, store)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := reportWorker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Report worker failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down report worker...")

	cancel()
	<-done
	reportWorker.Stop()

	log.Info().Msg("Report worker exited")
}
