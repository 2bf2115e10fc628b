package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilix/bilix/internal/api"
	"github.com/bilix/bilix/internal/assistant"
	"github.com/bilix/bilix/internal/config"
	"github.com/bilix/bilix/internal/extraction"
	"github.com/bilix/bilix/internal/gcsuploader"
	"github.com/bilix/bilix/internal/infra"
	"github.com/bilix/bilix/internal/jobs/inmemory"
	"github.com/bilix/bilix/internal/logger"
	"github.com/bilix/bilix/internal/reporting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Parse command-line flags
	port := flag.String("port", cfg.Port, "HTTP server port")
	flag.Parse()

	// Initialize logger
	log, err := logger.NewFromConfig(cfg.GetLoggerConfig(), os.Stdout)
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Invalid logging configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	// Initialize repositories
	store, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	opts, err := cfg.ReportingOptions()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid reporting configuration")
	}
	reports := reporting.NewService(store, opts, log)

	deps := api.Deps{
		Store:   store,
		Reports: reports,
		Bucket:  cfg.GCSBucket,
		Jobs:    inmemory.NewStore(),
		Log:     log,
	}

	// Initialize job infrastructure
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	var jobQueue *inmemory.Queue
	if cfg.GCSBucket == "" {
		log.Warn().Msg("No GCS bucket configured - document uploads will be disabled")
	} else {
		storage, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer storage.Close()
		deps.Storage = storage

		parser, err := extraction.NewGeminiAIParser(ctx, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("Gemini unavailable - document uploads will be disabled")
		} else {
			extractor := extraction.NewExtractor(extraction.Deps{
				Repo:    store,
				Storage: storage,
				Parser:  parser,
				Log:     log,
			})

			jobQueue = inmemory.NewQueue(100, deps.Jobs, inmemory.WithLogger(log))
			if err := jobQueue.Start(workerCtx, extractor.HandleJob); err != nil {
				log.Fatal().Err(err).Msg("Failed to start job worker")
			}
			deps.Publisher = jobQueue
		}
	}

	if cfg.OpenAIAPIKey != "" {
		deps.Assistant = assistant.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, reports, log)
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set - assistant will be disabled")
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("store", cfg.StoreDriver).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if jobQueue != nil {
		// Stop job queue and wait for in-flight jobs
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
		if err := jobQueue.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close job queue")
		}
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
