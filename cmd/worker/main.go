package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/config"
	"github.com/bilix/bilix/internal/extraction"
	"github.com/bilix/bilix/internal/gcsuploader"
	"github.com/bilix/bilix/internal/infra"
	"github.com/bilix/bilix/internal/jobs"
	"github.com/bilix/bilix/internal/jobs/inmemory"
	"github.com/bilix/bilix/internal/logger"
)

// The worker re-drives a user's extraction backlog: documents still UPLOADED
// (and, with -include-failed, FAILED ones) are queued and processed, then the
// worker exits.
func main() {
	userID := flag.String("user", "", "User whose backlog is processed (required)")
	includeFailed := flag.Bool("include-failed", false, "Also retry documents whose extraction failed")
	workers := flag.Int("workers", 3, "Concurrent extraction workers")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log, err := logger.NewFromConfig(cfg.GetLoggerConfig(), os.Stdout)
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Invalid logging configuration")
	}
	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	storage, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer storage.Close()

	parser, err := extraction.NewGeminiAIParser(ctx, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini parser")
	}

	extractor := extraction.NewExtractor(extraction.Deps{
		Repo:    store,
		Storage: storage,
		Parser:  parser,
		Log:     log,
	})

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore, inmemory.WithWorkers(*workers), inmemory.WithLogger(log))

	if err := jobQueue.Start(ctx, extractor.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	docs, err := store.ListDocuments(ctx, *userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list documents")
	}

	queued := 0
	for _, doc := range docs {
		if doc.Status != bq.DocumentStatusUploaded && !(*includeFailed && doc.Status == bq.DocumentStatusFailed) {
			continue
		}
		job := &jobs.ExtractInvoiceJob{UserID: *userID, DocumentID: doc.DocumentID, GCSURI: doc.GCSURI}
		if err := jobQueue.PublishExtractInvoice(ctx, job); err != nil {
			log.Error().Err(err).Str("document_id", doc.DocumentID).Msg("Failed to enqueue document")
			continue
		}
		queued++
	}

	log.Info().Int("documents", len(docs)).Int("queued", queued).Msg("Worker started, processing backlog")

	waitForJobs(ctx, jobStore, *userID, queued)

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	summarize(log, jobStore, *userID)
}

// waitForJobs polls the job store until every queued job reached a final
// state or ctx is cancelled.
func waitForJobs(ctx context.Context, store jobs.JobStore, userID string, queued int) {
	if queued == 0 {
		return
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		list, err := store.ListJobs(ctx, jobs.JobFilter{UserID: userID})
		if err != nil {
			continue
		}
		done := 0
		for _, j := range list {
			if j.Status == jobs.JobStatusCompleted || j.Status == jobs.JobStatusFailed {
				done++
			}
		}
		if done >= queued {
			return
		}
	}
}
