package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bilix/bilix/internal/config"
	"github.com/bilix/bilix/internal/infra"
	"github.com/bilix/bilix/internal/logger"
	"github.com/bilix/bilix/internal/notionsync"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Parse CLI flags
	userID := flag.String("user", "", "User whose invoices are mirrored (required)")
	startDateStr := flag.String("start-date", "", "Only write invoices issued on or after YYYY-MM-DD")
	endDateStr := flag.String("end-date", "", "Only write invoices issued on or before YYYY-MM-DD")
	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (defaults to NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", cfg.NotionDatabaseID, "Notion database ID (defaults to NOTION_DATABASE_ID)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	// Validate required flags
	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token or NOTION_TOKEN is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id or NOTION_DATABASE_ID is required")
	}

	opts := notionsync.SyncOptions{DryRun: *dryRun}
	if *startDateStr != "" {
		startDate, err := time.Parse("2006-01-02", *startDateStr)
		if err != nil {
			log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
		}
		opts.From = &startDate
	}
	if *endDateStr != "" {
		endDate, err := time.Parse("2006-01-02", *endDateStr)
		if err != nil {
			log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
		}
		opts.To = &endDate
	}
	if opts.From != nil && opts.To != nil && opts.To.Before(*opts.From) {
		log.Fatal().
			Time("start_date", *opts.From).
			Time("end_date", *opts.To).
			Msg("Error: end-date must be after start-date")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	store, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	notionClient := notionsync.NewNotionClient(*notionToken)

	res, err := notionsync.SyncInvoices(ctx, store, notionClient, *notionDBID, *userID, opts)
	if err != nil {
		log.Error().Err(err).Msg("Sync failed")
		os.Exit(1)
	}

	fmt.Printf("Sync completed: %d created, %d updated, %d archived, %d failed.\n",
		res.Created, res.Updated, res.Archived, res.Failed)
}
