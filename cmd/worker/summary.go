package main

import (
	"context"

	"github.com/bilix/bilix/internal/jobs"
	"github.com/rs/zerolog"
)

func summarize(log zerolog.Logger, store jobs.JobStore, userID string) {
	list, err := store.ListJobs(context.Background(), jobs.JobFilter{UserID: userID})
	if err != nil {
		log.Error().Err(err).Msg("Failed to read job results")
		return
	}

	var completed, failed int
	for _, j := range list {
		switch j.Status {
		case jobs.JobStatusCompleted:
			completed++
		case jobs.JobStatusFailed:
			failed++
			log.Warn().Str("document_id", j.DocumentID).Str("error", j.Error).Msg("Extraction failed")
		}
	}
	log.Info().Int("completed", completed).Int("failed", failed).Msg("Worker finished")
}
