package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/extraction"
	"github.com/bilix/bilix/internal/gcsuploader"
	"github.com/bilix/bilix/internal/infra"
	"github.com/spf13/cobra"
)

func extractCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "extract <document-id | gs://uri>",
		Short: "Extract an uploaded attachment into an invoice",
		Long: `Run Gemini extraction on one of the user's uploaded documents and store
the resulting PENDING invoice. A document that was already extracted returns
its invoice again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, log, err := setup(c)
			if err != nil {
				return err
			}
			ctx := c.Context()

			store, err := infra.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			documentID, err := resolveDocument(ctx, store, userID, args[0])
			if err != nil {
				return err
			}

			storage, err := gcsuploader.NewGCSStorageService(ctx)
			if err != nil {
				return err
			}
			defer storage.Close()

			parser, err := extraction.NewGeminiAIParser(ctx, cfg.GeminiModel)
			if err != nil {
				return err
			}

			res, err := extraction.IngestInvoiceWithDeps(ctx, extraction.Deps{
				Repo:    store,
				Storage: storage,
				Parser:  parser,
				Log:     log,
			}, userID, documentID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(c.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owner of the document (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// resolveDocument accepts a document ID or the gs:// URI of one of the
// user's documents and returns the document ID.
func resolveDocument(ctx context.Context, repo bq.DocumentRepository, userID, ref string) (string, error) {
	if !strings.HasPrefix(ref, "gs://") {
		return ref, nil
	}

	docs, err := repo.ListDocuments(ctx, userID)
	if err != nil {
		return "", err
	}
	for _, d := range docs {
		if d.GCSURI == ref {
			return d.DocumentID, nil
		}
	}
	return "", fmt.Errorf("no document of user %s at %s", userID, ref)
}
