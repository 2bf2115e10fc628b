package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/gcs"
	"github.com/bilix/bilix/internal/gcsuploader"
	"github.com/bilix/bilix/internal/infra"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func uploadCmd() *cobra.Command {
	var userID, bucket string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an invoice attachment",
		Long: `Upload a local invoice PDF or image to Cloud Storage and record it as an
UPLOADED document. Run "bilix extract" on the printed document ID afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, log, err := setup(c)
			if err != nil {
				return err
			}
			if bucket == "" {
				bucket = cfg.GCSBucket
			}
			if bucket == "" {
				return fmt.Errorf("--bucket or GCS_BUCKET is required")
			}

			ctx := c.Context()
			filePath := args[0]

			checksum, err := fileChecksum(filePath)
			if err != nil {
				return err
			}

			store, err := infra.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			existing, err := store.FindDocumentByChecksum(ctx, userID, checksum)
			if err != nil {
				return err
			}
			if existing != nil {
				fmt.Fprintf(c.OutOrStdout(), "Already uploaded as document %s (%s)\n", existing.DocumentID, existing.Status)
				return nil
			}

			storage, err := gcsuploader.NewGCSStorageService(ctx)
			if err != nil {
				return err
			}
			defer storage.Close()

			filename := filepath.Base(filePath)
			contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
			if contentType == "" {
				contentType = "application/pdf"
			}

			now := time.Now().UTC()
			uri, err := gcsuploader.UploadFile(ctx, storage, bucket, gcs.ObjectName(userID, filename, now), contentType, filePath)
			if err != nil {
				return err
			}

			doc := &bq.DocumentRow{
				DocumentID:       uuid.NewString(),
				UserID:           userID,
				GCSURI:           uri,
				OriginalFilename: filename,
				FileMimeType:     contentType,
				ChecksumSHA256:   checksum,
				Status:           bq.DocumentStatusUploaded,
				UploadTS:         now,
			}
			if err := store.InsertDocument(ctx, doc); err != nil {
				return err
			}

			log.Info().Str("document_id", doc.DocumentID).Str("gcs_uri", uri).Msg("File uploaded")
			fmt.Fprintf(c.OutOrStdout(), "Uploaded %s as document %s (%s)\n", filePath, doc.DocumentID, uri)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owner of the document (required)")
	cmd.Flags().StringVar(&bucket, "bucket", "", "bucket name (default: GCS_BUCKET)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file %q: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read file %q: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
