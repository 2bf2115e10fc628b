package gcsuploader

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/bilix/bilix/internal/gcs"
)

// UploadWithClient streams r into bucketName/objectName and returns the gs:// URI.
func UploadWithClient(ctx context.Context, client *storage.Client, bucketName, objectName, contentType string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, r); err != nil {
		// Closing after a failed copy aborts the upload.
		_ = w.Close()
		return "", fmt.Errorf("copy to GCS writer: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return gcs.URI(bucketName, objectName), nil
}

// UploadFile uploads a local file; used by the CLI.
func UploadFile(ctx context.Context, svc StorageService, bucketName, objectName, contentType, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	return svc.Upload(ctx, bucketName, objectName, contentType, f)
}
