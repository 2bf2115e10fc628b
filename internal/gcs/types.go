package gcs

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StorageService stores invoice attachments.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// Upload writes r to bucket/objectName and returns its gs:// URI.
	Upload(ctx context.Context, bucketName, objectName, contentType string, r io.Reader) (string, error)

	// FetchFromGCS downloads file bytes from the given storage URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName returns the object path of an attachment:
// invoices/<user>/<yyyy>/<mm>/<dd>/<uuid>-<file>.
func ObjectName(userID, filename string, now time.Time) string {
	return fmt.Sprintf("invoices/%s/%s/%s-%s",
		SanitizeName(userID),
		now.UTC().Format("2006/01/02"),
		uuid.NewString(),
		SanitizeName(path.Base(filename)),
	)
}

// SanitizeName replaces runs of characters that are awkward in object paths with "_".
func SanitizeName(s string) string {
	s = strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_"), "_")
	if s == "" || s == "." || s == ".." {
		return "file"
	}
	return s
}

// ParseURI splits gs://bucket/object into its bucket and object path.
func ParseURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}
	parts := strings.SplitN(strings.TrimPrefix(gcsURI, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// URI builds a gs:// URI.
func URI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// FilenameFromURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/file.pdf" → "file.pdf"
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
