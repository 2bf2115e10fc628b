package gcsuploader

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStorage struct {
	bucket, object, contentType string
	body                        []byte
}

func (r *recordingStorage) Upload(_ context.Context, bucketName, objectName, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	r.bucket, r.object, r.contentType, r.body = bucketName, objectName, contentType, data
	return "gs://" + bucketName + "/" + objectName, nil
}

func (r *recordingStorage) FetchFromGCS(context.Context, string) ([]byte, error) {
	return r.body, nil
}

func TestUploadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	rec := &recordingStorage{}
	uri, err := UploadFile(context.Background(), rec, "bucket", "invoices/u1/a.pdf", "application/pdf", path)
	require.NoError(t, err)

	assert.Equal(t, "gs://bucket/invoices/u1/a.pdf", uri)
	assert.Equal(t, "application/pdf", rec.contentType)
	assert.Equal(t, []byte("%PDF-1.4"), rec.body)
}

func TestUploadFile_MissingFile(t *testing.T) {
	_, err := UploadFile(context.Background(), &recordingStorage{}, "b", "o", "", filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}
