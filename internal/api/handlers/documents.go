package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/bilix/bilix/internal/api/middleware"
	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/gcs"
	"github.com/bilix/bilix/internal/jobs"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxUploadBytes is the largest attachment accepted.
const MaxUploadBytes = 20 << 20

var allowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
}

// DocumentsHandler handles attachment uploads and their extraction.
type DocumentsHandler struct {
	repo      bq.DocumentRepository
	storage   gcs.StorageService
	publisher jobs.Publisher
	bucket    string
	log       zerolog.Logger
	now       func() time.Time
}

// NewDocumentsHandler creates a new documents handler. Uploads are refused
// when bucket is empty.
func NewDocumentsHandler(repo bq.DocumentRepository, storage gcs.StorageService, publisher jobs.Publisher, bucket string, log zerolog.Logger) *DocumentsHandler {
	return &DocumentsHandler{
		repo:      repo,
		storage:   storage,
		publisher: publisher,
		bucket:    bucket,
		log:       log,
		now:       time.Now,
	}
}

// ListDocuments handles GET /api/documents
func (h *DocumentsHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.repo.ListDocuments(r.Context(), userID(r))
	if err != nil {
		writeStoreError(w, h.log, err, "Failed to list documents")
		return
	}
	if docs == nil {
		docs = []*bq.DocumentRow{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

// UploadDocument handles POST /api/documents/upload as multipart/form-data with a
// "file" part. The file is stored, recorded as UPLOADED and queued for
// extraction. Uploading the same bytes twice returns the existing document.
func (h *DocumentsHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userID(r)

	if h.bucket == "" || h.storage == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Document storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read file")
		return
	}
	if len(data) > MaxUploadBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "file is empty")
		return
	}

	filename := filepath.Base(header.Filename)
	contentType := detectContentType(header.Header.Get("Content-Type"), filename, data)
	if !allowedMimeTypes[contentType] {
		middleware.WriteError(w, http.StatusUnsupportedMediaType, "Unsupported file type "+contentType)
		return
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	existing, err := h.repo.FindDocumentByChecksum(ctx, user, checksum)
	if err != nil {
		writeStoreError(w, h.log, err, "Failed to upload document")
		return
	}
	if existing != nil {
		h.log.Info().Str("document_id", existing.DocumentID).Msg("Duplicate upload")
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"document":  existing,
			"duplicate": true,
		})
		return
	}

	now := h.now().UTC()
	uri, err := h.storage.Upload(ctx, h.bucket, gcs.ObjectName(user, filename, now), contentType, bytes.NewReader(data))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to store file")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to store file")
		return
	}

	doc := &bq.DocumentRow{
		DocumentID:       uuid.NewString(),
		UserID:           user,
		GCSURI:           uri,
		OriginalFilename: filename,
		FileMimeType:     contentType,
		ChecksumSHA256:   checksum,
		Status:           bq.DocumentStatusUploaded,
		UploadTS:         now,
	}
	if err := h.repo.InsertDocument(ctx, doc); err != nil {
		writeStoreError(w, h.log, err, "Failed to save document metadata")
		return
	}

	h.log.Info().
		Str("document_id", doc.DocumentID).
		Str("gcs_uri", uri).
		Int("bytes", len(data)).
		Msg("File uploaded successfully")

	job, err := h.enqueue(r, doc)
	if err != nil {
		// The document stays UPLOADED and can be re-queued.
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue extraction")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"document":  doc,
		"job_id":    job.JobID,
		"duplicate": false,
	})
}

// ExtractDocument handles POST /api/documents/{id}/extract and queues the
// document for another extraction run.
func (h *DocumentsHandler) ExtractDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	doc, err := h.repo.GetDocument(r.Context(), documentID)
	if err == nil && doc.UserID != userID(r) {
		err = bq.ErrNotFound
	}
	if err != nil {
		writeStoreError(w, h.log, err, "Failed to enqueue extraction")
		return
	}

	job, err := h.enqueue(r, doc)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue extraction")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":      job.JobID,
		"document_id": doc.DocumentID,
		"status":      string(job.Status),
	})
}

func (h *DocumentsHandler) enqueue(r *http.Request, doc *bq.DocumentRow) (*jobs.ExtractInvoiceJob, error) {
	job := &jobs.ExtractInvoiceJob{
		UserID:     doc.UserID,
		DocumentID: doc.DocumentID,
		GCSURI:     doc.GCSURI,
	}
	if err := h.publisher.PublishExtractInvoice(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("document_id", doc.DocumentID).Msg("Failed to enqueue extraction job")
		return nil, err
	}
	h.log.Info().Str("job_id", job.JobID).Str("document_id", doc.DocumentID).Msg("Extraction job enqueued")
	return job, nil
}

// detectContentType prefers the declared type, then the file extension, then
// the content itself.
func detectContentType(declared, filename string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return mt
		}
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}
