package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/google/uuid"
)

const documentColumns = `document_id, user_id, gcs_uri, original_filename, file_mime_type,
	checksum_sha256, status, invoice_id, upload_ts, processed_ts`

// InsertDocument stores an uploaded attachment.
func (s *Store) InsertDocument(ctx context.Context, row *bq.DocumentRow) error {
	var processed sql.NullString
	if row.ProcessedTS.Valid {
		processed = sql.NullString{String: formatTS(row.ProcessedTS.Timestamp), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.DocumentID, row.UserID, row.GCSURI, row.OriginalFilename, row.FileMimeType,
		row.ChecksumSHA256, row.Status, nullable(row.InvoiceID.StringVal),
		formatTS(row.UploadTS), processed)
	if err != nil {
		return fmt.Errorf("InsertDocument: %w", err)
	}
	return nil
}

// ListDocuments returns the user's documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, userID string) ([]*bq.DocumentRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE user_id = ? ORDER BY upload_ts DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("ListDocuments: query: %w", err)
	}
	defer rows.Close()

	var docs []*bq.DocumentRow
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("ListDocuments: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListDocuments: rows: %w", err)
	}
	return docs, nil
}

// GetDocument returns a document or bq.ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, documentID string) (*bq.DocumentRow, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE document_id = ?", documentID))
	if err == sql.ErrNoRows {
		return nil, bq.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetDocument: %w", err)
	}
	return d, nil
}

// FindDocumentByChecksum returns the user's earlier upload with this checksum, or nil.
func (s *Store) FindDocumentByChecksum(ctx context.Context, userID, checksum string) (*bq.DocumentRow, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE user_id = ? AND checksum_sha256 = ? ORDER BY upload_ts LIMIT 1",
		userID, checksum))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindDocumentByChecksum: %w", err)
	}
	return d, nil
}

// UpdateDocumentStatus sets the status and processed time; invoiceID is kept when empty.
func (s *Store) UpdateDocumentStatus(ctx context.Context, documentID, status, invoiceID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, invoice_id = COALESCE(?, invoice_id), processed_ts = ?
		WHERE document_id = ?`,
		status, nullable(invoiceID), formatTS(time.Now()), documentID)
	if err != nil {
		return fmt.Errorf("UpdateDocumentStatus: %w", err)
	}
	return expectAffected(res)
}

// InsertModelOutput keeps the raw extraction response.
func (s *Store) InsertModelOutput(ctx context.Context, row *bq.ModelOutputRow) error {
	if row.OutputID == "" {
		row.OutputID = uuid.NewString()
	}
	if row.CreatedTS.IsZero() {
		row.CreatedTS = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO model_outputs (output_id, document_id, model_name, raw_json, created_ts)
		VALUES (?, ?, ?, ?, ?)`,
		row.OutputID, row.DocumentID, row.ModelName, nullable(row.RawJSON.JSONVal),
		formatTS(row.CreatedTS))
	if err != nil {
		return fmt.Errorf("InsertModelOutput: %w", err)
	}
	return nil
}

func scanDocument(r rowScanner) (*bq.DocumentRow, error) {
	var (
		d         bq.DocumentRow
		invoiceID sql.NullString
		uploaded  string
		processed sql.NullString
	)
	if err := r.Scan(&d.DocumentID, &d.UserID, &d.GCSURI, &d.OriginalFilename, &d.FileMimeType,
		&d.ChecksumSHA256, &d.Status, &invoiceID, &uploaded, &processed); err != nil {
		return nil, err
	}
	d.InvoiceID = bigquery.NullString{StringVal: invoiceID.String, Valid: invoiceID.Valid}
	d.UploadTS = parseTS(uploaded)
	if processed.Valid {
		d.ProcessedTS = bigquery.NullTimestamp{Timestamp: parseTS(processed.String), Valid: true}
	}
	return &d, nil
}
