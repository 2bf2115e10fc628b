package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	bq "github.com/bilix/bilix/internal/bigquery"
	"google.golang.org/api/iterator"
)

const documentColumns = `
			document_id,
			user_id,
			gcs_uri,
			original_filename,
			file_mime_type,
			checksum_sha256,
			status,
			invoice_id,
			upload_ts,
			processed_ts`

// InsertDocumentWithClient inserts a single DocumentRow. Uses DML INSERT so the
// row can be updated by the worker straight away.
func InsertDocumentWithClient(ctx context.Context, client *bigquery.Client, dataset string, row *DocumentRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s (%s
		)
		VALUES (
			@document_id, @user_id, @gcs_uri,
			@original_filename, @file_mime_type, @checksum_sha256,
			@status, @invoice_id, @upload_ts, @processed_ts
		)
	`, tableRef(client, dataset, documentsTable), documentColumns))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "document_id", Value: row.DocumentID},
		{Name: "user_id", Value: row.UserID},
		{Name: "gcs_uri", Value: row.GCSURI},
		{Name: "original_filename", Value: row.OriginalFilename},
		{Name: "file_mime_type", Value: row.FileMimeType},
		{Name: "checksum_sha256", Value: row.ChecksumSHA256},
		{Name: "status", Value: row.Status},
		{Name: "invoice_id", Value: row.InvoiceID},
		{Name: "upload_ts", Value: row.UploadTS},
		{Name: "processed_ts", Value: row.ProcessedTS},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertDocument: %w", err)
	}
	return nil
}

// ListDocumentsWithClient returns the user's documents, newest first.
func ListDocumentsWithClient(ctx context.Context, client *bigquery.Client, dataset, userID string) ([]*DocumentRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT%s
		FROM %s
		WHERE user_id = @user_id
		ORDER BY upload_ts DESC
	`, documentColumns, tableRef(client, dataset, documentsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	rows, err := readDocuments(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ListDocuments: %w", err)
	}
	return rows, nil
}

// GetDocumentWithClient returns a document by ID or bq.ErrNotFound.
func GetDocumentWithClient(ctx context.Context, client *bigquery.Client, dataset, documentID string) (*DocumentRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT%s
		FROM %s
		WHERE document_id = @document_id
		LIMIT 1
	`, documentColumns, tableRef(client, dataset, documentsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "document_id", Value: documentID},
	}

	rows, err := readDocuments(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("GetDocument: %w", err)
	}
	if len(rows) == 0 {
		return nil, bq.ErrNotFound
	}
	return rows[0], nil
}

// FindDocumentByChecksumWithClient returns the user's document with this
// checksum, or nil when it has not been uploaded before.
func FindDocumentByChecksumWithClient(ctx context.Context, client *bigquery.Client, dataset, userID, checksum string) (*DocumentRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT%s
		FROM %s
		WHERE user_id = @user_id
		  AND checksum_sha256 = @checksum
		ORDER BY upload_ts
		LIMIT 1
	`, documentColumns, tableRef(client, dataset, documentsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "checksum", Value: checksum},
	}

	rows, err := readDocuments(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("FindDocumentByChecksum: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// UpdateDocumentStatusWithClient sets status and processed_ts. invoiceID is
// only written when non-empty.
func UpdateDocumentStatusWithClient(ctx context.Context, client *bigquery.Client, dataset, documentID, status, invoiceID string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    invoice_id = COALESCE(@invoice_id, invoice_id),
		    processed_ts = @processed_ts
		WHERE document_id = @document_id
	`, tableRef(client, dataset, documentsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: status},
		{Name: "invoice_id", Value: bigquery.NullString{StringVal: invoiceID, Valid: invoiceID != ""}},
		{Name: "processed_ts", Value: time.Now().UTC()},
		{Name: "document_id", Value: documentID},
	}

	affected, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("UpdateDocumentStatus: %w", err)
	}
	if affected == 0 {
		return bq.ErrNotFound
	}
	return nil
}

func readDocuments(ctx context.Context, q *bigquery.Query) ([]*DocumentRow, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}

	var rows []*DocumentRow
	for {
		var r DocumentRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
