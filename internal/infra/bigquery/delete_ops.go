package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	bq "github.com/bilix/bilix/internal/bigquery"
)

// DeleteInvoiceWithClient deletes an invoice owned by userID and then its line
// items. Returns bq.ErrNotFound when the user has no such invoice.
func DeleteInvoiceWithClient(ctx context.Context, client *bigquery.Client, dataset, userID, invoiceID string) error {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id
		  AND invoice_id = @invoice_id
	`, tableRef(client, dataset, invoicesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "invoice_id", Value: invoiceID},
	}

	affected, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("DeleteInvoice: deleting invoice: %w", err)
	}
	if affected == 0 {
		return bq.ErrNotFound
	}

	q = client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE invoice_id = @invoice_id
	`, tableRef(client, dataset, lineItemsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "invoice_id", Value: invoiceID},
	}
	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("DeleteInvoice: deleting line items: %w", err)
	}

	return nil
}

// runDML runs a DML statement, waits for it and returns the affected row count.
func runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}
