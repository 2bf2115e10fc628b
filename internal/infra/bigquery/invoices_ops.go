package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/domain"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const invoiceColumns = `
			invoice_id,
			user_id,
			invoice_type,
			status,
			issue_date,
			due_date,
			amount,
			currency,
			category_id,
			vendor_id,
			document_id,
			tags,
			notes,
			created_ts,
			updated_ts`

// invoiceConditions turns a filter into WHERE clauses and their parameters.
func invoiceConditions(userID string, filter bq.InvoiceFilter) (string, []bigquery.QueryParameter) {
	conds := []string{"user_id = @user_id"}
	params := []bigquery.QueryParameter{{Name: "user_id", Value: userID}}

	if filter.From != nil {
		conds = append(conds, "issue_date >= @from_date")
		params = append(params, bigquery.QueryParameter{Name: "from_date", Value: filter.From.Format(dateFormat)})
	}
	if filter.To != nil {
		conds = append(conds, "issue_date <= @to_date")
		params = append(params, bigquery.QueryParameter{Name: "to_date", Value: filter.To.Format(dateFormat)})
	}
	if filter.Type != "" {
		conds = append(conds, "invoice_type = @invoice_type")
		params = append(params, bigquery.QueryParameter{Name: "invoice_type", Value: string(filter.Type)})
	}
	if filter.Status != "" {
		conds = append(conds, "status = @status")
		params = append(params, bigquery.QueryParameter{Name: "status", Value: string(filter.Status)})
	}

	return strings.Join(conds, "\n\t\t  AND "), params
}

// ListInvoicesWithClient returns the user's invoices with line items. Invoices
// and line items are read in two queries and joined by invoice_id.
func ListInvoicesWithClient(ctx context.Context, client *bigquery.Client, dataset, userID string, filter bq.InvoiceFilter) ([]domain.Invoice, error) {
	where, params := invoiceConditions(userID, filter)
	q := client.Query(fmt.Sprintf(`
		SELECT%s
		FROM %s
		WHERE %s
		ORDER BY issue_date, invoice_id
	`, invoiceColumns, tableRef(client, dataset, invoicesTable), where))
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListInvoices: query read: %w", err)
	}

	var rows []*InvoiceRow
	var ids []string
	for {
		var r InvoiceRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListInvoices: iter next: %w", err)
		}
		rows = append(rows, &r)
		ids = append(ids, r.InvoiceID)
	}

	items, err := listLineItems(ctx, client, dataset, ids)
	if err != nil {
		return nil, fmt.Errorf("ListInvoices: %w", err)
	}

	invoices := make([]domain.Invoice, 0, len(rows))
	for _, r := range rows {
		invoices = append(invoices, bq.InvoiceFromRows(r, items[r.InvoiceID]))
	}
	return invoices, nil
}

// GetInvoiceWithClient returns one invoice or bq.ErrNotFound.
func GetInvoiceWithClient(ctx context.Context, client *bigquery.Client, dataset, userID, invoiceID string) (*domain.Invoice, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT%s
		FROM %s
		WHERE user_id = @user_id
		  AND invoice_id = @invoice_id
		LIMIT 1
	`, invoiceColumns, tableRef(client, dataset, invoicesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "invoice_id", Value: invoiceID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetInvoice: query read: %w", err)
	}

	var row InvoiceRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, bq.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetInvoice: reading row: %w", err)
	}

	items, err := listLineItems(ctx, client, dataset, []string{invoiceID})
	if err != nil {
		return nil, fmt.Errorf("GetInvoice: %w", err)
	}

	inv := bq.InvoiceFromRows(&row, items[invoiceID])
	return &inv, nil
}

func listLineItems(ctx context.Context, client *bigquery.Client, dataset string, invoiceIDs []string) (map[string][]*LineItemRow, error) {
	out := make(map[string][]*LineItemRow, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return out, nil
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			line_item_id,
			invoice_id,
			line_index,
			description,
			quantity,
			unit_price,
			total_price,
			tax_rate,
			tax_amount,
			discount,
			attributes
		FROM %s
		WHERE invoice_id IN UNNEST(@invoice_ids)
		ORDER BY invoice_id, line_index
	`, tableRef(client, dataset, lineItemsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "invoice_ids", Value: invoiceIDs},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("line items: query read: %w", err)
	}
	for {
		var r LineItemRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line items: iter next: %w", err)
		}
		out[r.InvoiceID] = append(out[r.InvoiceID], &r)
	}
	return out, nil
}

// InsertInvoiceWithClient stores an invoice with DML, so that its status can be
// updated right away, and streams its line items. IDs are assigned when empty.
func InsertInvoiceWithClient(ctx context.Context, client *bigquery.Client, dataset string, inv *domain.Invoice, documentID string) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	for i := range inv.LineItems {
		if inv.LineItems[i].ID == "" {
			inv.LineItems[i].ID = uuid.NewString()
		}
		inv.LineItems[i].InvoiceID = inv.ID
	}

	row, items := bq.InvoiceToRows(inv, documentID)

	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s (%s
		)
		VALUES (
			@invoice_id, @user_id, @invoice_type, @status,
			@issue_date, @due_date, @amount, @currency,
			@category_id, @vendor_id, @document_id,
			@tags, @notes, @created_ts, @updated_ts
		)
	`, tableRef(client, dataset, invoicesTable), invoiceColumns))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "invoice_id", Value: row.InvoiceID},
		{Name: "user_id", Value: row.UserID},
		{Name: "invoice_type", Value: row.InvoiceType},
		{Name: "status", Value: row.Status},
		{Name: "issue_date", Value: row.IssueDate},
		{Name: "due_date", Value: row.DueDate},
		{Name: "amount", Value: row.Amount},
		{Name: "currency", Value: row.Currency},
		{Name: "category_id", Value: row.CategoryID},
		{Name: "vendor_id", Value: row.VendorID},
		{Name: "document_id", Value: row.DocumentID},
		{Name: "tags", Value: nonNilTags(row.Tags)},
		{Name: "notes", Value: row.Notes},
		{Name: "created_ts", Value: row.CreatedTS},
		{Name: "updated_ts", Value: row.UpdatedTS},
	}
	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertInvoice: %w", err)
	}

	if len(items) == 0 {
		return nil
	}
	inserter := client.Dataset(dataset).Table(lineItemsTable).Inserter()
	if err := inserter.Put(ctx, items); err != nil {
		return fmt.Errorf("InsertInvoice: inserting line items: %w", err)
	}
	return nil
}

// UpdateInvoiceStatusWithClient changes the status of one invoice.
func UpdateInvoiceStatusWithClient(ctx context.Context, client *bigquery.Client, dataset, userID, invoiceID string, status domain.InvoiceStatus) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    updated_ts = @updated_ts
		WHERE user_id = @user_id
		  AND invoice_id = @invoice_id
	`, tableRef(client, dataset, invoicesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(status)},
		{Name: "updated_ts", Value: time.Now().UTC()},
		{Name: "user_id", Value: userID},
		{Name: "invoice_id", Value: invoiceID},
	}

	affected, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("UpdateInvoiceStatus: %w", err)
	}
	if affected == 0 {
		return bq.ErrNotFound
	}
	return nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
