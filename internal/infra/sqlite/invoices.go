package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const invoiceColumns = `invoice_id, user_id, invoice_type, status, issue_date, due_date,
	amount, currency, category_id, vendor_id, tags, notes, created_ts, updated_ts`

type rowScanner interface {
	Scan(dest ...any) error
}

// ListInvoices returns the user's invoices with line items, ordered by issue date.
func (s *Store) ListInvoices(ctx context.Context, userID string, filter bq.InvoiceFilter) ([]domain.Invoice, error) {
	conds := []string{"user_id = ?"}
	args := []any{userID}
	if filter.From != nil {
		conds = append(conds, "issue_date >= ?")
		args = append(args, filter.From.UTC().Format(dateFormat))
	}
	if filter.To != nil {
		conds = append(conds, "issue_date <= ?")
		args = append(args, filter.To.UTC().Format(dateFormat))
	}
	if filter.Type != "" {
		conds = append(conds, "invoice_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := "SELECT " + invoiceColumns + " FROM invoices WHERE " +
		strings.Join(conds, " AND ") + " ORDER BY issue_date, invoice_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListInvoices: query: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	index := map[string]int{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("ListInvoices: %w", err)
		}
		index[inv.ID] = len(invoices)
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListInvoices: rows: %w", err)
	}
	rows.Close()

	if len(invoices) == 0 {
		return invoices, nil
	}

	items, err := s.db.QueryContext(ctx, `
		SELECT l.line_item_id, l.invoice_id, l.description, l.quantity, l.unit_price,
			l.total_price, l.tax_rate, l.tax_amount, l.discount, l.attributes
		FROM line_items l
		JOIN invoices i ON i.invoice_id = l.invoice_id
		WHERE i.user_id = ?
		ORDER BY l.invoice_id, l.line_index`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListInvoices: line items: %w", err)
	}
	defer items.Close()

	for items.Next() {
		li, err := scanLineItem(items)
		if err != nil {
			return nil, fmt.Errorf("ListInvoices: %w", err)
		}
		if i, ok := index[li.InvoiceID]; ok {
			invoices[i].LineItems = append(invoices[i].LineItems, li)
		}
	}
	if err := items.Err(); err != nil {
		return nil, fmt.Errorf("ListInvoices: line item rows: %w", err)
	}

	return invoices, nil
}

// GetInvoice returns one invoice or bq.ErrNotFound.
func (s *Store) GetInvoice(ctx context.Context, userID, invoiceID string) (*domain.Invoice, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+invoiceColumns+" FROM invoices WHERE user_id = ? AND invoice_id = ?",
		userID, invoiceID)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, bq.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetInvoice: %w", err)
	}

	items, err := s.db.QueryContext(ctx, `
		SELECT line_item_id, invoice_id, description, quantity, unit_price,
			total_price, tax_rate, tax_amount, discount, attributes
		FROM line_items
		WHERE invoice_id = ?
		ORDER BY line_index`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("GetInvoice: line items: %w", err)
	}
	defer items.Close()

	for items.Next() {
		li, err := scanLineItem(items)
		if err != nil {
			return nil, fmt.Errorf("GetInvoice: %w", err)
		}
		inv.LineItems = append(inv.LineItems, li)
	}
	if err := items.Err(); err != nil {
		return nil, fmt.Errorf("GetInvoice: line item rows: %w", err)
	}

	return &inv, nil
}

// InsertInvoice stores an invoice and its line items in one transaction.
// IDs and the creation time are assigned when empty.
func (s *Store) InsertInvoice(ctx context.Context, inv *domain.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	tags, err := json.Marshal(nonNil(inv.Tags))
	if err != nil {
		return fmt.Errorf("InsertInvoice: encoding tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("InsertInvoice: begin: %w", err)
	}
	defer tx.Rollback()

	var due sql.NullString
	if inv.DueDate != nil {
		due = sql.NullString{String: inv.DueDate.UTC().Format(dateFormat), Valid: true}
	}
	var updated sql.NullString
	if !inv.UpdatedAt.IsZero() {
		updated = sql.NullString{String: formatTS(inv.UpdatedAt), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO invoices (`+invoiceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.UserID, string(inv.Type), string(inv.Status),
		inv.IssueDate.UTC().Format(dateFormat), due,
		nullDecimal(inv.Amount), inv.Currency,
		nullable(inv.CategoryID), nullable(inv.VendorID),
		string(tags), nullable(inv.Notes),
		formatTS(inv.CreatedAt), updated,
	)
	if err != nil {
		return fmt.Errorf("InsertInvoice: inserting invoice: %w", err)
	}

	for i := range inv.LineItems {
		li := &inv.LineItems[i]
		if li.ID == "" {
			li.ID = uuid.NewString()
		}
		li.InvoiceID = inv.ID

		var attrs sql.NullString
		if len(li.Attributes) > 0 {
			b, err := json.Marshal(li.Attributes)
			if err != nil {
				return fmt.Errorf("InsertInvoice: encoding attributes: %w", err)
			}
			attrs = sql.NullString{String: string(b), Valid: true}
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO line_items (
			line_item_id, invoice_id, line_index, description, quantity, unit_price,
			total_price, tax_rate, tax_amount, discount, attributes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			li.ID, inv.ID, i, li.Description,
			li.Quantity, li.UnitPrice, li.TotalPrice,
			nullDecimal(li.TaxRate), nullDecimal(li.TaxAmount), nullDecimal(li.Discount),
			attrs,
		)
		if err != nil {
			return fmt.Errorf("InsertInvoice: inserting line item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("InsertInvoice: commit: %w", err)
	}
	return nil
}

// UpdateInvoiceStatus changes the status of one invoice or returns bq.ErrNotFound.
func (s *Store) UpdateInvoiceStatus(ctx context.Context, userID, invoiceID string, status domain.InvoiceStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invoices SET status = ?, updated_ts = ? WHERE user_id = ? AND invoice_id = ?`,
		string(status), formatTS(time.Now()), userID, invoiceID)
	if err != nil {
		return fmt.Errorf("UpdateInvoiceStatus: %w", err)
	}
	return expectAffected(res)
}

// DeleteInvoice removes an invoice; its line items go with it.
func (s *Store) DeleteInvoice(ctx context.Context, userID, invoiceID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM invoices WHERE user_id = ? AND invoice_id = ?`, userID, invoiceID)
	if err != nil {
		return fmt.Errorf("DeleteInvoice: %w", err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return bq.ErrNotFound
	}
	return nil
}

func scanInvoice(r rowScanner) (domain.Invoice, error) {
	var (
		inv                              domain.Invoice
		typ, status, issue, tags, create string
		due, category, vendor, notes     sql.NullString
		updated                          sql.NullString
		amount                           decimal.NullDecimal
	)
	if err := r.Scan(&inv.ID, &inv.UserID, &typ, &status, &issue, &due,
		&amount, &inv.Currency, &category, &vendor, &tags, &notes, &create, &updated); err != nil {
		return inv, err
	}

	inv.Type = domain.InvoiceType(typ)
	inv.Status = domain.InvoiceStatus(status)
	if t, err := time.Parse(dateFormat, issue); err == nil {
		inv.IssueDate = t
	}
	if due.Valid {
		if t, err := time.Parse(dateFormat, due.String); err == nil {
			inv.DueDate = &t
		}
	}
	if amount.Valid {
		a := amount.Decimal
		inv.Amount = &a
	}
	inv.CategoryID = category.String
	inv.VendorID = vendor.String
	inv.Notes = notes.String
	if err := json.Unmarshal([]byte(tags), &inv.Tags); err != nil {
		return inv, fmt.Errorf("decoding tags of %s: %w", inv.ID, err)
	}
	if len(inv.Tags) == 0 {
		inv.Tags = nil
	}
	inv.CreatedAt = parseTS(create)
	if updated.Valid {
		inv.UpdatedAt = parseTS(updated.String)
	}
	return inv, nil
}

func scanLineItem(r rowScanner) (domain.LineItem, error) {
	var (
		li                  domain.LineItem
		rate, tax, discount decimal.NullDecimal
		attrs               sql.NullString
	)
	if err := r.Scan(&li.ID, &li.InvoiceID, &li.Description, &li.Quantity, &li.UnitPrice,
		&li.TotalPrice, &rate, &tax, &discount, &attrs); err != nil {
		return li, fmt.Errorf("scanning line item: %w", err)
	}
	li.TaxRate = decimalPtr(rate)
	li.TaxAmount = decimalPtr(tax)
	li.Discount = decimalPtr(discount)
	if attrs.Valid && attrs.String != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(attrs.String), &m); err == nil && len(m) > 0 {
			li.Attributes = m
		}
	}
	return li, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
