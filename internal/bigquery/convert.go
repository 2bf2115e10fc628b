package bigquery

import (
	"encoding/json"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/bilix/bilix/internal/domain"
	"github.com/shopspring/decimal"
)

// numericScale is the fractional precision of a BigQuery NUMERIC column.
const numericScale = 9

// InvoiceFromRows builds a domain invoice from its row and line item rows.
func InvoiceFromRows(row *InvoiceRow, items []*LineItemRow) domain.Invoice {
	inv := domain.Invoice{
		ID:         row.InvoiceID,
		UserID:     row.UserID,
		Type:       domain.InvoiceType(row.InvoiceType),
		Status:     domain.InvoiceStatus(row.Status),
		Amount:     ratToDecimalPtr(row.Amount),
		Currency:   row.Currency,
		CategoryID: row.CategoryID.StringVal,
		VendorID:   row.VendorID.StringVal,
		Tags:       row.Tags,
		Notes:      row.Notes.StringVal,
		CreatedAt:  row.CreatedTS,
	}
	if row.IssueDate.IsValid() {
		inv.IssueDate = row.IssueDate.In(time.UTC)
	}
	if row.DueDate.Valid {
		due := row.DueDate.Date.In(time.UTC)
		inv.DueDate = &due
	}
	if row.UpdatedTS.Valid {
		inv.UpdatedAt = row.UpdatedTS.Timestamp
	}

	for _, it := range items {
		inv.LineItems = append(inv.LineItems, LineItemFromRow(it))
	}
	return inv
}

// LineItemFromRow converts a line item row.
func LineItemFromRow(row *LineItemRow) domain.LineItem {
	li := domain.LineItem{
		ID:          row.LineItemID,
		InvoiceID:   row.InvoiceID,
		Description: row.Description,
		Quantity:    ratToDecimal(row.Quantity),
		UnitPrice:   ratToDecimal(row.UnitPrice),
		TotalPrice:  ratToDecimal(row.TotalPrice),
		TaxRate:     ratToDecimalPtr(row.TaxRate),
		TaxAmount:   ratToDecimalPtr(row.TaxAmount),
		Discount:    ratToDecimalPtr(row.Discount),
	}
	if row.Attributes.Valid && row.Attributes.JSONVal != "" {
		var attrs map[string]string
		if err := json.Unmarshal([]byte(row.Attributes.JSONVal), &attrs); err == nil && len(attrs) > 0 {
			li.Attributes = attrs
		}
	}
	return li
}

// InvoiceToRows converts a domain invoice into its row and line item rows.
// documentID links the invoice to the attachment it was extracted from.
func InvoiceToRows(inv *domain.Invoice, documentID string) (*InvoiceRow, []*LineItemRow) {
	row := &InvoiceRow{
		InvoiceID:   inv.ID,
		UserID:      inv.UserID,
		InvoiceType: string(inv.Type),
		Status:      string(inv.Status),
		IssueDate:   civil.DateOf(inv.IssueDate.UTC()),
		Amount:      decimalPtrToRat(inv.Amount),
		Currency:    inv.Currency,
		CategoryID:  nullString(inv.CategoryID),
		VendorID:    nullString(inv.VendorID),
		DocumentID:  nullString(documentID),
		Tags:        inv.Tags,
		Notes:       nullString(inv.Notes),
		CreatedTS:   inv.CreatedAt,
	}
	if inv.DueDate != nil {
		row.DueDate = bigquery.NullDate{Date: civil.DateOf(inv.DueDate.UTC()), Valid: true}
	}
	if !inv.UpdatedAt.IsZero() {
		row.UpdatedTS = bigquery.NullTimestamp{Timestamp: inv.UpdatedAt, Valid: true}
	}

	items := make([]*LineItemRow, 0, len(inv.LineItems))
	for i, li := range inv.LineItems {
		item := &LineItemRow{
			LineItemID:  li.ID,
			InvoiceID:   inv.ID,
			LineIndex:   int64(i),
			Description: li.Description,
			Quantity:    li.Quantity.Rat(),
			UnitPrice:   li.UnitPrice.Rat(),
			TotalPrice:  li.TotalPrice.Rat(),
			TaxRate:     decimalPtrToRat(li.TaxRate),
			TaxAmount:   decimalPtrToRat(li.TaxAmount),
			Discount:    decimalPtrToRat(li.Discount),
		}
		if len(li.Attributes) > 0 {
			if b, err := json.Marshal(li.Attributes); err == nil {
				item.Attributes = bigquery.NullJSON{JSONVal: string(b), Valid: true}
			}
		}
		items = append(items, item)
	}
	return row, items
}

// VendorFromRow converts a vendor row.
func VendorFromRow(row *VendorRow) domain.Vendor {
	return domain.Vendor{
		ID:        row.VendorID,
		UserID:    row.UserID,
		Name:      row.Name,
		Email:     row.Email.StringVal,
		Phone:     row.Phone.StringVal,
		Address:   row.Address.StringVal,
		CreatedAt: row.CreatedTS,
	}
}

// VendorToRow converts a domain vendor.
func VendorToRow(v *domain.Vendor) *VendorRow {
	return &VendorRow{
		VendorID:  v.ID,
		UserID:    v.UserID,
		Name:      v.Name,
		Email:     nullString(v.Email),
		Phone:     nullString(v.Phone),
		Address:   nullString(v.Address),
		CreatedTS: v.CreatedAt,
	}
}

// CategoryFromRow converts a category row.
func CategoryFromRow(row *CategoryRow) domain.Category {
	return domain.Category{
		ID:        row.CategoryID,
		UserID:    row.UserID,
		Name:      row.Name,
		Color:     row.Color.StringVal,
		CreatedAt: row.CreatedTS,
	}
}

// CategoryToRow converts a domain category.
func CategoryToRow(c *domain.Category) *CategoryRow {
	return &CategoryRow{
		CategoryID: c.ID,
		UserID:     c.UserID,
		Name:       c.Name,
		Color:      nullString(c.Color),
		CreatedTS:  c.CreatedAt,
	}
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func ratToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r, numericScale)
}

func ratToDecimalPtr(r *big.Rat) *decimal.Decimal {
	if r == nil {
		return nil
	}
	d := decimal.NewFromBigRat(r, numericScale)
	return &d
}

func decimalPtrToRat(d *decimal.Decimal) *big.Rat {
	if d == nil {
		return nil
	}
	return d.Rat()
}
