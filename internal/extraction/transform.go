package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bilix/bilix/internal/domain"
	"github.com/shopspring/decimal"
)

// ExtractedInvoice is the model output mapped onto the domain, before the
// vendor and category names are resolved to IDs.
type ExtractedInvoice struct {
	Invoice      domain.Invoice
	VendorName   string
	CategoryName string
}

// transformModelOutput converts the model's JSON object into an invoice owned
// by userID. Extracted invoices always start as PENDING.
func transformModelOutput(raw map[string]interface{}, userID string) (*ExtractedInvoice, error) {
	typeStr, err := getStringField(raw, "invoice_type", true)
	if err != nil {
		return nil, fmt.Errorf("transformModelOutput: %w", err)
	}
	invType, ok := domain.ParseInvoiceType(typeStr)
	if !ok {
		return nil, fmt.Errorf("transformModelOutput: unknown invoice_type %q", typeStr)
	}

	issueStr, err := getStringField(raw, "issue_date", true)
	if err != nil {
		return nil, fmt.Errorf("transformModelOutput: %w", err)
	}
	issue, err := time.Parse("2006-01-02", strings.TrimSpace(issueStr))
	if err != nil {
		return nil, fmt.Errorf("transformModelOutput: invalid issue_date %q: %w", issueStr, err)
	}

	dueStr, err := getOptionalStringField(raw, "due_date")
	if err != nil {
		return nil, fmt.Errorf("transformModelOutput: %w", err)
	}
	var due *time.Time
	if dueStr != nil {
		d, err := time.Parse("2006-01-02", *dueStr)
		if err != nil {
			return nil, fmt.Errorf("transformModelOutput: invalid due_date %q: %w", *dueStr, err)
		}
		due = &d
	}

	amount, err := getOptionalDecimalField(raw, "total_amount")
	if err != nil {
		return nil, fmt.Errorf("transformModelOutput: %w", err)
	}
	if amount != nil && amount.IsNegative() {
		return nil, fmt.Errorf("transformModelOutput: negative total_amount %s", amount)
	}

	currency, err := getStringField(raw, "currency", true)
	if err != nil {
		return nil, fmt.Errorf("transformModelOutput: %w", err)
	}

	vendor, err := getOptionalStringField(raw, "vendor_name")
	if err != nil {
		return nil, fmt.Errorf("transformModelOutput: %w", err)
	}
	category, err := getOptionalStringField(raw, "category")
	if err != nil {
		return nil, fmt.Errorf("transformModelOutput: %w", err)
	}
	notes, err := getOptionalStringField(raw, "notes")
	if err != nil {
		return nil, fmt.Errorf("transformModelOutput: %w", err)
	}

	items, err := transformLineItems(raw["line_items"])
	if err != nil {
		return nil, fmt.Errorf("transformModelOutput: %w", err)
	}

	out := &ExtractedInvoice{
		Invoice: domain.Invoice{
			UserID:    userID,
			Type:      invType,
			Status:    domain.InvoiceStatusPending,
			IssueDate: issue,
			DueDate:   due,
			Amount:    amount,
			Currency:  strings.ToUpper(strings.TrimSpace(currency)),
			LineItems: items,
		},
	}
	if vendor != nil {
		out.VendorName = *vendor
	}
	if category != nil {
		out.CategoryName = *category
	}
	if notes != nil {
		out.Invoice.Notes = *notes
	}
	return out, nil
}

func transformLineItems(v interface{}) ([]domain.LineItem, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("'line_items' is %T, want array", v)
	}

	items := make([]domain.LineItem, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("line item %d is %T, want object", i, item)
		}

		desc, err := getStringField(obj, "description", false)
		if err != nil {
			return nil, fmt.Errorf("line item %d: %w", i, err)
		}
		qty, err := getDecimalField(obj, "quantity", decimal.NewFromInt(1))
		if err != nil {
			return nil, fmt.Errorf("line item %d: %w", i, err)
		}
		unit, err := getDecimalField(obj, "unit_price", decimal.Zero)
		if err != nil {
			return nil, fmt.Errorf("line item %d: %w", i, err)
		}
		total, err := getDecimalField(obj, "total_price", qty.Mul(unit))
		if err != nil {
			return nil, fmt.Errorf("line item %d: %w", i, err)
		}

		li := domain.LineItem{
			Description: strings.TrimSpace(desc),
			Quantity:    qty,
			UnitPrice:   unit,
			TotalPrice:  total,
		}
		if li.TaxRate, err = getOptionalDecimalField(obj, "tax_rate"); err != nil {
			return nil, fmt.Errorf("line item %d: %w", i, err)
		}
		if li.TaxAmount, err = getOptionalDecimalField(obj, "tax_amount"); err != nil {
			return nil, fmt.Errorf("line item %d: %w", i, err)
		}
		if li.Discount, err = getOptionalDecimalField(obj, "discount"); err != nil {
			return nil, fmt.Errorf("line item %d: %w", i, err)
		}
		items = append(items, li)
	}
	return items, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
}

// getOptionalDecimalField accepts json.Number, float64 or a numeric string.
func getOptionalDecimalField(m map[string]interface{}, key string) (*decimal.Decimal, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}

	var (
		d   decimal.Decimal
		err error
	)
	switch val := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(val.String())
	case float64:
		d = decimal.NewFromFloat(val)
	case int:
		d = decimal.NewFromInt(int64(val))
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(val, ",", ""))
		if s == "" {
			return nil, nil
		}
		d, err = decimal.NewFromString(s)
	default:
		return nil, fmt.Errorf("field %q has type %T, want number or null", key, v)
	}
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	return &d, nil
}

func getDecimalField(m map[string]interface{}, key string, def decimal.Decimal) (decimal.Decimal, error) {
	d, err := getOptionalDecimalField(m, key)
	if err != nil {
		return decimal.Zero, err
	}
	if d == nil {
		return def, nil
	}
	return *d, nil
}
