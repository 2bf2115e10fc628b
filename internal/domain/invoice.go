package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceType tells which way the money moves.
type InvoiceType string

const (
	// InvoiceTypePurchase is money owed by the user to a vendor.
	InvoiceTypePurchase InvoiceType = "PURCHASE"
	// InvoiceTypePayment is money owed to the user.
	InvoiceTypePayment InvoiceType = "PAYMENT"
)

// Valid reports whether t is a known invoice type.
func (t InvoiceType) Valid() bool {
	return t == InvoiceTypePurchase || t == InvoiceTypePayment
}

// ParseInvoiceType normalizes s and returns the matching type.
// The second return value is false when s is not a known type.
func ParseInvoiceType(s string) (InvoiceType, bool) {
	t := InvoiceType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.Valid()
}

// InvoiceStatus is the stored lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Outstanding reports whether the invoice still waits for settlement.
func (s InvoiceStatus) Outstanding() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusOverdue
}

// ParseInvoiceStatus normalizes s and returns the matching status.
func ParseInvoiceStatus(s string) (InvoiceStatus, bool) {
	st := InvoiceStatus(strings.ToUpper(strings.TrimSpace(s)))
	return st, st.Valid()
}

// Invoice is a single purchase or payment owned by one user.
// Amount is nil when the source record has no stored total.
type Invoice struct {
	ID     string        `json:"id"`
	UserID string        `json:"userId"`
	Type   InvoiceType   `json:"type"`
	Status InvoiceStatus `json:"status"`

	IssueDate time.Time  `json:"issueDate"`
	DueDate   *time.Time `json:"dueDate,omitempty"`

	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency string           `json:"currency"`

	CategoryID string   `json:"categoryId,omitempty"`
	VendorID   string   `json:"vendorId,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Notes      string   `json:"notes,omitempty"`

	LineItems []LineItem `json:"lineItems,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasAmount reports whether a stored total is present.
func (i *Invoice) HasAmount() bool {
	return i.Amount != nil
}

// LineItemsTotal sums the stored total price of every line item.
func (i *Invoice) LineItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range i.LineItems {
		total = total.Add(li.TotalPrice)
	}
	return total
}

// IsStale reports whether the invoice is still PENDING although its due date
// lies before today. today is truncated to the day in UTC.
func (i *Invoice) IsStale(today time.Time) bool {
	if i.Status != InvoiceStatusPending || i.DueDate == nil {
		return false
	}
	return DateOf(*i.DueDate).Before(DateOf(today))
}

// LineItem belongs to exactly one invoice.
type LineItem struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoiceId"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`

	TaxRate   *decimal.Decimal `json:"taxRate,omitempty"`
	TaxAmount *decimal.Decimal `json:"taxAmount,omitempty"`
	Discount  *decimal.Decimal `json:"discount,omitempty"`

	// Attributes is a free-form property bag. Reporting never reads it.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ExpectedTotal is quantity × unit price − discount + tax.
func (li *LineItem) ExpectedTotal() decimal.Decimal {
	total := li.Quantity.Mul(li.UnitPrice)
	if li.Discount != nil {
		total = total.Sub(*li.Discount)
	}
	if li.TaxAmount != nil {
		total = total.Add(*li.TaxAmount)
	} else if li.TaxRate != nil {
		total = total.Add(total.Mul(*li.TaxRate).Div(decimal.NewFromInt(100)))
	}
	return total
}

// Vendor is a counterparty the user buys from.
type Vendor struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Category groups invoices for the user's own bookkeeping.
type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// InvoiceFilter narrows an invoice listing. Zero values mean no restriction.
// From and To bound the issue date, inclusive.
type InvoiceFilter struct {
	From   *time.Time
	To     *time.Time
	Type   InvoiceType
	Status InvoiceStatus
}

// Match reports whether inv passes the filter.
func (f InvoiceFilter) Match(inv *Invoice) bool {
	issued := DateOf(inv.IssueDate)
	if f.From != nil && issued.Before(DateOf(*f.From)) {
		return false
	}
	if f.To != nil && issued.After(DateOf(*f.To)) {
		return false
	}
	if f.Type != "" && inv.Type != f.Type {
		return false
	}
	if f.Status != "" && inv.Status != f.Status {
		return false
	}
	return true
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
