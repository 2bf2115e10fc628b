package reporting

import (
	"testing"
	"time"

	"github.com/bilix/bilix/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// now is a Saturday.
var now = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	return domain.DateOf(now).AddDate(0, 0, offset)
}

func dayPtr(offset int) *time.Time {
	d := day(offset)
	return &d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func invoice(id string, typ domain.InvoiceType, status domain.InvoiceStatus, amount string, issued time.Time) domain.Invoice {
	inv := domain.Invoice{
		ID:        id,
		UserID:    "user-1",
		Type:      typ,
		Status:    status,
		IssueDate: issued,
		Currency:  "USD",
	}
	if amount != "" {
		inv.Amount = decPtr(amount)
	}
	return inv
}

func lineItem(id, qty, unit, total string) domain.LineItem {
	return domain.LineItem{
		ID:         id,
		Quantity:   dec(qty),
		UnitPrice:  dec(unit),
		TotalPrice: dec(total),
	}
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

// mixedInvoices covers every posting rule plus a cancelled record.
func mixedInvoices() []domain.Invoice {
	pendingSale := invoice("inv-2", domain.InvoiceTypePayment, domain.InvoiceStatusPending, "300", day(-5))
	pendingSale.DueDate = dayPtr(20)
	pendingBill := invoice("inv-3", domain.InvoiceTypePurchase, domain.InvoiceStatusPending, "200", day(-4))
	pendingBill.DueDate = dayPtr(10)

	return []domain.Invoice{
		invoice("inv-1", domain.InvoiceTypePayment, domain.InvoiceStatusPaid, "1000", day(-6)),
		pendingSale,
		pendingBill,
		invoice("inv-4", domain.InvoiceTypePurchase, domain.InvoiceStatusPaid, "100", day(-3)),
		invoice("inv-5", domain.InvoiceTypePayment, domain.InvoiceStatusCancelled, "9999", day(-2)),
	}
}
