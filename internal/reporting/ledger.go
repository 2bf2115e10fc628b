package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bilix/bilix/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultTolerance is the largest line-item divergence treated as rounding.
var DefaultTolerance = decimal.New(1, -2)

// LedgerEntry is one side of an invoice posting. Exactly one of Debit and
// Credit is non-zero.
type LedgerEntry struct {
	Date         time.Time          `json:"date"`
	Period       string             `json:"period"`
	Account      Account            `json:"category"`
	Debit        decimal.Decimal    `json:"debit"`
	Credit       decimal.Decimal    `json:"credit"`
	InvoiceID    string             `json:"invoiceId"`
	InvoiceType  domain.InvoiceType `json:"invoiceType"`
	VendorID     string             `json:"vendorId,omitempty"`
	CategoryID   string             `json:"categoryId,omitempty"`
	Currency     string             `json:"currency"`
	Unreconciled bool               `json:"unreconciled,omitempty"`
}

// Amount is the non-zero side of the entry.
func (e LedgerEntry) Amount() decimal.Decimal {
	if e.Debit.IsZero() {
		return e.Credit
	}
	return e.Debit
}

// LedgerResult is the output of one aggregation run.
type LedgerResult struct {
	Period    Period               `json:"period"`
	Entries   []LedgerEntry        `json:"entries"`
	Warnings  []DataQualityWarning `json:"warnings"`
	Posted    int                  `json:"posted"`
	Skipped   int                  `json:"skipped"`
	Cancelled int                  `json:"cancelled"`
}

// Aggregator turns invoices into ledger entries.
type Aggregator struct {
	chart        ChartOfAccounts
	tolerance    decimal.Decimal
	baseCurrency string
}

// NewAggregator builds an aggregator. A chart without accounts falls back to
// DefaultChart and a negative tolerance to DefaultTolerance.
func NewAggregator(chart ChartOfAccounts, tolerance decimal.Decimal, baseCurrency string) *Aggregator {
	if len(chart.Accounts) == 0 {
		chart = DefaultChart()
	}
	if tolerance.IsNegative() {
		tolerance = DefaultTolerance
	}
	return &Aggregator{
		chart:        chart,
		tolerance:    tolerance,
		baseCurrency: strings.ToUpper(strings.TrimSpace(baseCurrency)),
	}
}

// Chart returns the chart of accounts in use.
func (a *Aggregator) Chart() ChartOfAccounts {
	return a.chart
}

// Aggregate posts every non-cancelled invoice issued inside period. Records
// that cannot be posted are skipped and reported as warnings. today is used
// to flag PENDING invoices whose due date has passed.
func (a *Aggregator) Aggregate(invoices []domain.Invoice, period Period, today time.Time) LedgerResult {
	result := LedgerResult{
		Period:   period,
		Entries:  []LedgerEntry{},
		Warnings: []DataQualityWarning{},
	}

	for _, inv := range sortedInvoices(invoices) {
		if inv.IssueDate.IsZero() {
			// Undated invoices fall outside every bounded period; they are
			// reported once, on the all-time ledger.
			if !period.Bounded {
				result.skip(inv.ID, WarningMissingIssueDate, "invoice has no issue date")
			}
			continue
		}
		if !period.Contains(inv.IssueDate) {
			continue
		}
		if !inv.Type.Valid() {
			result.skip(inv.ID, WarningUnknownType, fmt.Sprintf("unknown invoice type %q", inv.Type))
			continue
		}
		if !inv.Status.Valid() {
			result.skip(inv.ID, WarningUnknownStatus, fmt.Sprintf("unknown invoice status %q", inv.Status))
			continue
		}
		if inv.Status == domain.InvoiceStatusCancelled {
			result.Cancelled++
			continue
		}
		if a.baseCurrency != "" && !strings.EqualFold(inv.Currency, a.baseCurrency) {
			result.skip(inv.ID, WarningCurrencyMismatch,
				fmt.Sprintf("currency %q differs from reporting currency %q", inv.Currency, a.baseCurrency))
			continue
		}

		amount, unreconciled, ok := a.resolveAmount(inv, &result)
		if !ok {
			continue
		}
		a.checkLineItems(inv, &result)
		if inv.IsStale(today) {
			result.warn(DataQualityWarning{
				Kind:      WarningStaleStatus,
				InvoiceID: inv.ID,
				Message:   fmt.Sprintf("status PENDING but due %s", inv.DueDate.Format("2006-01-02")),
			})
		}

		rule, found := a.chart.Rule(inv.Type, inv.Status == domain.InvoiceStatusPaid)
		if !found {
			result.skip(inv.ID, WarningUnknownType, fmt.Sprintf("no posting rule for %s", inv.Type))
			continue
		}

		result.Posted++
		if amount.IsZero() {
			continue
		}

		base := LedgerEntry{
			Date:         domain.DateOf(inv.IssueDate),
			Period:       BucketKey(inv.IssueDate, period.Granularity),
			InvoiceID:    inv.ID,
			InvoiceType:  inv.Type,
			VendorID:     inv.VendorID,
			CategoryID:   inv.CategoryID,
			Currency:     inv.Currency,
			Unreconciled: unreconciled,
		}
		debit, credit := base, base
		debit.Account, debit.Debit, debit.Credit = rule.Debit, amount, decimal.Zero
		credit.Account, credit.Debit, credit.Credit = rule.Credit, decimal.Zero, amount
		result.Entries = append(result.Entries, debit, credit)
	}

	sort.SliceStable(result.Warnings, func(i, j int) bool {
		wi, wj := result.Warnings[i], result.Warnings[j]
		if wi.InvoiceID != wj.InvoiceID {
			return wi.InvoiceID < wj.InvoiceID
		}
		if wi.Kind != wj.Kind {
			return wi.Kind < wj.Kind
		}
		return wi.LineItemID < wj.LineItemID
	})

	return result
}

// resolveAmount picks the amount to post. The stored amount wins; line items
// only stand in when it is missing.
func (a *Aggregator) resolveAmount(inv domain.Invoice, result *LedgerResult) (decimal.Decimal, bool, bool) {
	if !inv.HasAmount() {
		if len(inv.LineItems) == 0 {
			result.skip(inv.ID, WarningMissingAmount, "invoice has neither an amount nor line items")
			return decimal.Zero, false, false
		}
		total := inv.LineItemsTotal()
		if total.IsNegative() {
			result.skip(inv.ID, WarningNegativeAmount, fmt.Sprintf("line items sum to %s", total.StringFixed(2)))
			return decimal.Zero, false, false
		}
		result.warn(DataQualityWarning{
			Kind:      WarningAmountFromItems,
			InvoiceID: inv.ID,
			Message:   fmt.Sprintf("amount missing, using line item total %s", total.StringFixed(2)),
		})
		return total, false, true
	}

	amount := *inv.Amount
	if amount.IsNegative() {
		result.skip(inv.ID, WarningNegativeAmount, fmt.Sprintf("amount %s is negative", amount.StringFixed(2)))
		return decimal.Zero, false, false
	}

	if len(inv.LineItems) == 0 {
		return amount, false, true
	}
	total := inv.LineItemsTotal()
	if total.Sub(amount).Abs().GreaterThan(a.tolerance) {
		result.warn(DataQualityWarning{
			Kind:      WarningUnreconciled,
			InvoiceID: inv.ID,
			Message: fmt.Sprintf("line items sum to %s but stored amount is %s",
				total.StringFixed(2), amount.StringFixed(2)),
		})
		return amount, true, true
	}
	return amount, false, true
}

func (a *Aggregator) checkLineItems(inv domain.Invoice, result *LedgerResult) {
	for _, li := range inv.LineItems {
		expected := li.ExpectedTotal()
		if expected.Sub(li.TotalPrice).Abs().GreaterThan(a.tolerance) {
			result.warn(DataQualityWarning{
				Kind:       WarningLineItemMismatch,
				InvoiceID:  inv.ID,
				LineItemID: li.ID,
				Message: fmt.Sprintf("total %s does not match quantity x unit price (%s)",
					li.TotalPrice.StringFixed(2), expected.StringFixed(2)),
			})
		}
	}
}

func (r *LedgerResult) warn(w DataQualityWarning) {
	r.Warnings = append(r.Warnings, w)
}

func (r *LedgerResult) skip(invoiceID string, kind WarningKind, msg string) {
	r.Skipped++
	r.warn(DataQualityWarning{Kind: kind, InvoiceID: invoiceID, Message: msg, Skipped: true})
}

// sortedInvoices returns a copy ordered by issue day, then ID.
func sortedInvoices(invoices []domain.Invoice) []domain.Invoice {
	out := make([]domain.Invoice, len(invoices))
	copy(out, invoices)
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := domain.DateOf(out[i].IssueDate), domain.DateOf(out[j].IssueDate)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
