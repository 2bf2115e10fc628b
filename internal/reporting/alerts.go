package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bilix/bilix/internal/domain"
	"github.com/shopspring/decimal"
)

// Severity ranks an alert.
type Severity string

const (
	SeverityDanger  Severity = "danger"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityDanger:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// AlertAction is a suggested follow-up link.
type AlertAction struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// FinancialAlert is one finding of the evaluator.
type FinancialAlert struct {
	ID          string          `json:"id"`
	Severity    Severity        `json:"severity"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	InvoiceIDs  []string        `json:"invoiceIds"`
	Action      *AlertAction    `json:"action,omitempty"`

	cause string
}

// Thresholds configures the alert rules.
type Thresholds struct {
	OverdueRevenueFraction decimal.Decimal `json:"overdueRevenueFraction"`
	VendorConcentration    decimal.Decimal `json:"vendorConcentration"`
	MinVendors             int             `json:"minVendors"`
	UpcomingDays           int             `json:"upcomingDays"`
	TrailingDays           int             `json:"trailingDays"`
}

// DefaultThresholds returns the built-in rule thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OverdueRevenueFraction: decimal.NewFromFloat(0.5),
		VendorConcentration:    decimal.NewFromFloat(0.4),
		MinVendors:             2,
		UpcomingDays:           7,
		TrailingDays:           90,
	}
}

// Evaluator derives alerts from invoices and a cash-flow projection.
type Evaluator struct {
	t            Thresholds
	baseCurrency string
}

// NewEvaluator builds an evaluator. Non-positive day and vendor counts fall
// back to the defaults.
func NewEvaluator(t Thresholds, baseCurrency string) *Evaluator {
	def := DefaultThresholds()
	if t.MinVendors <= 0 {
		t.MinVendors = def.MinVendors
	}
	if t.UpcomingDays <= 0 {
		t.UpcomingDays = def.UpcomingDays
	}
	if t.TrailingDays <= 0 {
		t.TrailingDays = def.TrailingDays
	}
	return &Evaluator{t: t, baseCurrency: strings.ToUpper(strings.TrimSpace(baseCurrency))}
}

// Thresholds returns the thresholds in use.
func (e *Evaluator) Thresholds() Thresholds {
	return e.t
}

// Evaluate returns at most one alert per cause, most severe first, then by
// amount descending and id ascending.
func (e *Evaluator) Evaluate(invoices []domain.Invoice, proj CashFlowProjection, today time.Time) []FinancialAlert {
	today = domain.DateOf(today)
	trailingStart := today.AddDate(0, 0, -(e.t.TrailingDays - 1))

	var (
		candidates   []FinancialAlert
		overdueIDs   []string
		overdueTotal = decimal.Zero
		staleIDs     []string
		staleTotal   = decimal.Zero
		revenue      = decimal.Zero
		spend        = decimal.Zero
		byVendor     = map[string]decimal.Decimal{}
		vendorIDs    = map[string][]string{}
	)

	for _, inv := range sortedInvoices(invoices) {
		if !inv.Type.Valid() || !inv.Status.Valid() || inv.Status == domain.InvoiceStatusCancelled {
			continue
		}
		if e.baseCurrency != "" && !strings.EqualFold(inv.Currency, e.baseCurrency) {
			continue
		}
		amount, ok := invoiceAmount(inv)
		if !ok {
			continue
		}

		issued := domain.DateOf(inv.IssueDate)
		inWindow := !inv.IssueDate.IsZero() && !issued.Before(trailingStart) && !issued.After(today)
		if inWindow {
			switch inv.Type {
			case domain.InvoiceTypePayment:
				revenue = revenue.Add(amount)
			case domain.InvoiceTypePurchase:
				spend = spend.Add(amount)
				if inv.VendorID != "" {
					byVendor[inv.VendorID] = byVendor[inv.VendorID].Add(amount)
					vendorIDs[inv.VendorID] = append(vendorIDs[inv.VendorID], inv.ID)
				}
			}
		}

		switch {
		case inv.Status == domain.InvoiceStatusOverdue:
			overdueIDs = append(overdueIDs, inv.ID)
			overdueTotal = overdueTotal.Add(amount)
		case inv.IsStale(today):
			staleIDs = append(staleIDs, inv.ID)
			staleTotal = staleTotal.Add(amount)
		case inv.Status == domain.InvoiceStatusPending && inv.DueDate != nil:
			due := domain.DateOf(*inv.DueDate)
			if !due.After(today.AddDate(0, 0, e.t.UpcomingDays)) {
				candidates = append(candidates, upcomingAlert(inv, amount, due))
			}
		}
	}

	if proj.MinBalance.IsNegative() {
		candidates = append(candidates, FinancialAlert{
			ID:       "negative-cash",
			Severity: SeverityDanger,
			Title:    "Projected cash goes negative",
			Description: fmt.Sprintf("Projected balance falls to %s on %s.",
				proj.MinBalance.StringFixed(2), proj.MinBalanceDate.Format("2006-01-02")),
			Amount:     proj.MinBalance.Neg(),
			InvoiceIDs: outflowsUntil(proj, proj.MinBalanceDate),
			Action:     &AlertAction{Label: "View cash flow", Href: "/reports/cash-flow"},
			cause:      "negative-cash",
		})
	}

	if len(overdueIDs) > 0 {
		limit := revenue.Mul(e.t.OverdueRevenueFraction)
		if overdueTotal.GreaterThan(limit) {
			candidates = append(candidates, FinancialAlert{
				ID:       "overdue-exposure",
				Severity: SeverityDanger,
				Title:    "Overdue exposure is high",
				Description: fmt.Sprintf("%d overdue invoice(s) total %s against %s revenue in the last %d days.",
					len(overdueIDs), overdueTotal.StringFixed(2), revenue.StringFixed(2), e.t.TrailingDays),
				Amount:     overdueTotal,
				InvoiceIDs: sortedIDs(overdueIDs),
				Action:     &AlertAction{Label: "Review overdue invoices", Href: "/invoices?status=OVERDUE"},
				cause:      "overdue",
			})
		}
		if !proj.MinBalance.IsNegative() {
			candidates = append(candidates, FinancialAlert{
				ID:          "overdue",
				Severity:    SeverityWarning,
				Title:       "Overdue invoices",
				Description: fmt.Sprintf("%d invoice(s) are overdue, totalling %s.", len(overdueIDs), overdueTotal.StringFixed(2)),
				Amount:      overdueTotal,
				InvoiceIDs:  sortedIDs(overdueIDs),
				Action:      &AlertAction{Label: "Review overdue invoices", Href: "/invoices?status=OVERDUE"},
				cause:       "overdue",
			})
		}
	}

	if len(staleIDs) > 0 {
		candidates = append(candidates, FinancialAlert{
			ID:          "stale-status",
			Severity:    SeverityWarning,
			Title:       "Pending invoices past due",
			Description: fmt.Sprintf("%d pending invoice(s) are past their due date and may need a status update.", len(staleIDs)),
			Amount:      staleTotal,
			InvoiceIDs:  sortedIDs(staleIDs),
			Action:      &AlertAction{Label: "Update statuses", Href: "/invoices?status=PENDING"},
			cause:       "stale-status",
		})
	}

	if len(byVendor) >= e.t.MinVendors && spend.IsPositive() {
		for vendor, total := range byVendor {
			share := total.Div(spend)
			if !share.GreaterThan(e.t.VendorConcentration) {
				continue
			}
			candidates = append(candidates, FinancialAlert{
				ID:       "vendor-concentration:" + vendor,
				Severity: SeverityWarning,
				Title:    "Spend concentrated on one vendor",
				Description: fmt.Sprintf("Vendor %s accounts for %s%% of spend in the last %d days.",
					vendor, share.Mul(decimal.NewFromInt(100)).StringFixed(0), e.t.TrailingDays),
				Amount:     total,
				InvoiceIDs: sortedIDs(vendorIDs[vendor]),
				Action:     &AlertAction{Label: "View vendor", Href: "/vendors/" + vendor},
				cause:      "vendor-concentration:" + vendor,
			})
		}
	}

	return dedupeAlerts(candidates)
}

func upcomingAlert(inv domain.Invoice, amount decimal.Decimal, due time.Time) FinancialAlert {
	verb := "pay"
	if inv.Type == domain.InvoiceTypePayment {
		verb = "collect"
	}
	return FinancialAlert{
		ID:          "upcoming:" + inv.ID,
		Severity:    SeverityInfo,
		Title:       "Invoice due soon",
		Description: fmt.Sprintf("%s to %s due %s.", amount.StringFixed(2), verb, due.Format("2006-01-02")),
		Amount:      amount,
		InvoiceIDs:  []string{inv.ID},
		Action:      &AlertAction{Label: "Open invoice", Href: "/invoices/" + inv.ID},
		cause:       "upcoming:" + inv.ID,
	}
}

// outflowsUntil lists the outgoing invoices placed on or before date.
func outflowsUntil(proj CashFlowProjection, date time.Time) []string {
	ids := []string{}
	for _, pt := range proj.Points {
		if pt.Date.After(date) {
			break
		}
		ids = append(ids, pt.OutflowIDs...)
	}
	return sortedIDs(ids)
}

// dedupeAlerts keeps the most severe alert per cause and orders the result.
func dedupeAlerts(candidates []FinancialAlert) []FinancialAlert {
	best := make(map[string]FinancialAlert, len(candidates))
	for _, a := range candidates {
		cur, ok := best[a.cause]
		if !ok || a.Severity.rank() < cur.Severity.rank() ||
			(a.Severity == cur.Severity && a.Amount.GreaterThan(cur.Amount)) {
			best[a.cause] = a
		}
	}

	out := make([]FinancialAlert, 0, len(best))
	for _, a := range best {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if ri, rj := out[i].Severity.rank(), out[j].Severity.rank(); ri != rj {
			return ri < rj
		}
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}
