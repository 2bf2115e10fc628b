package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bilix/bilix/internal/domain"
	"github.com/shopspring/decimal"
)

// MaxHorizonDays bounds a cash-flow projection.
const MaxHorizonDays = 365

// Baseline selects how the starting cash balance is derived. The invoice
// data carries no bank balance, so the choice is always explicit.
type Baseline string

const (
	// BaselineLifetime sums every PAID PAYMENT minus every PAID PURCHASE.
	BaselineLifetime Baseline = "lifetime"
	// BaselineSince adds the same sums, restricted to invoices issued on or
	// after Since, to OpeningBalance.
	BaselineSince Baseline = "since"
	// BaselineFixed uses OpeningBalance as is.
	BaselineFixed Baseline = "fixed"
)

// ParseBaseline accepts lifetime, since or fixed. Empty means lifetime.
func ParseBaseline(s string) (Baseline, error) {
	b := Baseline(strings.ToLower(strings.TrimSpace(s)))
	switch b {
	case "":
		return BaselineLifetime, nil
	case BaselineLifetime, BaselineSince, BaselineFixed:
		return b, nil
	}
	return "", fmt.Errorf("unknown cash baseline %q", s)
}

// BaselineConfig is the starting-balance definition used by a Projector.
type BaselineConfig struct {
	Mode           Baseline        `json:"mode"`
	Since          time.Time       `json:"since,omitempty"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

// CashFlowPoint is the projected position at the end of one day.
type CashFlowPoint struct {
	Day        int             `json:"day"`
	Date       time.Time       `json:"date"`
	Inflow     decimal.Decimal `json:"inflow"`
	Outflow    decimal.Decimal `json:"outflow"`
	Balance    decimal.Decimal `json:"balance"`
	InvoiceIDs []string        `json:"invoiceIds,omitempty"`
	OutflowIDs []string        `json:"outflowIds,omitempty"`
}

// CashFlowAggregate totals outstanding invoices that are not placed on a day.
type CashFlowAggregate struct {
	Count      int             `json:"count"`
	Inflow     decimal.Decimal `json:"inflow"`
	Outflow    decimal.Decimal `json:"outflow"`
	InvoiceIDs []string        `json:"invoiceIds"`
}

func newAggregate() CashFlowAggregate {
	return CashFlowAggregate{Inflow: decimal.Zero, Outflow: decimal.Zero, InvoiceIDs: []string{}}
}

func (a *CashFlowAggregate) add(inv domain.Invoice, amount decimal.Decimal) {
	a.Count++
	a.InvoiceIDs = append(a.InvoiceIDs, inv.ID)
	if inv.Type == domain.InvoiceTypePayment {
		a.Inflow = a.Inflow.Add(amount)
	} else {
		a.Outflow = a.Outflow.Add(amount)
	}
}

// CashFlowProjection is the day-by-day forecast from today to today+horizon.
type CashFlowProjection struct {
	Today           time.Time            `json:"today"`
	HorizonDays     int                  `json:"horizonDays"`
	Baseline        BaselineConfig       `json:"baseline"`
	StartingBalance decimal.Decimal      `json:"startingBalance"`
	Points          []CashFlowPoint      `json:"points"`
	MinBalance      decimal.Decimal      `json:"minBalance"`
	MinBalanceDate  time.Time            `json:"minBalanceDate"`
	EndingBalance   decimal.Decimal      `json:"endingBalance"`
	Unscheduled     CashFlowAggregate    `json:"unscheduled"`
	BeyondHorizon   CashFlowAggregate    `json:"beyondHorizon"`
	OverdueIDs      []string             `json:"overdueInvoiceIds"`
	StaleIDs        []string             `json:"staleInvoiceIds"`
	WarningCount    int                  `json:"warningCount"`
	Warnings        []DataQualityWarning `json:"warnings"`
}

// Projector forecasts the cash position from outstanding invoices.
type Projector struct {
	baseline     BaselineConfig
	baseCurrency string
}

// NewProjector builds a projector. An empty baseline mode means lifetime.
func NewProjector(baseline BaselineConfig, baseCurrency string) *Projector {
	if baseline.Mode == "" {
		baseline.Mode = BaselineLifetime
	}
	return &Projector{
		baseline:     baseline,
		baseCurrency: strings.ToUpper(strings.TrimSpace(baseCurrency)),
	}
}

// ValidateHorizon rejects horizons outside 1..MaxHorizonDays.
func ValidateHorizon(days int) error {
	if days < 1 || days > MaxHorizonDays {
		return fmt.Errorf("%w: %d days (want 1-%d)", ErrInvalidHorizon, days, MaxHorizonDays)
	}
	return nil
}

// Project returns horizonDays+1 points starting at today. OVERDUE invoices,
// and PENDING invoices whose due date has passed, are placed on day 0.
func (p *Projector) Project(invoices []domain.Invoice, today time.Time, horizonDays int) (CashFlowProjection, error) {
	if err := ValidateHorizon(horizonDays); err != nil {
		return CashFlowProjection{}, err
	}
	today = domain.DateOf(today)

	proj := CashFlowProjection{
		Today:         today,
		HorizonDays:   horizonDays,
		Baseline:      p.baseline,
		Points:        make([]CashFlowPoint, horizonDays+1),
		Unscheduled:   newAggregate(),
		BeyondHorizon: newAggregate(),
		OverdueIDs:    []string{},
		StaleIDs:      []string{},
		Warnings:      []DataQualityWarning{},
	}
	for i := range proj.Points {
		proj.Points[i] = CashFlowPoint{
			Day:     i,
			Date:    today.AddDate(0, 0, i),
			Inflow:  decimal.Zero,
			Outflow: decimal.Zero,
		}
	}

	start := p.baseline.OpeningBalance
	if p.baseline.Mode == BaselineLifetime {
		start = decimal.Zero
	}

	for _, inv := range sortedInvoices(invoices) {
		if !inv.Type.Valid() || !inv.Status.Valid() {
			continue
		}
		if p.baseCurrency != "" && !strings.EqualFold(inv.Currency, p.baseCurrency) {
			continue
		}
		if inv.Status != domain.InvoiceStatusPaid && !inv.Status.Outstanding() {
			continue
		}

		amount, ok := invoiceAmount(inv)
		if !ok {
			proj.Warnings = append(proj.Warnings, DataQualityWarning{
				Kind:      WarningMissingAmount,
				InvoiceID: inv.ID,
				Message:   "no usable amount, left out of the projection",
				Skipped:   true,
			})
			continue
		}

		if inv.Status == domain.InvoiceStatusPaid {
			if p.countsTowardBaseline(inv, today) {
				start = start.Add(signed(inv.Type, amount))
			}
			continue
		}

		day, placed := p.place(inv, today, horizonDays, &proj)
		if !placed {
			continue
		}
		pt := &proj.Points[day]
		if inv.Type == domain.InvoiceTypePayment {
			pt.Inflow = pt.Inflow.Add(amount)
		} else {
			pt.Outflow = pt.Outflow.Add(amount)
			pt.OutflowIDs = append(pt.OutflowIDs, inv.ID)
		}
		pt.InvoiceIDs = append(pt.InvoiceIDs, inv.ID)

		if inv.Status == domain.InvoiceStatusOverdue {
			proj.OverdueIDs = append(proj.OverdueIDs, inv.ID)
		}
	}

	proj.StartingBalance = start
	balance := start
	proj.MinBalance = start
	proj.MinBalanceDate = today
	for i := range proj.Points {
		pt := &proj.Points[i]
		balance = balance.Add(pt.Inflow).Sub(pt.Outflow)
		pt.Balance = balance
		if i == 0 || balance.LessThan(proj.MinBalance) {
			proj.MinBalance = balance
			proj.MinBalanceDate = pt.Date
		}
	}
	proj.EndingBalance = balance
	proj.WarningCount = len(proj.Warnings)

	return proj, nil
}

// place returns the day index of an outstanding invoice, or false when it
// goes to one of the aggregates instead.
func (p *Projector) place(inv domain.Invoice, today time.Time, horizonDays int, proj *CashFlowProjection) (int, bool) {
	if inv.Status == domain.InvoiceStatusOverdue {
		return 0, true
	}
	if inv.DueDate == nil {
		proj.Unscheduled.add(inv, mustAmount(inv))
		return 0, false
	}
	due := domain.DateOf(*inv.DueDate)
	if due.Before(today) {
		proj.StaleIDs = append(proj.StaleIDs, inv.ID)
		proj.Warnings = append(proj.Warnings, DataQualityWarning{
			Kind:      WarningStaleStatus,
			InvoiceID: inv.ID,
			Message:   fmt.Sprintf("status PENDING but due %s, projected as due today", due.Format("2006-01-02")),
		})
		return 0, true
	}
	day := int(due.Sub(today).Hours() / 24)
	if day > horizonDays {
		proj.BeyondHorizon.add(inv, mustAmount(inv))
		return 0, false
	}
	return day, true
}

func (p *Projector) countsTowardBaseline(inv domain.Invoice, today time.Time) bool {
	if inv.IssueDate.IsZero() || domain.DateOf(inv.IssueDate).After(today) {
		return false
	}
	switch p.baseline.Mode {
	case BaselineFixed:
		return false
	case BaselineSince:
		return !domain.DateOf(inv.IssueDate).Before(domain.DateOf(p.baseline.Since))
	default:
		return true
	}
}

// invoiceAmount is the stored amount, or the line-item total when the amount
// is missing. Negative or absent amounts are unusable.
func invoiceAmount(inv domain.Invoice) (decimal.Decimal, bool) {
	if inv.HasAmount() {
		if inv.Amount.IsNegative() {
			return decimal.Zero, false
		}
		return *inv.Amount, true
	}
	if len(inv.LineItems) == 0 {
		return decimal.Zero, false
	}
	total := inv.LineItemsTotal()
	if total.IsNegative() {
		return decimal.Zero, false
	}
	return total, true
}

func mustAmount(inv domain.Invoice) decimal.Decimal {
	amount, _ := invoiceAmount(inv)
	return amount
}

// signed is +amount for money in and -amount for money out.
func signed(typ domain.InvoiceType, amount decimal.Decimal) decimal.Decimal {
	if typ == domain.InvoiceTypePurchase {
		return amount.Neg()
	}
	return amount
}

// sortedIDs returns ids in ascending order without touching the input.
func sortedIDs(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}
