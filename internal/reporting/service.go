package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/bilix/bilix/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// InvoiceFilter narrows an invoice fetch.
type InvoiceFilter = domain.InvoiceFilter

// InvoiceLister supplies a user's invoices with their line items.
type InvoiceLister interface {
	ListInvoices(ctx context.Context, userID string, filter InvoiceFilter) ([]domain.Invoice, error)
}

// Clock returns the current time.
type Clock func() time.Time

// Query selects the reporting period.
type Query struct {
	Timeframe   string
	Granularity string
}

// Dashboard bundles every report computed from a single invoice snapshot.
type Dashboard struct {
	GeneratedAt  time.Time          `json:"generatedAt"`
	Period       Period             `json:"period"`
	Posted       int                `json:"posted"`
	Skipped      int                `json:"skipped"`
	Cancelled    int                `json:"cancelled"`
	ProfitLoss   ProfitLoss         `json:"profitLoss"`
	BalanceSheet BalanceSheet       `json:"balanceSheet"`
	TrialBalance TrialBalance       `json:"trialBalance"`
	CashFlow     CashFlowProjection `json:"cashFlow"`
	Alerts       []FinancialAlert   `json:"alerts"`
}

// Service fetches invoices once per call and runs the pure builders over
// that snapshot.
type Service struct {
	store      InvoiceLister
	aggregator *Aggregator
	projector  *Projector
	evaluator  *Evaluator
	now        Clock
	log        zerolog.Logger
}

// NewService creates a reporting service.
func NewService(store InvoiceLister, opts Options, log zerolog.Logger) *Service {
	return &Service{
		store:      store,
		aggregator: NewAggregator(opts.Chart, opts.Tolerance, opts.BaseCurrency),
		projector:  NewProjector(opts.Baseline, opts.BaseCurrency),
		evaluator:  NewEvaluator(opts.Thresholds, opts.BaseCurrency),
		now:        time.Now,
		log:        log,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(c Clock) *Service {
	s.now = c
	return s
}

// Chart returns the chart of accounts in use.
func (s *Service) Chart() ChartOfAccounts {
	return s.aggregator.Chart()
}

// Ledger returns the ledger entries for the period.
func (s *Service) Ledger(ctx context.Context, userID string, q Query) (LedgerResult, error) {
	now := s.now()
	period, err := resolveQuery(q, now)
	if err != nil {
		return LedgerResult{}, &ReportError{Op: "Ledger", Err: err}
	}
	invoices, err := s.fetch(ctx, "Ledger", userID, period)
	if err != nil {
		return LedgerResult{}, err
	}
	return s.aggregator.Aggregate(invoices, period, now), nil
}

// ProfitLoss builds the profit and loss statement for the period.
func (s *Service) ProfitLoss(ctx context.Context, userID string, q Query) (ProfitLoss, error) {
	ledger, err := s.Ledger(ctx, userID, q)
	if err != nil {
		return ProfitLoss{}, err
	}
	return BuildProfitLoss(ledger, s.Chart()), nil
}

// TrialBalance builds the trial balance for the period.
func (s *Service) TrialBalance(ctx context.Context, userID string, q Query) (TrialBalance, error) {
	ledger, err := s.Ledger(ctx, userID, q)
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(ledger, s.Chart()), nil
}

// BalanceSheet builds the balance sheet as of the end of the period.
func (s *Service) BalanceSheet(ctx context.Context, userID string, q Query) (BalanceSheet, error) {
	now := s.now()
	period, err := resolveQuery(q, now)
	if err != nil {
		return BalanceSheet{}, &ReportError{Op: "BalanceSheet", Err: err}
	}
	asOf := period.UpTo()
	invoices, err := s.fetch(ctx, "BalanceSheet", userID, asOf)
	if err != nil {
		return BalanceSheet{}, err
	}
	return BuildBalanceSheet(s.aggregator.Aggregate(invoices, asOf, now), s.Chart()), nil
}

// GeneralLedger lists ledger entries for the period with running balances.
func (s *Service) GeneralLedger(ctx context.Context, userID string, q Query, glq GeneralLedgerQuery) (GeneralLedger, error) {
	ledger, err := s.Ledger(ctx, userID, q)
	if err != nil {
		return GeneralLedger{}, err
	}
	gl, err := BuildGeneralLedger(ledger, s.Chart(), glq)
	if err != nil {
		return GeneralLedger{}, &ReportError{Op: "GeneralLedger", Err: err}
	}
	return gl, nil
}

// CashFlow projects the cash position over the next horizonDays days.
func (s *Service) CashFlow(ctx context.Context, userID string, horizonDays int) (CashFlowProjection, error) {
	if err := ValidateHorizon(horizonDays); err != nil {
		return CashFlowProjection{}, &ReportError{Op: "CashFlow", Err: err}
	}
	invoices, err := s.fetch(ctx, "CashFlow", userID, AllTime())
	if err != nil {
		return CashFlowProjection{}, err
	}
	proj, err := s.projector.Project(invoices, s.now(), horizonDays)
	if err != nil {
		return CashFlowProjection{}, &ReportError{Op: "CashFlow", Err: err}
	}
	return proj, nil
}

// Alerts evaluates the alert rules against a projection of horizonDays.
func (s *Service) Alerts(ctx context.Context, userID string, horizonDays int) ([]FinancialAlert, error) {
	if err := ValidateHorizon(horizonDays); err != nil {
		return nil, &ReportError{Op: "Alerts", Err: err}
	}
	invoices, err := s.fetch(ctx, "Alerts", userID, AllTime())
	if err != nil {
		return nil, err
	}
	now := s.now()
	proj, err := s.projector.Project(invoices, now, horizonDays)
	if err != nil {
		return nil, &ReportError{Op: "Alerts", Err: err}
	}
	return s.evaluator.Evaluate(invoices, proj, now), nil
}

// Dashboard computes every report from one snapshot so that figures agree
// across statements. The builders run concurrently.
func (s *Service) Dashboard(ctx context.Context, userID string, q Query, horizonDays int) (Dashboard, error) {
	now := s.now()
	period, err := resolveQuery(q, now)
	if err != nil {
		return Dashboard{}, &ReportError{Op: "Dashboard", Err: err}
	}
	if err := ValidateHorizon(horizonDays); err != nil {
		return Dashboard{}, &ReportError{Op: "Dashboard", Err: err}
	}

	invoices, err := s.fetch(ctx, "Dashboard", userID, AllTime())
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{GeneratedAt: now.UTC(), Period: period}
	chart := s.Chart()

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		ledger := s.aggregator.Aggregate(invoices, period, now)
		d.Posted, d.Skipped, d.Cancelled = ledger.Posted, ledger.Skipped, ledger.Cancelled
		d.ProfitLoss = BuildProfitLoss(ledger, chart)
		d.TrialBalance = BuildTrialBalance(ledger, chart)
		return nil
	})
	g.Go(func() error {
		d.BalanceSheet = BuildBalanceSheet(s.aggregator.Aggregate(invoices, period.UpTo(), now), chart)
		return nil
	})
	g.Go(func() error {
		proj, err := s.projector.Project(invoices, now, horizonDays)
		if err != nil {
			return err
		}
		d.CashFlow = proj
		d.Alerts = s.evaluator.Evaluate(invoices, proj, now)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, &ReportError{Op: "Dashboard", Err: err}
	}

	s.log.Debug().
		Str("user_id", userID).
		Str("timeframe", period.Timeframe).
		Int("invoices", len(invoices)).
		Int("alerts", len(d.Alerts)).
		Msg("Dashboard computed")

	return d, nil
}

// fetch reads the user's invoices. Store failures abort the report.
func (s *Service) fetch(ctx context.Context, op, userID string, period Period) ([]domain.Invoice, error) {
	var filter InvoiceFilter
	if period.Bounded {
		if !period.Start.IsZero() {
			from := period.Start
			filter.From = &from
		}
		to := period.End
		filter.To = &to
	}

	invoices, err := s.store.ListInvoices(ctx, userID, filter)
	if err != nil {
		s.log.Error().Err(err).Str("op", op).Str("user_id", userID).Msg("Failed to fetch invoices")
		return nil, &ReportError{Op: op, Err: fmt.Errorf("%w: %w", ErrUpstreamFetch, err)}
	}
	return invoices, nil
}

func resolveQuery(q Query, now time.Time) (Period, error) {
	token := q.Timeframe
	if token == "" {
		token = Timeframe30Days
	}
	period, err := ResolveTimeframe(token, now)
	if err != nil {
		return Period{}, err
	}
	return period.WithGranularity(q.Granularity)
}
