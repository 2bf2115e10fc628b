package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/bilix/bilix/internal/api/middleware"
	"github.com/bilix/bilix/internal/reporting"
	"github.com/rs/zerolog"
)

// defaultHorizonDays is used when a request carries no horizon.
const defaultHorizonDays = 30

// ReportService is the reporting surface exposed over HTTP.
type ReportService interface {
	Ledger(ctx context.Context, userID string, q reporting.Query) (reporting.LedgerResult, error)
	ProfitLoss(ctx context.Context, userID string, q reporting.Query) (reporting.ProfitLoss, error)
	TrialBalance(ctx context.Context, userID string, q reporting.Query) (reporting.TrialBalance, error)
	BalanceSheet(ctx context.Context, userID string, q reporting.Query) (reporting.BalanceSheet, error)
	GeneralLedger(ctx context.Context, userID string, q reporting.Query, glq reporting.GeneralLedgerQuery) (reporting.GeneralLedger, error)
	CashFlow(ctx context.Context, userID string, horizonDays int) (reporting.CashFlowProjection, error)
	Alerts(ctx context.Context, userID string, horizonDays int) ([]reporting.FinancialAlert, error)
	Dashboard(ctx context.Context, userID string, q reporting.Query, horizonDays int) (reporting.Dashboard, error)
}

var _ ReportService = (*reporting.Service)(nil)

// ReportsHandler serves the financial reports.
type ReportsHandler struct {
	reports ReportService
	log     zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(reports ReportService, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{reports: reports, log: log}
}

func reportQuery(r *http.Request) reporting.Query {
	q := r.URL.Query()
	return reporting.Query{
		Timeframe:   q.Get("timeframe"),
		Granularity: q.Get("granularity"),
	}
}

func horizonParam(r *http.Request) (int, error) {
	return intParam(r, "horizon", defaultHorizonDays)
}

// writeReportError maps reporting errors: bad input → 400, store failure → 502.
func (h *ReportsHandler) writeReportError(w http.ResponseWriter, err error, report string) {
	switch {
	case errors.Is(err, errBadRequest), reporting.IsInputError(err):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, reporting.ErrUpstreamFetch):
		h.log.Error().Err(err).Str("report", report).Msg("Invoice data unavailable")
		middleware.WriteError(w, http.StatusBadGateway, "Invoice data unavailable")
	default:
		h.log.Error().Err(err).Str("report", report).Msg("Failed to build report")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build report")
	}
}

// Ledger handles GET /api/reports/ledger
func (h *ReportsHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	res, err := h.reports.Ledger(r.Context(), userID(r), reportQuery(r))
	if err != nil {
		h.writeReportError(w, err, "ledger")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// ProfitLoss handles GET /api/reports/profit-loss
func (h *ReportsHandler) ProfitLoss(w http.ResponseWriter, r *http.Request) {
	res, err := h.reports.ProfitLoss(r.Context(), userID(r), reportQuery(r))
	if err != nil {
		h.writeReportError(w, err, "profit-loss")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// TrialBalance handles GET /api/reports/trial-balance
func (h *ReportsHandler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	res, err := h.reports.TrialBalance(r.Context(), userID(r), reportQuery(r))
	if err != nil {
		h.writeReportError(w, err, "trial-balance")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// BalanceSheet handles GET /api/reports/balance-sheet
func (h *ReportsHandler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	res, err := h.reports.BalanceSheet(r.Context(), userID(r), reportQuery(r))
	if err != nil {
		h.writeReportError(w, err, "balance-sheet")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// GeneralLedger handles GET /api/reports/general-ledger?account=&limit=&offset=
func (h *ReportsHandler) GeneralLedger(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		h.writeReportError(w, err, "general-ledger")
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		h.writeReportError(w, err, "general-ledger")
		return
	}

	glq := reporting.GeneralLedgerQuery{
		Account: r.URL.Query().Get("account"),
		Limit:   limit,
		Offset:  offset,
	}
	res, err := h.reports.GeneralLedger(r.Context(), userID(r), reportQuery(r), glq)
	if err != nil {
		h.writeReportError(w, err, "general-ledger")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// CashFlow handles GET /api/reports/cash-flow?horizon=
func (h *ReportsHandler) CashFlow(w http.ResponseWriter, r *http.Request) {
	horizon, err := horizonParam(r)
	if err != nil {
		h.writeReportError(w, err, "cash-flow")
		return
	}
	res, err := h.reports.CashFlow(r.Context(), userID(r), horizon)
	if err != nil {
		h.writeReportError(w, err, "cash-flow")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// Alerts handles GET /api/reports/alerts?horizon=
func (h *ReportsHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	horizon, err := horizonParam(r)
	if err != nil {
		h.writeReportError(w, err, "alerts")
		return
	}
	alerts, err := h.reports.Alerts(r.Context(), userID(r), horizon)
	if err != nil {
		h.writeReportError(w, err, "alerts")
		return
	}
	if alerts == nil {
		alerts = []reporting.FinancialAlert{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// Dashboard handles GET /api/reports/dashboard
func (h *ReportsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	horizon, err := horizonParam(r)
	if err != nil {
		h.writeReportError(w, err, "dashboard")
		return
	}
	res, err := h.reports.Dashboard(r.Context(), userID(r), reportQuery(r), horizon)
	if err != nil {
		h.writeReportError(w, err, "dashboard")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}
