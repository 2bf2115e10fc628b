// Package api assembles the HTTP surface: routes, handlers and middleware.
package api

import (
	"net/http"

	"github.com/bilix/bilix/internal/api/handlers"
	"github.com/bilix/bilix/internal/api/middleware"
	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/gcs"
	"github.com/bilix/bilix/internal/jobs"
	"github.com/rs/zerolog"
)

// Deps are the services behind the routes. Storage, Publisher and Assistant
// may be nil; the matching endpoints then answer 503.
type Deps struct {
	Store     bq.Store
	Reports   handlers.ReportService
	Storage   gcs.StorageService
	Bucket    string
	Publisher jobs.Publisher
	Jobs      jobs.JobStore
	Assistant handlers.Assistant
	Log       zerolog.Logger
}

// NewRouter registers every route and wraps the mux in the middleware chain.
func NewRouter(d Deps) http.Handler {
	log := d.Log

	invoicesHandler := handlers.NewInvoicesHandler(d.Store, log)
	vendorsHandler := handlers.NewVendorsHandler(d.Store, log)
	categoriesHandler := handlers.NewCategoriesHandler(d.Store, log)
	reportsHandler := handlers.NewReportsHandler(d.Reports, log)
	jobsHandler := handlers.NewJobsHandler(d.Jobs, log)

	bucket := d.Bucket
	if d.Publisher == nil {
		bucket = ""
	}
	documentsHandler := handlers.NewDocumentsHandler(d.Store, d.Storage, d.Publisher, bucket, log)

	assistantHandler := handlers.NewAssistantHandler(d.Assistant, log)

	mux := http.NewServeMux()

	// Invoices
	mux.HandleFunc("GET /api/invoices", invoicesHandler.ListInvoices)
	mux.HandleFunc("POST /api/invoices", invoicesHandler.CreateInvoice)
	mux.HandleFunc("GET /api/invoices/{id}", func(w http.ResponseWriter, r *http.Request) {
		invoicesHandler.GetInvoice(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("PATCH /api/invoices/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		invoicesHandler.UpdateInvoiceStatus(w, r, r.PathValue("id"))
	})
	mux.HandleFunc("DELETE /api/invoices/{id}", func(w http.ResponseWriter, r *http.Request) {
		invoicesHandler.DeleteInvoice(w, r, r.PathValue("id"))
	})

	// Vendors and categories
	mux.HandleFunc("GET /api/vendors", vendorsHandler.ListVendors)
	mux.HandleFunc("POST /api/vendors", vendorsHandler.CreateVendor)
	mux.HandleFunc("GET /api/categories", categoriesHandler.ListCategories)
	mux.HandleFunc("POST /api/categories", categoriesHandler.CreateCategory)

	// Reports
	mux.HandleFunc("GET /api/reports/ledger", reportsHandler.Ledger)
	mux.HandleFunc("GET /api/reports/profit-loss", reportsHandler.ProfitLoss)
	mux.HandleFunc("GET /api/reports/balance-sheet", reportsHandler.BalanceSheet)
	mux.HandleFunc("GET /api/reports/trial-balance", reportsHandler.TrialBalance)
	mux.HandleFunc("GET /api/reports/general-ledger", reportsHandler.GeneralLedger)
	mux.HandleFunc("GET /api/reports/cash-flow", reportsHandler.CashFlow)
	mux.HandleFunc("GET /api/reports/alerts", reportsHandler.Alerts)
	mux.HandleFunc("GET /api/reports/dashboard", reportsHandler.Dashboard)

	// Documents
	mux.HandleFunc("GET /api/documents", documentsHandler.ListDocuments)
	mux.HandleFunc("POST /api/documents/upload", documentsHandler.UploadDocument)
	mux.HandleFunc("POST /api/documents/{id}/extract", func(w http.ResponseWriter, r *http.Request) {
		if d.Publisher == nil {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Extraction is not configured")
			return
		}
		documentsHandler.ExtractDocument(w, r, r.PathValue("id"))
	})

	// Jobs
	mux.HandleFunc("GET /api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if d.Jobs == nil {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Jobs are not configured")
			return
		}
		jobsHandler.ListJobs(w, r)
	})
	mux.HandleFunc("GET /api/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if d.Jobs == nil {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Jobs are not configured")
			return
		}
		jobsHandler.GetJob(w, r, r.PathValue("id"))
	})

	// Assistant
	mux.HandleFunc("POST /api/assistant/chat", assistantHandler.Chat)
	mux.HandleFunc("POST /api/assistant/transcribe", assistantHandler.Transcribe)
	mux.HandleFunc("POST /api/assistant/speech", assistantHandler.Speech)

	// Health check endpoint
	mux.HandleFunc("GET /health", handlers.Health)

	return middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth("/health")(mux),
				),
			),
		),
	)
}
