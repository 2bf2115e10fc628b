package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/bilix/bilix/internal/api/middleware"
	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const dateFormat = "2006-01-02"

// InvoiceStore is the persistence the invoice endpoints need.
type InvoiceStore interface {
	bq.InvoiceRepository
	bq.VendorRepository
	bq.CategoryRepository
}

// InvoicesHandler handles invoice endpoints.
type InvoicesHandler struct {
	repo InvoiceStore
	log  zerolog.Logger
}

// NewInvoicesHandler creates a new invoices handler.
func NewInvoicesHandler(repo InvoiceStore, log zerolog.Logger) *InvoicesHandler {
	return &InvoicesHandler{repo: repo, log: log}
}

// ListInvoices handles GET /api/invoices?from=&to=&type=&status=
func (h *InvoicesHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	filter, err := parseInvoiceFilter(r)
	if err != nil {
		writeStoreError(w, h.log, err, "Failed to list invoices")
		return
	}

	invoices, err := h.repo.ListInvoices(r.Context(), userID(r), filter)
	if err != nil {
		writeStoreError(w, h.log, err, "Failed to list invoices")
		return
	}
	if invoices == nil {
		invoices = []domain.Invoice{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"count":    len(invoices),
	})
}

func parseInvoiceFilter(r *http.Request) (domain.InvoiceFilter, error) {
	q := r.URL.Query()
	var f domain.InvoiceFilter

	if s := q.Get("from"); s != "" {
		d, err := time.Parse(dateFormat, s)
		if err != nil {
			return f, badRequest("invalid from date %q", s)
		}
		f.From = &d
	}
	if s := q.Get("to"); s != "" {
		d, err := time.Parse(dateFormat, s)
		if err != nil {
			return f, badRequest("invalid to date %q", s)
		}
		f.To = &d
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, badRequest("to is before from")
	}
	if s := q.Get("type"); s != "" {
		t, ok := domain.ParseInvoiceType(s)
		if !ok {
			return f, badRequest("unknown invoice type %q", s)
		}
		f.Type = t
	}
	if s := q.Get("status"); s != "" {
		st, ok := domain.ParseInvoiceStatus(s)
		if !ok {
			return f, badRequest("unknown invoice status %q", s)
		}
		f.Status = st
	}
	return f, nil
}

// GetInvoice handles GET /api/invoices/{id}
func (h *InvoicesHandler) GetInvoice(w http.ResponseWriter, r *http.Request, invoiceID string) {
	inv, err := h.repo.GetInvoice(r.Context(), userID(r), invoiceID)
	if err != nil {
		writeStoreError(w, h.log, err, "Failed to get invoice")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, inv)
}

type lineItemRequest struct {
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
	TotalPrice  *decimal.Decimal `json:"totalPrice"`
	TaxRate     *decimal.Decimal `json:"taxRate"`
	TaxAmount   *decimal.Decimal `json:"taxAmount"`
	Discount    *decimal.Decimal `json:"discount"`
}

type invoiceRequest struct {
	Type       string            `json:"type"`
	Status     string            `json:"status"`
	IssueDate  string            `json:"issueDate"`
	DueDate    string            `json:"dueDate"`
	Amount     *decimal.Decimal  `json:"amount"`
	Currency   string            `json:"currency"`
	CategoryID string            `json:"categoryId"`
	VendorID   string            `json:"vendorId"`
	Tags       []string          `json:"tags"`
	Notes      string            `json:"notes"`
	LineItems  []lineItemRequest `json:"lineItems"`
}

// toInvoice validates the request. Status defaults to PENDING, quantity to 1
// and a line total to quantity × unit price.
func (req invoiceRequest) toInvoice(userID string) (*domain.Invoice, error) {
	typ, ok := domain.ParseInvoiceType(req.Type)
	if !ok {
		return nil, badRequest("type must be PURCHASE or PAYMENT")
	}

	status := domain.InvoiceStatusPending
	if req.Status != "" {
		if status, ok = domain.ParseInvoiceStatus(req.Status); !ok {
			return nil, badRequest("unknown status %q", req.Status)
		}
	}

	issue, err := time.Parse(dateFormat, req.IssueDate)
	if err != nil {
		return nil, badRequest("issueDate must be YYYY-MM-DD")
	}

	inv := &domain.Invoice{
		UserID:     userID,
		Type:       typ,
		Status:     status,
		IssueDate:  issue,
		Currency:   strings.ToUpper(strings.TrimSpace(req.Currency)),
		CategoryID: req.CategoryID,
		VendorID:   req.VendorID,
		Tags:       req.Tags,
		Notes:      strings.TrimSpace(req.Notes),
	}

	if req.DueDate != "" {
		due, err := time.Parse(dateFormat, req.DueDate)
		if err != nil {
			return nil, badRequest("dueDate must be YYYY-MM-DD")
		}
		if due.Before(issue) {
			return nil, badRequest("dueDate is before issueDate")
		}
		inv.DueDate = &due
	}

	if len(inv.Currency) != 3 {
		return nil, badRequest("currency must be a 3-letter code")
	}
	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return nil, badRequest("amount must not be negative")
		}
		amount := *req.Amount
		inv.Amount = &amount
	}

	for i, li := range req.LineItems {
		qty := decimal.NewFromInt(1)
		if li.Quantity != nil {
			qty = *li.Quantity
		}
		if !qty.IsPositive() {
			return nil, badRequest("line item %d: quantity must be positive", i)
		}
		if li.UnitPrice.IsNegative() {
			return nil, badRequest("line item %d: unitPrice must not be negative", i)
		}
		total := qty.Mul(li.UnitPrice)
		if li.TotalPrice != nil {
			total = *li.TotalPrice
		}
		inv.LineItems = append(inv.LineItems, domain.LineItem{
			Description: strings.TrimSpace(li.Description),
			Quantity:    qty,
			UnitPrice:   li.UnitPrice,
			TotalPrice:  total,
			TaxRate:     li.TaxRate,
			TaxAmount:   li.TaxAmount,
			Discount:    li.Discount,
		})
	}

	return inv, nil
}

// CreateInvoice handles POST /api/invoices
func (h *InvoicesHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userID(r)

	var req invoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeStoreError(w, h.log, err, "Failed to create invoice")
		return
	}
	inv, err := req.toInvoice(user)
	if err != nil {
		writeStoreError(w, h.log, err, "Failed to create invoice")
		return
	}

	if err := h.checkReferences(r, inv); err != nil {
		writeStoreError(w, h.log, err, "Failed to create invoice")
		return
	}

	if err := h.repo.InsertInvoice(ctx, inv); err != nil {
		writeStoreError(w, h.log, err, "Failed to create invoice")
		return
	}

	h.log.Info().Str("user_id", user).Str("invoice_id", inv.ID).Msg("Invoice created")
	middleware.WriteJSON(w, http.StatusCreated, inv)
}

// checkReferences rejects vendor and category IDs the user does not own.
func (h *InvoicesHandler) checkReferences(r *http.Request, inv *domain.Invoice) error {
	ctx := r.Context()

	if inv.VendorID != "" {
		vendors, err := h.repo.ListVendors(ctx, inv.UserID)
		if err != nil {
			return err
		}
		found := false
		for _, v := range vendors {
			found = found || v.ID == inv.VendorID
		}
		if !found {
			return badRequest("unknown vendorId %q", inv.VendorID)
		}
	}

	if inv.CategoryID != "" {
		categories, err := h.repo.ListCategories(ctx, inv.UserID)
		if err != nil {
			return err
		}
		found := false
		for _, c := range categories {
			found = found || c.ID == inv.CategoryID
		}
		if !found {
			return badRequest("unknown categoryId %q", inv.CategoryID)
		}
	}
	return nil
}

// UpdateInvoiceStatus handles PATCH /api/invoices/{id}/status
func (h *InvoicesHandler) UpdateInvoiceStatus(w http.ResponseWriter, r *http.Request, invoiceID string) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeStoreError(w, h.log, err, "Failed to update invoice")
		return
	}
	status, ok := domain.ParseInvoiceStatus(req.Status)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if err := h.repo.UpdateInvoiceStatus(r.Context(), userID(r), invoiceID, status); err != nil {
		writeStoreError(w, h.log, err, "Failed to update invoice")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"id":     invoiceID,
		"status": string(status),
	})
}

// DeleteInvoice handles DELETE /api/invoices/{id}
func (h *InvoicesHandler) DeleteInvoice(w http.ResponseWriter, r *http.Request, invoiceID string) {
	if err := h.repo.DeleteInvoice(r.Context(), userID(r), invoiceID); err != nil {
		writeStoreError(w, h.log, err, "Failed to delete invoice")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
