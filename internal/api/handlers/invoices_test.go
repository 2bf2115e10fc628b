package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bilix/bilix/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoicesHandler_CreateGetList(t *testing.T) {
	store := openStore(t)
	h := NewInvoicesHandler(store, zerolog.Nop())

	vendor := &domain.Vendor{ID: "v-1", UserID: "user-1", Name: "Acme"}
	require.NoError(t, store.InsertVendor(context.Background(), vendor))

	body := `{
		"type": "purchase",
		"issueDate": "2024-06-01",
		"dueDate": "2024-07-01",
		"amount": "240.00",
		"currency": "gbp",
		"vendorId": "v-1",
		"lineItems": [{"description": "Desk", "quantity": 2, "unitPrice": "120"}]
	}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/invoices", strings.NewReader(body)), "user-1")
	rec := httptest.NewRecorder()
	h.CreateInvoice(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created domain.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.InvoiceTypePurchase, created.Type)
	assert.Equal(t, domain.InvoiceStatusPending, created.Status)
	assert.Equal(t, "GBP", created.Currency)
	require.Len(t, created.LineItems, 1)
	assert.True(t, created.LineItems[0].TotalPrice.Equal(decimal.NewFromInt(240)))

	rec = httptest.NewRecorder()
	h.GetInvoice(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/invoices/"+created.ID, nil), "user-1"), created.ID)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Other users never see it.
	rec = httptest.NewRecorder()
	h.GetInvoice(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/invoices/"+created.ID, nil), "user-2"), created.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ListInvoices(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/invoices?type=PURCHASE&from=2024-06-01", nil), "user-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Invoices []domain.Invoice `json:"invoices"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	rec = httptest.NewRecorder()
	h.ListInvoices(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/invoices?type=PAYMENT", nil), "user-1"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 0, list.Count)
	assert.NotNil(t, list.Invoices)
}

func TestInvoicesHandler_CreateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"unknown type", `{"type":"GIFT","issueDate":"2024-06-01","currency":"GBP"}`},
		{"unknown status", `{"type":"PAYMENT","status":"LOST","issueDate":"2024-06-01","currency":"GBP"}`},
		{"bad issue date", `{"type":"PAYMENT","issueDate":"01/06/2024","currency":"GBP"}`},
		{"due before issue", `{"type":"PAYMENT","issueDate":"2024-06-10","dueDate":"2024-06-01","currency":"GBP"}`},
		{"bad currency", `{"type":"PAYMENT","issueDate":"2024-06-01","currency":"POUNDS"}`},
		{"negative amount", `{"type":"PAYMENT","issueDate":"2024-06-01","currency":"GBP","amount":"-1"}`},
		{"zero quantity", `{"type":"PAYMENT","issueDate":"2024-06-01","currency":"GBP","lineItems":[{"quantity":0,"unitPrice":"1"}]}`},
		{"unknown vendor", `{"type":"PURCHASE","issueDate":"2024-06-01","currency":"GBP","vendorId":"nope"}`},
		{"unknown category", `{"type":"PURCHASE","issueDate":"2024-06-01","currency":"GBP","categoryId":"nope"}`},
	}

	h := NewInvoicesHandler(openStore(t), zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.CreateInvoice(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/invoices", strings.NewReader(tt.body)), "user-1"))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestInvoicesHandler_ListRejectsBadFilter(t *testing.T) {
	h := NewInvoicesHandler(openStore(t), zerolog.Nop())

	for _, q := range []string{"from=yesterday", "to=2024-13-01", "type=GIFT", "status=LOST", "from=2024-06-02&to=2024-06-01"} {
		rec := httptest.NewRecorder()
		h.ListInvoices(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/invoices?"+q, nil), "user-1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestInvoicesHandler_UpdateStatusAndDelete(t *testing.T) {
	store := openStore(t)
	h := NewInvoicesHandler(store, zerolog.Nop())

	amount := decimal.NewFromInt(50)
	inv := &domain.Invoice{
		UserID:    "user-1",
		Type:      domain.InvoiceTypePayment,
		Status:    domain.InvoiceStatusPending,
		IssueDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Amount:    &amount,
		Currency:  "GBP",
	}
	require.NoError(t, store.InsertInvoice(context.Background(), inv))

	rec := httptest.NewRecorder()
	h.UpdateInvoiceStatus(rec, asUser(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"paid"}`)), "user-1"), inv.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := store.GetInvoice(context.Background(), "user-1", inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, got.Status)

	rec = httptest.NewRecorder()
	h.UpdateInvoiceStatus(rec, asUser(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"lost"}`)), "user-1"), inv.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.UpdateInvoiceStatus(rec, asUser(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"paid"}`)), "user-2"), inv.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.DeleteInvoice(rec, asUser(httptest.NewRequest(http.MethodDelete, "/", nil), "user-1"), inv.ID)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.DeleteInvoice(rec, asUser(httptest.NewRequest(http.MethodDelete, "/", nil), "user-1"), inv.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
