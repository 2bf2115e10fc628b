package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "bilix.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStore_InvoiceRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	amount := decimal.RequireFromString("120.50")
	rate := decimal.NewFromInt(20)
	due := date(2024, 7, 1)
	inv := &domain.Invoice{
		UserID:    "user-1",
		Type:      domain.InvoiceTypePurchase,
		Status:    domain.InvoiceStatusPending,
		IssueDate: date(2024, 6, 1),
		DueDate:   &due,
		Amount:    &amount,
		Currency:  "GBP",
		VendorID:  "vendor-1",
		Tags:      []string{"office", "q2"},
		LineItems: []domain.LineItem{
			{
				Description: "Chair",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.RequireFromString("100.50"),
				TotalPrice:  decimal.RequireFromString("120.50"),
				TaxRate:     &rate,
				Attributes:  map[string]string{"sku": "CH-1"},
			},
			{
				Description: "Delivery",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.Zero,
				TotalPrice:  decimal.Zero,
			},
		},
	}
	require.NoError(t, s.InsertInvoice(ctx, inv))
	require.NotEmpty(t, inv.ID)
	require.NotEmpty(t, inv.LineItems[0].ID)

	got, err := s.GetInvoice(ctx, "user-1", inv.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.InvoiceTypePurchase, got.Type)
	assert.Equal(t, date(2024, 6, 1), got.IssueDate)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, due, *got.DueDate)
	require.NotNil(t, got.Amount)
	assert.True(t, got.Amount.Equal(amount))
	assert.Equal(t, []string{"office", "q2"}, got.Tags)
	require.Len(t, got.LineItems, 2)
	assert.Equal(t, "Chair", got.LineItems[0].Description)
	require.NotNil(t, got.LineItems[0].TaxRate)
	assert.True(t, got.LineItems[0].TaxRate.Equal(rate))
	assert.Nil(t, got.LineItems[0].Discount)
	assert.Equal(t, "CH-1", got.LineItems[0].Attributes["sku"])
	assert.Nil(t, got.LineItems[1].Attributes)
}

func TestStore_ListInvoicesFilters(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	hundred := decimal.NewFromInt(100)
	seed := []*domain.Invoice{
		{ID: "a", UserID: "u1", Type: domain.InvoiceTypePayment, Status: domain.InvoiceStatusPaid, IssueDate: date(2024, 1, 10), Amount: &hundred},
		{ID: "b", UserID: "u1", Type: domain.InvoiceTypePurchase, Status: domain.InvoiceStatusPending, IssueDate: date(2024, 2, 10), Amount: &hundred},
		{ID: "c", UserID: "u1", Type: domain.InvoiceTypePayment, Status: domain.InvoiceStatusPending, IssueDate: date(2024, 3, 10)},
		{ID: "d", UserID: "u2", Type: domain.InvoiceTypePayment, Status: domain.InvoiceStatusPaid, IssueDate: date(2024, 2, 10), Amount: &hundred},
	}
	for _, inv := range seed {
		require.NoError(t, s.InsertInvoice(ctx, inv))
	}

	ids := func(invs []domain.Invoice) []string {
		var out []string
		for _, inv := range invs {
			out = append(out, inv.ID)
		}
		return out
	}

	all, err := s.ListInvoices(ctx, "u1", bq.InvoiceFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(all))
	assert.Nil(t, all[2].Amount)

	from, to := date(2024, 2, 10), date(2024, 3, 10)
	window, err := s.ListInvoices(ctx, "u1", bq.InvoiceFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(window))

	payments, err := s.ListInvoices(ctx, "u1", bq.InvoiceFilter{Type: domain.InvoiceTypePayment, Status: domain.InvoiceStatusPending})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(payments))
}

func TestStore_UpdateAndDeleteInvoice(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	inv := &domain.Invoice{
		ID: "inv-1", UserID: "u1", Type: domain.InvoiceTypePayment,
		Status: domain.InvoiceStatusPending, IssueDate: date(2024, 5, 1),
		LineItems: []domain.LineItem{{Description: "x", Quantity: decimal.NewFromInt(1)}},
	}
	require.NoError(t, s.InsertInvoice(ctx, inv))

	require.NoError(t, s.UpdateInvoiceStatus(ctx, "u1", "inv-1", domain.InvoiceStatusPaid))
	got, err := s.GetInvoice(ctx, "u1", "inv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, got.Status)
	assert.False(t, got.UpdatedAt.IsZero())

	assert.ErrorIs(t, s.UpdateInvoiceStatus(ctx, "u2", "inv-1", domain.InvoiceStatusPaid), bq.ErrNotFound)
	assert.ErrorIs(t, s.DeleteInvoice(ctx, "u2", "inv-1"), bq.ErrNotFound)

	require.NoError(t, s.DeleteInvoice(ctx, "u1", "inv-1"))
	_, err = s.GetInvoice(ctx, "u1", "inv-1")
	assert.ErrorIs(t, err, bq.ErrNotFound)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM line_items`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestStore_Vendors(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.InsertVendor(ctx, &domain.Vendor{UserID: "u1", Name: "Acme Ltd", Email: "ap@acme.test"}))
	require.NoError(t, s.InsertVendor(ctx, &domain.Vendor{UserID: "u1", Name: "Beta"}))

	v, err := s.FindVendorByName(ctx, "u1", "  acme ltd ")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "ap@acme.test", v.Email)

	missing, err := s.FindVendorByName(ctx, "u2", "Acme Ltd")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := s.ListVendors(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Acme Ltd", list[0].Name)
}

func TestStore_Categories(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.InsertCategory(ctx, &domain.Category{UserID: "u1", Name: "Rent", Color: "#ff0000"}))
	require.NoError(t, s.InsertCategory(ctx, &domain.Category{UserID: "u1", Name: "Office"}))

	cats, err := s.ListCategories(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Office", cats[0].Name)
	assert.Equal(t, "#ff0000", cats[1].Color)
}

func TestStore_Documents(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	doc := &bq.DocumentRow{
		DocumentID:       "doc-1",
		UserID:           "u1",
		GCSURI:           "gs://bucket/invoices/u1/doc.pdf",
		OriginalFilename: "doc.pdf",
		FileMimeType:     "application/pdf",
		ChecksumSHA256:   "abc",
		Status:           bq.DocumentStatusUploaded,
		UploadTS:         time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.InsertDocument(ctx, doc))

	found, err := s.FindDocumentByChecksum(ctx, "u1", "abc")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "doc-1", found.DocumentID)

	none, err := s.FindDocumentByChecksum(ctx, "u1", "zzz")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, s.UpdateDocumentStatus(ctx, "doc-1", bq.DocumentStatusParsed, "inv-9"))
	got, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, bq.DocumentStatusParsed, got.Status)
	assert.Equal(t, "inv-9", got.InvoiceID.StringVal)
	assert.True(t, got.ProcessedTS.Valid)

	require.NoError(t, s.UpdateDocumentStatus(ctx, "doc-1", bq.DocumentStatusFailed, ""))
	got, err = s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "inv-9", got.InvoiceID.StringVal)

	_, err = s.GetDocument(ctx, "nope")
	assert.ErrorIs(t, err, bq.ErrNotFound)
	assert.ErrorIs(t, s.UpdateDocumentStatus(ctx, "nope", bq.DocumentStatusFailed, ""), bq.ErrNotFound)

	docs, err := s.ListDocuments(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	require.NoError(t, s.InsertModelOutput(ctx, &bq.ModelOutputRow{DocumentID: "doc-1", ModelName: "gemini"}))
}
