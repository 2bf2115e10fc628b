package extraction

import (
	"context"

	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/domain"
)

// mockRepository records status changes and stored rows; behaviour can be
// overridden per method.
type mockRepository struct {
	GetDocumentFunc      func(ctx context.Context, documentID string) (*bq.DocumentRow, error)
	InsertInvoiceFunc    func(ctx context.Context, inv *domain.Invoice) error
	FindVendorByNameFunc func(ctx context.Context, userID, name string) (*domain.Vendor, error)
	ListCategoriesFunc   func(ctx context.Context, userID string) ([]domain.Category, error)

	statuses     []string
	invoices     []domain.Invoice
	vendors      []domain.Vendor
	modelOutputs []*bq.ModelOutputRow
}

func (m *mockRepository) GetDocument(ctx context.Context, documentID string) (*bq.DocumentRow, error) {
	if m.GetDocumentFunc != nil {
		return m.GetDocumentFunc(ctx, documentID)
	}
	return nil, bq.ErrNotFound
}

func (m *mockRepository) UpdateDocumentStatus(ctx context.Context, documentID, status, invoiceID string) error {
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockRepository) InsertModelOutput(ctx context.Context, row *bq.ModelOutputRow) error {
	m.modelOutputs = append(m.modelOutputs, row)
	return nil
}

func (m *mockRepository) InsertInvoice(ctx context.Context, inv *domain.Invoice) error {
	if m.InsertInvoiceFunc != nil {
		if err := m.InsertInvoiceFunc(ctx, inv); err != nil {
			return err
		}
	}
	if inv.ID == "" {
		inv.ID = "inv-new"
	}
	m.invoices = append(m.invoices, *inv)
	return nil
}

func (m *mockRepository) FindVendorByName(ctx context.Context, userID, name string) (*domain.Vendor, error) {
	if m.FindVendorByNameFunc != nil {
		return m.FindVendorByNameFunc(ctx, userID, name)
	}
	return nil, nil
}

func (m *mockRepository) InsertVendor(ctx context.Context, v *domain.Vendor) error {
	if v.ID == "" {
		v.ID = "vendor-new"
	}
	m.vendors = append(m.vendors, *v)
	return nil
}

func (m *mockRepository) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx, userID)
	}
	return nil, nil
}

type mockStorage struct {
	FetchFromGCSFunc func(ctx context.Context, gcsURI string) ([]byte, error)
}

func (m *mockStorage) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	if m.FetchFromGCSFunc != nil {
		return m.FetchFromGCSFunc(ctx, gcsURI)
	}
	return []byte("%PDF-1.7"), nil
}

type mockAIParser struct {
	ParseInvoiceFunc func(ctx context.Context, file []byte, mimeType string, categories []string) (map[string]interface{}, string, error)
}

func (m *mockAIParser) ParseInvoice(ctx context.Context, file []byte, mimeType string, categories []string) (map[string]interface{}, string, error) {
	if m.ParseInvoiceFunc != nil {
		return m.ParseInvoiceFunc(ctx, file, mimeType, categories)
	}
	return nil, "", nil
}

func (m *mockAIParser) ModelName() string {
	return "test-model"
}
