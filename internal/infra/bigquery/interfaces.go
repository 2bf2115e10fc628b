package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/domain"
)

// Re-export row types from the shared package.
type (
	InvoiceRow     = bq.InvoiceRow
	LineItemRow    = bq.LineItemRow
	VendorRow      = bq.VendorRow
	CategoryRow    = bq.CategoryRow
	DocumentRow    = bq.DocumentRow
	ModelOutputRow = bq.ModelOutputRow
)

const (
	invoicesTable     = "invoices"
	lineItemsTable    = "line_items"
	vendorsTable      = "vendors"
	categoriesTable   = "categories"
	documentsTable    = "documents"
	modelOutputsTable = "model_outputs"
	dateFormat        = "2006-01-02"
)

// Repository is the BigQuery implementation of bq.Store. It holds a shared
// client so every operation reuses one connection.
type Repository struct {
	client  *bigquery.Client
	dataset string
}

var _ bq.Store = (*Repository)(nil)

// NewRepository creates a repository over projectID.datasetID.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{client: client, dataset: datasetID}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// tableRef returns the fully qualified, backquoted table name.
func tableRef(client *bigquery.Client, dataset, table string) string {
	return fmt.Sprintf("`%s.%s.%s`", client.Project(), dataset, table)
}

// ListInvoices delegates to ListInvoicesWithClient with the shared client.
func (r *Repository) ListInvoices(ctx context.Context, userID string, filter bq.InvoiceFilter) ([]domain.Invoice, error) {
	return ListInvoicesWithClient(ctx, r.client, r.dataset, userID, filter)
}

// GetInvoice delegates to GetInvoiceWithClient with the shared client.
func (r *Repository) GetInvoice(ctx context.Context, userID, invoiceID string) (*domain.Invoice, error) {
	return GetInvoiceWithClient(ctx, r.client, r.dataset, userID, invoiceID)
}

// InsertInvoice delegates to InsertInvoiceWithClient with the shared client.
func (r *Repository) InsertInvoice(ctx context.Context, inv *domain.Invoice) error {
	return InsertInvoiceWithClient(ctx, r.client, r.dataset, inv, "")
}

// UpdateInvoiceStatus delegates to UpdateInvoiceStatusWithClient with the shared client.
func (r *Repository) UpdateInvoiceStatus(ctx context.Context, userID, invoiceID string, status domain.InvoiceStatus) error {
	return UpdateInvoiceStatusWithClient(ctx, r.client, r.dataset, userID, invoiceID, status)
}

// DeleteInvoice delegates to DeleteInvoiceWithClient with the shared client.
func (r *Repository) DeleteInvoice(ctx context.Context, userID, invoiceID string) error {
	return DeleteInvoiceWithClient(ctx, r.client, r.dataset, userID, invoiceID)
}

// ListVendors delegates to ListVendorsWithClient with the shared client.
func (r *Repository) ListVendors(ctx context.Context, userID string) ([]domain.Vendor, error) {
	return ListVendorsWithClient(ctx, r.client, r.dataset, userID)
}

// InsertVendor delegates to InsertVendorWithClient with the shared client.
func (r *Repository) InsertVendor(ctx context.Context, v *domain.Vendor) error {
	return InsertVendorWithClient(ctx, r.client, r.dataset, v)
}

// FindVendorByName delegates to FindVendorByNameWithClient with the shared client.
func (r *Repository) FindVendorByName(ctx context.Context, userID, name string) (*domain.Vendor, error) {
	return FindVendorByNameWithClient(ctx, r.client, r.dataset, userID, name)
}

// ListCategories delegates to ListCategoriesWithClient with the shared client.
func (r *Repository) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	return ListCategoriesWithClient(ctx, r.client, r.dataset, userID)
}

// InsertCategory delegates to InsertCategoryWithClient with the shared client.
func (r *Repository) InsertCategory(ctx context.Context, c *domain.Category) error {
	return InsertCategoryWithClient(ctx, r.client, r.dataset, c)
}

// InsertDocument delegates to InsertDocumentWithClient with the shared client.
func (r *Repository) InsertDocument(ctx context.Context, row *DocumentRow) error {
	return InsertDocumentWithClient(ctx, r.client, r.dataset, row)
}

// ListDocuments delegates to ListDocumentsWithClient with the shared client.
func (r *Repository) ListDocuments(ctx context.Context, userID string) ([]*DocumentRow, error) {
	return ListDocumentsWithClient(ctx, r.client, r.dataset, userID)
}

// GetDocument delegates to GetDocumentWithClient with the shared client.
func (r *Repository) GetDocument(ctx context.Context, documentID string) (*DocumentRow, error) {
	return GetDocumentWithClient(ctx, r.client, r.dataset, documentID)
}

// FindDocumentByChecksum delegates to FindDocumentByChecksumWithClient with the shared client.
func (r *Repository) FindDocumentByChecksum(ctx context.Context, userID, checksum string) (*DocumentRow, error) {
	return FindDocumentByChecksumWithClient(ctx, r.client, r.dataset, userID, checksum)
}

// UpdateDocumentStatus delegates to UpdateDocumentStatusWithClient with the shared client.
func (r *Repository) UpdateDocumentStatus(ctx context.Context, documentID, status, invoiceID string) error {
	return UpdateDocumentStatusWithClient(ctx, r.client, r.dataset, documentID, status, invoiceID)
}

// InsertModelOutput delegates to InsertModelOutputWithClient with the shared client.
func (r *Repository) InsertModelOutput(ctx context.Context, row *ModelOutputRow) error {
	return InsertModelOutputWithClient(ctx, r.client, r.dataset, row)
}
