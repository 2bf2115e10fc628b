package bigquery

import (
	"context"
	"errors"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/bilix/bilix/internal/domain"
)

// ErrNotFound is returned when a row addressed by ID does not exist for the user.
var ErrNotFound = errors.New("not found")

// InvoiceFilter narrows ListInvoices.
type InvoiceFilter = domain.InvoiceFilter

// InvoiceRepository provides invoice storage. Every call is scoped to a user.
type InvoiceRepository interface {
	// ListInvoices returns the user's invoices with their line items, ordered by issue date.
	ListInvoices(ctx context.Context, userID string, filter InvoiceFilter) ([]domain.Invoice, error)

	// GetInvoice returns one invoice or ErrNotFound.
	GetInvoice(ctx context.Context, userID, invoiceID string) (*domain.Invoice, error)

	// InsertInvoice stores an invoice and its line items.
	InsertInvoice(ctx context.Context, inv *domain.Invoice) error

	// UpdateInvoiceStatus changes the status of one invoice or returns ErrNotFound.
	UpdateInvoiceStatus(ctx context.Context, userID, invoiceID string, status domain.InvoiceStatus) error

	// DeleteInvoice removes an invoice and its line items or returns ErrNotFound.
	DeleteInvoice(ctx context.Context, userID, invoiceID string) error
}

// VendorRepository provides vendor storage.
type VendorRepository interface {
	ListVendors(ctx context.Context, userID string) ([]domain.Vendor, error)
	InsertVendor(ctx context.Context, v *domain.Vendor) error
	// FindVendorByName matches case-insensitively; returns nil when absent.
	FindVendorByName(ctx context.Context, userID, name string) (*domain.Vendor, error)
}

// CategoryRepository provides category storage.
type CategoryRepository interface {
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
	InsertCategory(ctx context.Context, c *domain.Category) error
}

// DocumentRepository tracks uploaded invoice attachments and their extraction.
type DocumentRepository interface {
	// InsertDocument inserts a single DocumentRow into the database.
	InsertDocument(ctx context.Context, row *DocumentRow) error

	// ListDocuments returns the user's documents, newest first.
	ListDocuments(ctx context.Context, userID string) ([]*DocumentRow, error)

	// GetDocument returns one document or ErrNotFound.
	GetDocument(ctx context.Context, documentID string) (*DocumentRow, error)

	// FindDocumentByChecksum returns the user's document with this SHA-256, or nil.
	FindDocumentByChecksum(ctx context.Context, userID, checksum string) (*DocumentRow, error)

	// UpdateDocumentStatus sets the extraction status and, when set, the resulting invoice.
	UpdateDocumentStatus(ctx context.Context, documentID, status, invoiceID string) error

	// InsertModelOutput keeps the raw model response for a document.
	InsertModelOutput(ctx context.Context, row *ModelOutputRow) error
}

// Store is everything the API and worker need from persistence.
type Store interface {
	InvoiceRepository
	VendorRepository
	CategoryRepository
	DocumentRepository
	Close() error
}

// Document extraction states.
const (
	DocumentStatusUploaded   = "UPLOADED"
	DocumentStatusProcessing = "PROCESSING"
	DocumentStatusParsed     = "PARSED"
	DocumentStatusFailed     = "FAILED"
)

// InvoiceRow represents an invoice record in BigQuery.
type InvoiceRow struct {
	InvoiceID string `bigquery:"invoice_id"`
	UserID    string `bigquery:"user_id"`

	InvoiceType string `bigquery:"invoice_type"`
	Status      string `bigquery:"status"`

	IssueDate civil.Date        `bigquery:"issue_date"`
	DueDate   bigquery.NullDate `bigquery:"due_date"`

	Amount   *big.Rat `bigquery:"amount"`
	Currency string   `bigquery:"currency"`

	CategoryID bigquery.NullString `bigquery:"category_id"`
	VendorID   bigquery.NullString `bigquery:"vendor_id"`
	DocumentID bigquery.NullString `bigquery:"document_id"`

	Tags  []string            `bigquery:"tags"`
	Notes bigquery.NullString `bigquery:"notes"`

	CreatedTS time.Time              `bigquery:"created_ts"`
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"`
}

// LineItemRow represents an invoice line item in BigQuery.
type LineItemRow struct {
	LineItemID string `bigquery:"line_item_id"`
	InvoiceID  string `bigquery:"invoice_id"`
	LineIndex  int64  `bigquery:"line_index"`

	Description string `bigquery:"description"`

	Quantity   *big.Rat `bigquery:"quantity"`
	UnitPrice  *big.Rat `bigquery:"unit_price"`
	TotalPrice *big.Rat `bigquery:"total_price"`

	TaxRate   *big.Rat `bigquery:"tax_rate"`
	TaxAmount *big.Rat `bigquery:"tax_amount"`
	Discount  *big.Rat `bigquery:"discount"`

	Attributes bigquery.NullJSON `bigquery:"attributes"`
}

// VendorRow represents a vendor record in BigQuery.
type VendorRow struct {
	VendorID string `bigquery:"vendor_id"`
	UserID   string `bigquery:"user_id"`
	Name     string `bigquery:"name"`

	Email   bigquery.NullString `bigquery:"email"`
	Phone   bigquery.NullString `bigquery:"phone"`
	Address bigquery.NullString `bigquery:"address"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// CategoryRow represents a user category in BigQuery.
type CategoryRow struct {
	CategoryID string              `bigquery:"category_id"`
	UserID     string              `bigquery:"user_id"`
	Name       string              `bigquery:"name"`
	Color      bigquery.NullString `bigquery:"color"`
	CreatedTS  time.Time           `bigquery:"created_ts"`
}

// DocumentRow represents an uploaded attachment.
type DocumentRow struct {
	DocumentID string `bigquery:"document_id" json:"document_id"`
	UserID     string `bigquery:"user_id" json:"user_id"`
	GCSURI     string `bigquery:"gcs_uri" json:"gcs_uri"`

	OriginalFilename string `bigquery:"original_filename" json:"original_filename"`
	FileMimeType     string `bigquery:"file_mime_type" json:"file_mime_type"`
	ChecksumSHA256   string `bigquery:"checksum_sha256" json:"checksum_sha256"`

	Status    string              `bigquery:"status" json:"status"`
	InvoiceID bigquery.NullString `bigquery:"invoice_id" json:"invoice_id"`

	UploadTS    time.Time              `bigquery:"upload_ts" json:"upload_ts"`
	ProcessedTS bigquery.NullTimestamp `bigquery:"processed_ts" json:"processed_ts"`
}

// ModelOutputRow keeps the raw extraction response for auditing.
type ModelOutputRow struct {
	OutputID   string `bigquery:"output_id"`
	DocumentID string `bigquery:"document_id"`

	ModelName string            `bigquery:"model_name"`
	RawJSON   bigquery.NullJSON `bigquery:"raw_json"`

	CreatedTS time.Time `bigquery:"created_ts"`
}
