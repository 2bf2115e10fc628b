package extraction

import (
	"context"

	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/domain"
)

// StorageService fetches uploaded attachments.
type StorageService interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// AIParser reads an invoice document and returns the model's JSON object.
type AIParser interface {
	// ParseInvoice sends the file to a model. categories are the names the
	// model may choose from; raw is the cleaned response text.
	ParseInvoice(ctx context.Context, file []byte, mimeType string, categories []string) (parsed map[string]interface{}, raw string, err error)

	// ModelName identifies the model in stored outputs.
	ModelName() string
}

// Repository is the persistence the extraction pipeline needs.
type Repository interface {
	GetDocument(ctx context.Context, documentID string) (*bq.DocumentRow, error)
	UpdateDocumentStatus(ctx context.Context, documentID, status, invoiceID string) error
	InsertModelOutput(ctx context.Context, row *bq.ModelOutputRow) error

	InsertInvoice(ctx context.Context, inv *domain.Invoice) error
	FindVendorByName(ctx context.Context, userID, name string) (*domain.Vendor, error)
	InsertVendor(ctx context.Context, v *domain.Vendor) error
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
}

var _ Repository = (bq.Store)(nil)
