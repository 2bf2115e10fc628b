package extraction

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"

	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/domain"
)

// errAlreadyExtracted stops the pipeline for a document that already has an invoice.
var errAlreadyExtracted = errors.New("document already extracted")

// PipelineStep represents a single step in the extraction pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	UserID     string
	DocumentID string

	Document   *bq.DocumentRow
	FileBytes  []byte
	MimeType   string
	Categories *CategoryValidator

	RawOutput map[string]interface{}
	RawJSON   string
	Extracted *ExtractedInvoice

	InvoiceID string
	Warnings  []string
}

// LoadDocumentStep loads the document, checks ownership and marks it PROCESSING.
type LoadDocumentStep struct {
	Repo Repository
}

func (s *LoadDocumentStep) Execute(ctx context.Context, state *PipelineState) error {
	doc, err := s.Repo.GetDocument(ctx, state.DocumentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc.UserID != state.UserID {
		return fmt.Errorf("load document: %w", bq.ErrNotFound)
	}
	state.Document = doc

	if doc.Status == bq.DocumentStatusParsed && doc.InvoiceID.Valid {
		state.InvoiceID = doc.InvoiceID.StringVal
		return errAlreadyExtracted
	}

	if err := s.Repo.UpdateDocumentStatus(ctx, doc.DocumentID, bq.DocumentStatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return nil
}

// FetchFileStep downloads the attachment bytes.
type FetchFileStep struct {
	Storage StorageService
}

func (s *FetchFileStep) Execute(ctx context.Context, state *PipelineState) error {
	data, err := s.Storage.FetchFromGCS(ctx, state.Document.GCSURI)
	if err != nil {
		return fmt.Errorf("fetch file: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("fetch file: %s is empty", state.Document.GCSURI)
	}
	state.FileBytes = data

	state.MimeType = state.Document.FileMimeType
	if state.MimeType == "" {
		state.MimeType = mime.TypeByExtension(path.Ext(state.Document.OriginalFilename))
	}
	if state.MimeType == "" {
		state.MimeType = "application/pdf"
	}
	return nil
}

// LoadCategoriesStep loads the user's categories for the prompt and validation.
type LoadCategoriesStep struct {
	Repo Repository
}

func (s *LoadCategoriesStep) Execute(ctx context.Context, state *PipelineState) error {
	cats, err := s.Repo.ListCategories(ctx, state.UserID)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	state.Categories = NewCategoryValidator(cats)
	return nil
}

// ParseInvoiceStep sends the file to the model.
type ParseInvoiceStep struct {
	Parser AIParser
}

func (s *ParseInvoiceStep) Execute(ctx context.Context, state *PipelineState) error {
	parsed, raw, err := s.Parser.ParseInvoice(ctx, state.FileBytes, state.MimeType, state.Categories.Names())
	state.RawJSON = raw
	if err != nil {
		return fmt.Errorf("parse invoice: %w", err)
	}
	state.RawOutput = parsed
	return nil
}

// StoreModelOutputStep keeps the raw model response next to the document.
type StoreModelOutputStep struct {
	Repo   Repository
	Parser AIParser
}

func (s *StoreModelOutputStep) Execute(ctx context.Context, state *PipelineState) error {
	row := &bq.ModelOutputRow{
		DocumentID: state.DocumentID,
		ModelName:  s.Parser.ModelName(),
	}
	row.RawJSON.JSONVal = state.RawJSON
	row.RawJSON.Valid = state.RawJSON != ""

	if err := s.Repo.InsertModelOutput(ctx, row); err != nil {
		return fmt.Errorf("store model output: %w", err)
	}
	return nil
}

// TransformInvoiceStep maps the model output onto a domain invoice.
type TransformInvoiceStep struct{}

func (s *TransformInvoiceStep) Execute(ctx context.Context, state *PipelineState) error {
	extracted, err := transformModelOutput(state.RawOutput, state.UserID)
	if err != nil {
		return err
	}
	state.Extracted = extracted
	return nil
}

// ResolveVendorStep links the invoice to an existing vendor by name, creating
// the vendor on first sight.
type ResolveVendorStep struct {
	Repo Repository
}

func (s *ResolveVendorStep) Execute(ctx context.Context, state *PipelineState) error {
	name := state.Extracted.VendorName
	if name == "" {
		return nil
	}

	vendor, err := s.Repo.FindVendorByName(ctx, state.UserID, name)
	if err != nil {
		return fmt.Errorf("find vendor: %w", err)
	}
	if vendor == nil {
		vendor = &domain.Vendor{UserID: state.UserID, Name: name}
		if err := s.Repo.InsertVendor(ctx, vendor); err != nil {
			return fmt.Errorf("create vendor: %w", err)
		}
	}
	state.Extracted.Invoice.VendorID = vendor.ID
	return nil
}

// ResolveCategoryStep maps the model's category onto the user's categories.
// An unknown category is dropped with a warning rather than failing the document.
type ResolveCategoryStep struct{}

func (s *ResolveCategoryStep) Execute(ctx context.Context, state *PipelineState) error {
	name := state.Extracted.CategoryName
	if name == "" {
		return nil
	}
	id, ok := state.Categories.Resolve(name)
	if !ok {
		state.Warnings = append(state.Warnings, fmt.Sprintf("unknown category %q ignored", name))
		return nil
	}
	state.Extracted.Invoice.CategoryID = id
	return nil
}

// InsertInvoiceStep stores the invoice.
type InsertInvoiceStep struct {
	Repo Repository
}

func (s *InsertInvoiceStep) Execute(ctx context.Context, state *PipelineState) error {
	inv := &state.Extracted.Invoice
	if err := s.Repo.InsertInvoice(ctx, inv); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	state.InvoiceID = inv.ID
	return nil
}

// MarkParsedStep links the document to its invoice.
type MarkParsedStep struct {
	Repo Repository
}

func (s *MarkParsedStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := s.Repo.UpdateDocumentStatus(ctx, state.DocumentID, bq.DocumentStatusParsed, state.InvoiceID); err != nil {
		return fmt.Errorf("mark parsed: %w", err)
	}
	return nil
}
