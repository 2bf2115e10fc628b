package extraction

import (
	"context"
	"errors"
	"fmt"

	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/jobs"
	"github.com/rs/zerolog"
)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Deps are the collaborators of the extraction pipeline.
type Deps struct {
	Repo    Repository
	Storage StorageService
	Parser  AIParser
	Log     zerolog.Logger
}

// NewInvoiceExtractionPipeline creates the standard pipeline for one document.
func NewInvoiceExtractionPipeline(deps Deps) *Pipeline {
	return NewPipeline(
		&LoadDocumentStep{Repo: deps.Repo},
		&FetchFileStep{Storage: deps.Storage},
		&LoadCategoriesStep{Repo: deps.Repo},
		&ParseInvoiceStep{Parser: deps.Parser},
		&StoreModelOutputStep{Repo: deps.Repo, Parser: deps.Parser},
		&TransformInvoiceStep{},
		&ResolveVendorStep{Repo: deps.Repo},
		&ResolveCategoryStep{},
		&InsertInvoiceStep{Repo: deps.Repo},
		&MarkParsedStep{Repo: deps.Repo},
	)
}

// Result describes a finished extraction.
type Result struct {
	DocumentID string   `json:"document_id"`
	InvoiceID  string   `json:"invoice_id"`
	Warnings   []string `json:"warnings,omitempty"`
}

// IngestInvoiceWithDeps turns an uploaded document into a PENDING invoice.
// A document that already produced an invoice returns that invoice again.
// On failure the document is marked FAILED.
func IngestInvoiceWithDeps(ctx context.Context, deps Deps, userID, documentID string) (*Result, error) {
	state := &PipelineState{UserID: userID, DocumentID: documentID}

	err := NewInvoiceExtractionPipeline(deps).Execute(ctx, state)
	if errors.Is(err, errAlreadyExtracted) {
		deps.Log.Info().
			Str("document_id", documentID).
			Str("invoice_id", state.InvoiceID).
			Msg("Document already extracted")
		return &Result{DocumentID: documentID, InvoiceID: state.InvoiceID}, nil
	}
	if err != nil {
		// Only documents the user owns are marked failed.
		if state.Document != nil {
			if markErr := deps.Repo.UpdateDocumentStatus(ctx, documentID, bq.DocumentStatusFailed, ""); markErr != nil {
				deps.Log.Error().Err(markErr).Str("document_id", documentID).Msg("Failed to mark document failed")
			}
		}
		return nil, fmt.Errorf("IngestInvoice: %w", err)
	}

	for _, w := range state.Warnings {
		deps.Log.Warn().Str("document_id", documentID).Msg(w)
	}
	return &Result{DocumentID: documentID, InvoiceID: state.InvoiceID, Warnings: state.Warnings}, nil
}

// Extractor runs extraction jobs from a queue.
type Extractor struct {
	deps Deps
}

// NewExtractor creates an Extractor.
func NewExtractor(deps Deps) *Extractor {
	return &Extractor{deps: deps}
}

// HandleJob is a jobs.JobHandler for ExtractInvoiceJob.
func (e *Extractor) HandleJob(ctx context.Context, job jobs.Job) error {
	extract, ok := job.(*jobs.ExtractInvoiceJob)
	if !ok {
		return fmt.Errorf("unexpected job type: %T", job)
	}

	log := e.deps.Log.With().
		Str("job_id", extract.JobID).
		Str("document_id", extract.DocumentID).
		Logger()
	log.Info().Msg("Processing extraction job")

	res, err := IngestInvoiceWithDeps(ctx, e.deps, extract.UserID, extract.DocumentID)
	if err != nil {
		log.Error().Err(err).Msg("Extraction failed")
		return err
	}

	extract.InvoiceID = res.InvoiceID
	log.Info().Str("invoice_id", res.InvoiceID).Msg("Extraction completed")
	return nil
}
