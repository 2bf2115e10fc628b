package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned by a JobStore for an unknown job ID.
var ErrJobNotFound = errors.New("job not found")

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExtractInvoice reads an uploaded attachment into an invoice.
	JobTypeExtractInvoice JobType = "extract_invoice"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// ExtractInvoiceJob asks a worker to turn an uploaded document into an invoice.
type ExtractInvoiceJob struct {
	JobID      string `json:"job_id"`
	UserID     string `json:"user_id"`
	DocumentID string `json:"document_id"`
	GCSURI     string `json:"gcs_uri"`

	// InvoiceID is set once extraction has stored an invoice.
	InvoiceID string `json:"invoice_id,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ExtractInvoiceJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ExtractInvoiceJob) GetType() JobType {
	return JobTypeExtractInvoice
}

// GetStatus implements the Job interface.
func (j *ExtractInvoiceJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	PublishExtractInvoice(ctx context.Context, job *ExtractInvoiceJob) error
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error makes the job eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore keeps job state for the jobs API.
type JobStore interface {
	SaveJob(ctx context.Context, job *ExtractInvoiceJob) error

	// GetJob returns ErrJobNotFound for an unknown ID.
	GetJob(ctx context.Context, jobID string) (*ExtractInvoiceJob, error)

	// ListJobs returns matching jobs, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExtractInvoiceJob, error)

	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	UserID     string
	DocumentID string
	Status     JobStatus
	Limit      int
	Offset     int
}
