package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bilix/bilix/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobStatus(t *testing.T, store *Store, id string) jobs.JobStatus {
	t.Helper()
	job, err := store.GetJob(context.Background(), id)
	require.NoError(t, err)
	return job.Status
}

func TestQueue_ProcessesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, store, WithWorkers(2))
	defer q.Close()

	var seen atomic.Value
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		seen.Store(job.(*jobs.ExtractInvoiceJob).DocumentID)
		return nil
	}))

	job := &jobs.ExtractInvoiceJob{UserID: "u1", DocumentID: "doc-1", GCSURI: "gs://b/o.pdf"}
	require.NoError(t, q.PublishExtractInvoice(ctx, job))
	require.NotEmpty(t, job.JobID)
	assert.Equal(t, DefaultMaxRetries, job.MaxRetries)

	require.Eventually(t, func() bool {
		return jobStatus(t, store, job.JobID) == jobs.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "doc-1", seen.Load())
}

func TestQueue_RetriesThenSucceeds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, store, WithWorkers(1), WithBackoff(time.Millisecond))
	defer q.Close()

	var attempts int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("model unavailable")
		}
		return nil
	}))

	job := &jobs.ExtractInvoiceJob{DocumentID: "doc-2"}
	require.NoError(t, q.PublishExtractInvoice(ctx, job))

	require.Eventually(t, func() bool {
		return jobStatus(t, store, job.JobID) == jobs.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	got, err := store.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)
	assert.Empty(t, got.Error)
}

func TestQueue_FailsAfterMaxRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, store, WithWorkers(1), WithBackoff(time.Millisecond))
	defer q.Close()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		return errors.New("unreadable pdf")
	}))

	job := &jobs.ExtractInvoiceJob{DocumentID: "doc-3", MaxRetries: 1}
	require.NoError(t, q.PublishExtractInvoice(ctx, job))

	require.Eventually(t, func() bool {
		return jobStatus(t, store, job.JobID) == jobs.JobStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	got, err := store.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "unreadable pdf", got.Error)
	assert.Equal(t, 1, got.RetryCount)
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(1, nil)
	require.NoError(t, q.Close())

	err := q.PublishExtractInvoice(context.Background(), &jobs.ExtractInvoiceJob{})
	assert.Error(t, err)
	assert.Error(t, q.Start(context.Background(), func(context.Context, jobs.Job) error { return nil }))
}
