package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/bilix/bilix/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	assert.Error(t, s.SaveJob(ctx, &jobs.ExtractInvoiceJob{}))

	job := &jobs.ExtractInvoiceJob{JobID: "j1", Status: jobs.JobStatusPending}
	require.NoError(t, s.SaveJob(ctx, job))

	job.Status = jobs.JobStatusRunning
	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, got.Status, "store keeps its own copy")

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, j := range []*jobs.ExtractInvoiceJob{
		{JobID: "a", UserID: "u1", DocumentID: "d1", Status: jobs.JobStatusCompleted},
		{JobID: "b", UserID: "u1", DocumentID: "d2", Status: jobs.JobStatusFailed},
		{JobID: "c", UserID: "u2", DocumentID: "d3", Status: jobs.JobStatusCompleted},
		{JobID: "d", UserID: "u1", DocumentID: "d4", Status: jobs.JobStatusCompleted},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.SaveJob(ctx, j))
	}

	ids := func(list []*jobs.ExtractInvoiceJob) []string {
		var out []string
		for _, j := range list {
			out = append(out, j.JobID)
		}
		return out
	}

	all, err := s.ListJobs(ctx, jobs.JobFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b", "a"}, ids(all))

	done, err := s.ListJobs(ctx, jobs.JobFilter{UserID: "u1", Status: jobs.JobStatusCompleted, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, ids(done))

	paged, err := s.ListJobs(ctx, jobs.JobFilter{Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(paged))

	empty, err := s.ListJobs(ctx, jobs.JobFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_UpdateJobStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.SaveJob(ctx, &jobs.ExtractInvoiceJob{JobID: "j1"}))

	require.NoError(t, s.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "boom"))
	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)

	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "nope", jobs.JobStatusFailed, ""), jobs.ErrJobNotFound)
}
