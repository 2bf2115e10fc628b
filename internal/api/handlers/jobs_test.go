package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bilix/bilix/internal/jobs"
	"github.com/bilix/bilix/internal/jobs/inmemory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobsHandler_ScopedToUser(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	require.NoError(t, store.SaveJob(ctx, &jobs.ExtractInvoiceJob{JobID: "job-1", UserID: "user-1", DocumentID: "doc-1", Status: jobs.JobStatusPending}))
	require.NoError(t, store.SaveJob(ctx, &jobs.ExtractInvoiceJob{JobID: "job-2", UserID: "user-2", DocumentID: "doc-2", Status: jobs.JobStatusPending}))

	h := NewJobsHandler(store, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetJob(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil), "user-1"), "job-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.GetJob(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/jobs/job-2", nil), "user-1"), "job-2")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.GetJob(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil), "user-1"), "nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ListJobs(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/jobs", nil), "user-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Jobs  []jobs.ExtractInvoiceJob `json:"jobs"`
		Count int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "job-1", list.Jobs[0].JobID)

	rec = httptest.NewRecorder()
	h.ListJobs(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/jobs?limit=x", nil), "user-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
