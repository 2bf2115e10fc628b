package handlers

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bilix/bilix/internal/api/middleware"
	"github.com/bilix/bilix/internal/assistant"
	"github.com/bilix/bilix/internal/infra/sqlite"
	"github.com/bilix/bilix/internal/jobs"
	"github.com/bilix/bilix/internal/reporting"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "bilix.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func asUser(r *http.Request, user string) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), user))
}

// mockReports implements ReportService.
type mockReports struct {
	LedgerFunc        func(ctx context.Context, userID string, q reporting.Query) (reporting.LedgerResult, error)
	ProfitLossFunc    func(ctx context.Context, userID string, q reporting.Query) (reporting.ProfitLoss, error)
	GeneralLedgerFunc func(ctx context.Context, userID string, q reporting.Query, glq reporting.GeneralLedgerQuery) (reporting.GeneralLedger, error)
	CashFlowFunc      func(ctx context.Context, userID string, horizonDays int) (reporting.CashFlowProjection, error)
	AlertsFunc        func(ctx context.Context, userID string, horizonDays int) ([]reporting.FinancialAlert, error)
}

func (m *mockReports) Ledger(ctx context.Context, userID string, q reporting.Query) (reporting.LedgerResult, error) {
	if m.LedgerFunc != nil {
		return m.LedgerFunc(ctx, userID, q)
	}
	return reporting.LedgerResult{}, nil
}

func (m *mockReports) ProfitLoss(ctx context.Context, userID string, q reporting.Query) (reporting.ProfitLoss, error) {
	if m.ProfitLossFunc != nil {
		return m.ProfitLossFunc(ctx, userID, q)
	}
	return reporting.ProfitLoss{}, nil
}

func (m *mockReports) TrialBalance(ctx context.Context, userID string, q reporting.Query) (reporting.TrialBalance, error) {
	return reporting.TrialBalance{}, nil
}

func (m *mockReports) BalanceSheet(ctx context.Context, userID string, q reporting.Query) (reporting.BalanceSheet, error) {
	return reporting.BalanceSheet{}, nil
}

func (m *mockReports) GeneralLedger(ctx context.Context, userID string, q reporting.Query, glq reporting.GeneralLedgerQuery) (reporting.GeneralLedger, error) {
	if m.GeneralLedgerFunc != nil {
		return m.GeneralLedgerFunc(ctx, userID, q, glq)
	}
	return reporting.GeneralLedger{}, nil
}

func (m *mockReports) CashFlow(ctx context.Context, userID string, horizonDays int) (reporting.CashFlowProjection, error) {
	if m.CashFlowFunc != nil {
		return m.CashFlowFunc(ctx, userID, horizonDays)
	}
	return reporting.CashFlowProjection{}, nil
}

func (m *mockReports) Alerts(ctx context.Context, userID string, horizonDays int) ([]reporting.FinancialAlert, error) {
	if m.AlertsFunc != nil {
		return m.AlertsFunc(ctx, userID, horizonDays)
	}
	return nil, nil
}

func (m *mockReports) Dashboard(ctx context.Context, userID string, q reporting.Query, horizonDays int) (reporting.Dashboard, error) {
	return reporting.Dashboard{}, nil
}

// mockStorage implements gcs.StorageService.
type mockStorage struct {
	UploadFunc func(ctx context.Context, bucketName, objectName, contentType string, r io.Reader) (string, error)
	uploads    []string
}

func (m *mockStorage) Upload(ctx context.Context, bucketName, objectName, contentType string, r io.Reader) (string, error) {
	m.uploads = append(m.uploads, objectName)
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, bucketName, objectName, contentType, r)
	}
	return "gs://" + bucketName + "/" + objectName, nil
}

func (m *mockStorage) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return nil, nil
}

// mockPublisher implements jobs.Publisher.
type mockPublisher struct {
	err       error
	published []*jobs.ExtractInvoiceJob
}

func (m *mockPublisher) PublishExtractInvoice(ctx context.Context, job *jobs.ExtractInvoiceJob) error {
	if m.err != nil {
		return m.err
	}
	job.JobID = "job-" + job.DocumentID
	job.Status = jobs.JobStatusPending
	m.published = append(m.published, job)
	return nil
}

func (m *mockPublisher) Close() error {
	return nil
}

// mockAssistant implements Assistant.
type mockAssistant struct {
	ChatFunc       func(ctx context.Context, userID string, messages []assistant.Message) (*assistant.Reply, error)
	TranscribeFunc func(ctx context.Context, audio io.Reader, filename string) (string, error)
	SpeakFunc      func(ctx context.Context, text, voice string) (io.ReadCloser, error)
}

func (m *mockAssistant) Chat(ctx context.Context, userID string, messages []assistant.Message) (*assistant.Reply, error) {
	return m.ChatFunc(ctx, userID, messages)
}

func (m *mockAssistant) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	return m.TranscribeFunc(ctx, audio, filename)
}

func (m *mockAssistant) Speak(ctx context.Context, text, voice string) (io.ReadCloser, error) {
	if m.SpeakFunc != nil {
		return m.SpeakFunc(ctx, text, voice)
	}
	return io.NopCloser(strings.NewReader("mp3-bytes")), nil
}
