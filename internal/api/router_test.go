package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bilix/bilix/internal/api/middleware"
	"github.com/bilix/bilix/internal/infra/sqlite"
	"github.com/bilix/bilix/internal/jobs/inmemory"
	"github.com/bilix/bilix/internal/reporting"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "bilix.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := zerolog.Nop()
	srv := httptest.NewServer(NewRouter(Deps{
		Store:   store,
		Reports: reporting.NewService(store, reporting.DefaultOptions(), log),
		Jobs:    inmemory.NewStore(),
		Log:     log,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, user, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(middleware.UserIDHeader, user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_HealthAndAuth(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = do(t, srv, http.MethodGet, "/api/invoices", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/api/invoices", "user-1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_UnconfiguredServices(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodPost, "/api/documents/upload", "user-1", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/api/assistant/chat", "user-1", `{"messages":[]}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/api/documents/doc-1/extract", "user-1", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRouter_InvoiceToProfitLoss(t *testing.T) {
	srv := newTestServer(t)
	today := time.Now().UTC().Format("2006-01-02")

	body := `{"type":"PAYMENT","status":"PAID","issueDate":"` + today + `","amount":"1000","currency":"GBP"}`
	resp := do(t, srv, http.MethodPost, "/api/invoices", "user-1", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body = `{"type":"PURCHASE","status":"PAID","issueDate":"` + today + `","amount":"400","currency":"GBP"}`
	resp = do(t, srv, http.MethodPost, "/api/invoices", "user-1", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/api/reports/profit-loss?timeframe=all", "user-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pl struct {
		Revenue   decimal.Decimal `json:"revenue"`
		Expenses  decimal.Decimal `json:"expenses"`
		NetIncome decimal.Decimal `json:"netIncome"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pl))
	assert.True(t, pl.Revenue.Equal(decimal.NewFromInt(1000)), pl.Revenue.String())
	assert.True(t, pl.Expenses.Equal(decimal.NewFromInt(400)), pl.Expenses.String())
	assert.True(t, pl.NetIncome.Equal(decimal.NewFromInt(600)), pl.NetIncome.String())

	// Another user's books stay empty.
	resp = do(t, srv, http.MethodGet, "/api/reports/profit-loss?timeframe=all", "user-2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pl))
	assert.True(t, pl.Revenue.IsZero())

	resp = do(t, srv, http.MethodGet, "/api/reports/profit-loss?timeframe=decade", "user-1", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/api/reports/cash-flow?horizon=400", "user-1", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/api/reports/general-ledger?timeframe=all&limit=9223372036854775807&offset=1", "user-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var gl struct {
		Total int               `json:"total"`
		Lines []json.RawMessage `json:"lines"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&gl))
	assert.Equal(t, 4, gl.Total)
	assert.Len(t, gl.Lines, 3)
}
