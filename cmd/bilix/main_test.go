package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	bq "github.com/bilix/bilix/internal/bigquery"
	"github.com/bilix/bilix/internal/config"
	"github.com/bilix/bilix/internal/domain"
	"github.com/bilix/bilix/internal/infra/sqlite"
	"github.com/bilix/bilix/internal/reporting"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("store_driver", "SQLite")
	v.Set("sqlite_path", filepath.Join(t.TempDir(), "bilix.db"))
	v.Set("report_base_currency", "eur")

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, config.DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "eur", cfg.ReportBaseCurrency)

	opts, err := cfg.ReportingOptions()
	require.NoError(t, err)
	assert.Equal(t, "EUR", opts.BaseCurrency)
}

func TestLoadConfig_Invalid(t *testing.T) {
	v := viper.New()
	v.Set("store_driver", "mongo")

	_, err := loadConfig(v)
	assert.Error(t, err)
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "bilix.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteReport(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	amount := decimal.NewFromInt(250)
	require.NoError(t, store.InsertInvoice(ctx, &domain.Invoice{
		UserID:    "user-1",
		Type:      domain.InvoiceTypePayment,
		Status:    domain.InvoiceStatusPaid,
		IssueDate: time.Now().UTC(),
		Amount:    &amount,
		Currency:  "GBP",
	}))

	svc := reporting.NewService(store, reporting.DefaultOptions(), zerolog.Nop())
	args := reportArgs{userID: "user-1", timeframe: reporting.TimeframeAll, horizon: 30}

	var pl reportFunc
	for _, r := range reports {
		if r.use == "pl" {
			pl = r.run
		}
	}
	require.NotNil(t, pl)

	var out bytes.Buffer
	require.NoError(t, writeReport(ctx, &out, svc, pl, args))

	var got struct {
		Revenue decimal.Decimal `json:"revenue"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.True(t, got.Revenue.Equal(amount), got.Revenue.String())

	args.timeframe = "decade"
	err := writeReport(ctx, &out, svc, pl, args)
	assert.True(t, reporting.IsInputError(err))
}

func TestReportsCoverEveryCommand(t *testing.T) {
	var names []string
	for _, r := range reports {
		names = append(names, r.use)
	}
	assert.Equal(t, []string{"ledger", "pl", "balance", "trial", "gl", "cashflow", "alerts", "dashboard"}, names)

	sub, _, err := reportCmd().Find([]string{"cashflow"})
	require.NoError(t, err)
	assert.Equal(t, "cashflow", sub.Name())
}

func TestResolveDocument(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.InsertDocument(ctx, &bq.DocumentRow{
		DocumentID: "doc-1",
		UserID:     "user-1",
		GCSURI:     "gs://bucket/invoices/user-1/a.pdf",
		Status:     bq.DocumentStatusUploaded,
		UploadTS:   time.Now(),
	}))

	id, err := resolveDocument(ctx, store, "user-1", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)

	id, err = resolveDocument(ctx, store, "user-1", "gs://bucket/invoices/user-1/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)

	_, err = resolveDocument(ctx, store, "user-2", "gs://bucket/invoices/user-1/a.pdf")
	assert.Error(t, err)
}

func TestFileChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	sum, err := fileChecksum(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)

	_, err = fileChecksum(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
