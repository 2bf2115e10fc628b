package reporting

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/bilix/bilix/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfitLoss_SinglePaidPayment(t *testing.T) {
	inv := invoice("inv-1", domain.InvoiceTypePayment, domain.InvoiceStatusPaid, "1000", day(-6))
	ledger := newTestAggregator().Aggregate([]domain.Invoice{inv}, lastWeek(), now)

	pl := BuildProfitLoss(ledger, DefaultChart())

	require.Len(t, pl.Buckets, 7)
	first := pl.Buckets[0]
	assert.Equal(t, "2024-06-09", first.Period)
	assertDec(t, "1000", first.NetIncome)
	assert.Nil(t, first.Delta)

	require.NotNil(t, pl.Buckets[1].Delta)
	assertDec(t, "-1000", *pl.Buckets[1].Delta)
	assertDec(t, "0", pl.Buckets[6].NetIncome)
	assertDec(t, "1000", pl.NetIncome)
	assert.Equal(t, StatementProfitLoss, pl.Statement)

	tb := BuildTrialBalance(ledger, DefaultChart())
	rows := map[Account]TrialBalanceRow{}
	for _, r := range tb.Rows {
		rows[r.Account] = r
	}
	assertDec(t, "1000", rows[AccountRevenue].Credit)
	assertDec(t, "1000", rows[AccountCash].Debit)
	assert.True(t, tb.Balanced)
}

func TestProfitLoss_NetIncomeIsPaymentsMinusPurchases(t *testing.T) {
	ledger := newTestAggregator().Aggregate(mixedInvoices(), lastWeek(), now)
	pl := BuildProfitLoss(ledger, DefaultChart())

	// 1000 + 300 in, 200 + 100 out; the cancelled 9999 is ignored.
	assertDec(t, "1300", pl.Revenue)
	assertDec(t, "300", pl.Expenses)
	assertDec(t, "1000", pl.NetIncome)
}

func TestProfitLoss_AllTimeSpansEntries(t *testing.T) {
	invoices := []domain.Invoice{
		invoice("jan", domain.InvoiceTypePayment, domain.InvoiceStatusPaid, "100", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
		invoice("mar", domain.InvoiceTypePurchase, domain.InvoiceStatusPaid, "40", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)),
	}
	ledger := newTestAggregator().Aggregate(invoices, AllTime(), now)
	pl := BuildProfitLoss(ledger, DefaultChart())

	require.Len(t, pl.Buckets, 3)
	assert.Equal(t, []string{"2024-01", "2024-02", "2024-03"},
		[]string{pl.Buckets[0].Period, pl.Buckets[1].Period, pl.Buckets[2].Period})
	assertDec(t, "0", pl.Buckets[1].NetIncome)
	assertDec(t, "-40", pl.Buckets[2].NetIncome)
	assertDec(t, "60", pl.NetIncome)
}

func TestTrialBalance_DebitsEqualCredits(t *testing.T) {
	ledger := newTestAggregator().Aggregate(mixedInvoices(), lastWeek(), now)
	tb := BuildTrialBalance(ledger, DefaultChart())

	assert.True(t, tb.TotalDebit.Equal(tb.TotalCredit))
	assert.True(t, tb.Balanced)
	assertDec(t, "1600", tb.TotalDebit)

	require.Len(t, tb.Rows, 5)
	assert.Equal(t, AccountCash, tb.Rows[0].Account)
	assertDec(t, "1000", tb.Rows[0].Debit)
	assertDec(t, "100", tb.Rows[0].Credit)
}

func TestBalanceSheet_Identity(t *testing.T) {
	ledger := newTestAggregator().Aggregate(mixedInvoices(), lastWeek().UpTo(), now)
	bs := BuildBalanceSheet(ledger, DefaultChart())

	assertDec(t, "1200", bs.Assets)
	assertDec(t, "200", bs.Liability)
	assertDec(t, "1000", bs.Equity)
	assert.True(t, bs.Assets.Equal(bs.Liability.Add(bs.Equity)))

	require.Len(t, bs.AssetLines, 2)
	assert.Equal(t, AccountCash, bs.AssetLines[0].Account)
	assertDec(t, "900", bs.AssetLines[0].Balance)
	assertDec(t, "300", bs.AssetLines[1].Balance)
	require.Len(t, bs.EquityLines, 1)
	assert.Equal(t, EquityPlugName, bs.EquityLines[0].Name)
	require.NotNil(t, bs.AsOf)
	assert.Equal(t, day(0), *bs.AsOf)
}

func TestStatements_EmptyDataset(t *testing.T) {
	ledger := newTestAggregator().Aggregate(nil, lastWeek(), now)

	pl := BuildProfitLoss(ledger, DefaultChart())
	assert.Len(t, pl.Buckets, 7)
	assertDec(t, "0", pl.NetIncome)

	bs := BuildBalanceSheet(ledger, DefaultChart())
	assertDec(t, "0", bs.Assets)
	assertDec(t, "0", bs.Equity)

	tb := BuildTrialBalance(ledger, DefaultChart())
	assert.True(t, tb.Balanced)
	assert.Len(t, tb.Rows, 5)
	assert.Equal(t, 0, tb.WarningCount)
	assert.NotNil(t, tb.Warnings)

	allTime := BuildProfitLoss(newTestAggregator().Aggregate(nil, AllTime(), now), DefaultChart())
	assert.Empty(t, allTime.Buckets)
	assert.NotNil(t, allTime.Buckets)
}

func TestStatements_CarryWarnings(t *testing.T) {
	bad := invoice("bad", domain.InvoiceTypePayment, domain.InvoiceStatusPaid, "", day(-1))
	invoices := append(mixedInvoices(), bad)
	ledger := newTestAggregator().Aggregate(invoices, lastWeek(), now)

	pl := BuildProfitLoss(ledger, DefaultChart())
	assert.Equal(t, 1, pl.WarningCount)
	assertDec(t, "1000", pl.NetIncome)
}

func TestStatements_Idempotent(t *testing.T) {
	build := func() []byte {
		ledger := newTestAggregator().Aggregate(mixedInvoices(), lastWeek(), now)
		out, err := json.Marshal([]interface{}{
			BuildProfitLoss(ledger, DefaultChart()),
			BuildTrialBalance(ledger, DefaultChart()),
			BuildBalanceSheet(ledger, DefaultChart()),
		})
		require.NoError(t, err)
		return out
	}
	assert.Equal(t, string(build()), string(build()))
}

func TestGeneralLedger_RunningBalanceAndPaging(t *testing.T) {
	ledger := newTestAggregator().Aggregate(mixedInvoices(), lastWeek(), now)

	gl, err := BuildGeneralLedger(ledger, DefaultChart(), GeneralLedgerQuery{Account: "Cash"})
	require.NoError(t, err)
	require.Len(t, gl.Lines, 2)
	assert.Equal(t, 2, gl.Total)
	assertDec(t, "1000", gl.Lines[0].Balance)
	assertDec(t, "900", gl.Lines[1].Balance)
	assert.Equal(t, "inv-4", gl.Lines[1].InvoiceID)

	page, err := BuildGeneralLedger(ledger, DefaultChart(), GeneralLedgerQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 8, page.Total)
	require.Len(t, page.Lines, 2)
	assert.Equal(t, "inv-2", page.Lines[0].InvoiceID)
	assertDec(t, "1300", page.Lines[1].Balance)

	past, err := BuildGeneralLedger(ledger, DefaultChart(), GeneralLedgerQuery{Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, past.Lines)
}

func TestGeneralLedger_HugeLimit(t *testing.T) {
	ledger := newTestAggregator().Aggregate(mixedInvoices(), lastWeek(), now)

	gl, err := BuildGeneralLedger(ledger, DefaultChart(), GeneralLedgerQuery{Limit: math.MaxInt, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 8, gl.Total)
	assert.Len(t, gl.Lines, 7)

	gl, err = BuildGeneralLedger(ledger, DefaultChart(), GeneralLedgerQuery{Limit: math.MaxInt, Offset: 7})
	require.NoError(t, err)
	assert.Len(t, gl.Lines, 1)
}

func TestGeneralLedger_InvalidQuery(t *testing.T) {
	ledger := newTestAggregator().Aggregate(nil, lastWeek(), now)

	_, err := BuildGeneralLedger(ledger, DefaultChart(), GeneralLedgerQuery{Account: "Inventory"})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = BuildGeneralLedger(ledger, DefaultChart(), GeneralLedgerQuery{Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.True(t, IsInputError(err))
}

// randomInvoices builds a mixed invoice set with missing amounts, line
// items that may or may not reconcile, and dates spread over a year.
func randomInvoices(rng *rand.Rand, n int) []domain.Invoice {
	types := []domain.InvoiceType{domain.InvoiceTypePayment, domain.InvoiceTypePurchase}
	statuses := []domain.InvoiceStatus{
		domain.InvoiceStatusPending,
		domain.InvoiceStatusPaid,
		domain.InvoiceStatusOverdue,
		domain.InvoiceStatusCancelled,
	}

	invoices := make([]domain.Invoice, 0, n)
	for i := 0; i < n; i++ {
		amount := fmt.Sprintf("%d.%02d", rng.Intn(5000), rng.Intn(100))
		inv := invoice(fmt.Sprintf("inv-%03d", i), types[rng.Intn(len(types))], statuses[rng.Intn(len(statuses))],
			amount, day(-rng.Intn(365)))
		if rng.Intn(3) == 0 {
			inv.DueDate = dayPtr(rng.Intn(60) - 30)
		}
		switch rng.Intn(4) {
		case 0:
			inv.Amount = nil
			inv.LineItems = []domain.LineItem{lineItem(fmt.Sprintf("li-%03d", i), "2", "10.50", "21.00")}
		case 1:
			inv.LineItems = []domain.LineItem{lineItem(fmt.Sprintf("li-%03d", i), "1", amount, amount)}
		case 2:
			inv.LineItems = []domain.LineItem{lineItem(fmt.Sprintf("li-%03d", i), "3", "1", "3")}
		}
		invoices = append(invoices, inv)
	}
	return invoices
}

func TestStatements_IdentitiesHoldForRandomInvoices(t *testing.T) {
	rng := rand.New(rand.NewSource(20240615))
	chart := DefaultChart()

	for i := 0; i < 200; i++ {
		invoices := randomInvoices(rng, 1+rng.Intn(40))

		ledger := newTestAggregator().Aggregate(invoices, lastWeek(), now)
		tb := BuildTrialBalance(ledger, chart)
		require.True(t, tb.Balanced, "iteration %d: debits %s, credits %s", i, tb.TotalDebit, tb.TotalCredit)
		require.True(t, tb.TotalDebit.Equal(tb.TotalCredit), "iteration %d", i)

		upTo := newTestAggregator().Aggregate(invoices, lastWeek().UpTo(), now)
		bs := BuildBalanceSheet(upTo, chart)
		require.True(t, bs.Assets.Equal(bs.Liability.Add(bs.Equity)),
			"iteration %d: assets %s, liabilities %s, equity %s", i, bs.Assets, bs.Liability, bs.Equity)

		pl := BuildProfitLoss(newTestAggregator().Aggregate(invoices, AllTime(), now), chart)
		require.True(t, bs.Equity.Equal(pl.NetIncome),
			"iteration %d: equity %s, lifetime net income %s", i, bs.Equity, pl.NetIncome)
	}
}
