package reporting

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Statement names.
const (
	StatementProfitLoss    = "ProfitLoss"
	StatementBalanceSheet  = "BalanceSheet"
	StatementTrialBalance  = "TrialBalance"
	StatementGeneralLedger = "GeneralLedger"
)

// StatementMeta is shared by every statement.
type StatementMeta struct {
	Statement    string               `json:"statement"`
	Period       Period               `json:"period"`
	WarningCount int                  `json:"warningCount"`
	Warnings     []DataQualityWarning `json:"warnings"`
}

func newMeta(name string, ledger LedgerResult) StatementMeta {
	warnings := ledger.Warnings
	if warnings == nil {
		warnings = []DataQualityWarning{}
	}
	return StatementMeta{
		Statement:    name,
		Period:       ledger.Period,
		WarningCount: len(warnings),
		Warnings:     warnings,
	}
}

// ProfitLossBucket is net income for one period bucket.
type ProfitLossBucket struct {
	Period    string           `json:"period"`
	Start     time.Time        `json:"start"`
	End       time.Time        `json:"end"`
	Revenue   decimal.Decimal  `json:"revenue"`
	Expenses  decimal.Decimal  `json:"expenses"`
	NetIncome decimal.Decimal  `json:"netIncome"`
	Delta     *decimal.Decimal `json:"delta"`
}

// ProfitLoss is revenue minus expenses per bucket and in total.
type ProfitLoss struct {
	StatementMeta
	Buckets   []ProfitLossBucket `json:"buckets"`
	Revenue   decimal.Decimal    `json:"revenue"`
	Expenses  decimal.Decimal    `json:"expenses"`
	NetIncome decimal.Decimal    `json:"netIncome"`
}

// BuildProfitLoss groups revenue- and expense-class entries by bucket.
// Buckets are contiguous so empty stretches show as zero.
func BuildProfitLoss(ledger LedgerResult, chart ChartOfAccounts) ProfitLoss {
	g := ledger.Period.Granularity
	pl := ProfitLoss{
		StatementMeta: newMeta(StatementProfitLoss, ledger),
		Buckets:       []ProfitLossBucket{},
		Revenue:       decimal.Zero,
		Expenses:      decimal.Zero,
		NetIncome:     decimal.Zero,
	}

	var bucketList []bucketSpan
	if ledger.Period.Bounded {
		bucketList = spans(ledger.Period.Start, ledger.Period.End, g, true)
	} else if len(ledger.Entries) > 0 {
		bucketList = spans(ledger.Entries[0].Date, ledger.Entries[len(ledger.Entries)-1].Date, g, false)
	}

	index := make(map[string]int, len(bucketList))
	for i, span := range bucketList {
		index[span.Key] = i
		pl.Buckets = append(pl.Buckets, ProfitLossBucket{
			Period:    span.Key,
			Start:     span.Start,
			End:       span.End,
			Revenue:   decimal.Zero,
			Expenses:  decimal.Zero,
			NetIncome: decimal.Zero,
		})
	}

	for _, e := range ledger.Entries {
		i, ok := index[BucketKey(e.Date, g)]
		if !ok {
			continue
		}
		switch chart.Class(e.Account) {
		case ClassRevenue:
			pl.Buckets[i].Revenue = pl.Buckets[i].Revenue.Add(e.Credit).Sub(e.Debit)
		case ClassExpense:
			pl.Buckets[i].Expenses = pl.Buckets[i].Expenses.Add(e.Debit).Sub(e.Credit)
		}
	}

	for i := range pl.Buckets {
		b := &pl.Buckets[i]
		b.NetIncome = b.Revenue.Sub(b.Expenses)
		if i > 0 {
			delta := b.NetIncome.Sub(pl.Buckets[i-1].NetIncome)
			b.Delta = &delta
		}
		pl.Revenue = pl.Revenue.Add(b.Revenue)
		pl.Expenses = pl.Expenses.Add(b.Expenses)
	}
	pl.NetIncome = pl.Revenue.Sub(pl.Expenses)

	return pl
}

// BalanceLine is the closing balance of one account.
type BalanceLine struct {
	Account Account         `json:"category"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// EquityPlugName labels the residual equity line.
const EquityPlugName = "Equity (residual)"

// BalanceSheet is a point-in-time position. Equity is the residual
// assets − liabilities: there is no contributed-capital ledger, so the
// identity Assets = Liabilities + Equity holds by construction.
type BalanceSheet struct {
	StatementMeta
	AsOf        *time.Time      `json:"asOf"`
	AssetLines  []BalanceLine   `json:"assetLines"`
	Liabilities []BalanceLine   `json:"liabilityLines"`
	EquityLines []BalanceLine   `json:"equityLines"`
	Assets      decimal.Decimal `json:"assets"`
	Liability   decimal.Decimal `json:"liabilities"`
	Equity      decimal.Decimal `json:"equity"`
}

// BuildBalanceSheet closes every asset and liability account over the
// entries in ledger. The ledger should cover all time up to the as-of date.
func BuildBalanceSheet(ledger LedgerResult, chart ChartOfAccounts) BalanceSheet {
	bs := BalanceSheet{
		StatementMeta: newMeta(StatementBalanceSheet, ledger),
		AssetLines:    []BalanceLine{},
		Liabilities:   []BalanceLine{},
		Assets:        decimal.Zero,
		Liability:     decimal.Zero,
	}
	if ledger.Period.Bounded {
		asOf := ledger.Period.End
		bs.AsOf = &asOf
	}

	balances := accountBalances(ledger.Entries, chart)
	for _, def := range chart.Accounts {
		line := BalanceLine{Account: def.Account, Name: def.Name, Balance: balances[def.Account]}
		switch def.Class {
		case ClassAsset:
			bs.AssetLines = append(bs.AssetLines, line)
			bs.Assets = bs.Assets.Add(line.Balance)
		case ClassLiability:
			bs.Liabilities = append(bs.Liabilities, line)
			bs.Liability = bs.Liability.Add(line.Balance)
		}
	}

	bs.Equity = bs.Assets.Sub(bs.Liability)
	bs.EquityLines = []BalanceLine{{Name: EquityPlugName, Balance: bs.Equity}}
	return bs
}

// accountBalances returns each account's balance on its normal side.
func accountBalances(entries []LedgerEntry, chart ChartOfAccounts) map[Account]decimal.Decimal {
	out := make(map[Account]decimal.Decimal, len(chart.Accounts))
	for _, def := range chart.Accounts {
		out[def.Account] = decimal.Zero
	}
	for _, e := range entries {
		bal := out[e.Account]
		if chart.Class(e.Account).DebitNormal() {
			out[e.Account] = bal.Add(e.Debit).Sub(e.Credit)
		} else {
			out[e.Account] = bal.Add(e.Credit).Sub(e.Debit)
		}
	}
	return out
}

// TrialBalanceRow is the debit and credit total of one account.
type TrialBalanceRow struct {
	Account Account         `json:"category"`
	Name    string          `json:"name"`
	Class   AccountClass    `json:"class"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
}

// TrialBalance lists every account. TotalDebit equals TotalCredit for any
// ledger produced by the aggregator.
type TrialBalance struct {
	StatementMeta
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"totalDebit"`
	TotalCredit decimal.Decimal   `json:"totalCredit"`
	Balanced    bool              `json:"balanced"`
}

// BuildTrialBalance totals debits and credits per account in chart order.
// Accounts missing from the chart are appended in name order.
func BuildTrialBalance(ledger LedgerResult, chart ChartOfAccounts) TrialBalance {
	tb := TrialBalance{
		StatementMeta: newMeta(StatementTrialBalance, ledger),
		Rows:          []TrialBalanceRow{},
		TotalDebit:    decimal.Zero,
		TotalCredit:   decimal.Zero,
	}

	index := make(map[Account]int, len(chart.Accounts))
	for _, def := range chart.Accounts {
		index[def.Account] = len(tb.Rows)
		tb.Rows = append(tb.Rows, TrialBalanceRow{
			Account: def.Account,
			Name:    def.Name,
			Class:   def.Class,
			Debit:   decimal.Zero,
			Credit:  decimal.Zero,
		})
	}

	var extra []Account
	for _, e := range ledger.Entries {
		i, ok := index[e.Account]
		if !ok {
			i = len(tb.Rows)
			index[e.Account] = i
			extra = append(extra, e.Account)
			tb.Rows = append(tb.Rows, TrialBalanceRow{Account: e.Account, Name: string(e.Account), Debit: decimal.Zero, Credit: decimal.Zero})
		}
		tb.Rows[i].Debit = tb.Rows[i].Debit.Add(e.Debit)
		tb.Rows[i].Credit = tb.Rows[i].Credit.Add(e.Credit)
		tb.TotalDebit = tb.TotalDebit.Add(e.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(e.Credit)
	}

	if len(extra) > 0 {
		tail := tb.Rows[len(chart.Accounts):]
		sort.Slice(tail, func(i, j int) bool { return tail[i].Account < tail[j].Account })
	}

	tb.Balanced = tb.TotalDebit.Equal(tb.TotalCredit)
	return tb
}
