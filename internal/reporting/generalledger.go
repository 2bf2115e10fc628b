package reporting

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// GeneralLedgerQuery narrows and pages the general ledger.
type GeneralLedgerQuery struct {
	Account string
	Limit   int // 0 means no limit
	Offset  int
}

// GeneralLedgerLine is a ledger entry with the running balance of its account.
type GeneralLedgerLine struct {
	LedgerEntry
	Balance decimal.Decimal `json:"balance"`
}

// GeneralLedger is the chronological entry list.
type GeneralLedger struct {
	StatementMeta
	Account     string              `json:"account,omitempty"`
	Lines       []GeneralLedgerLine `json:"lines"`
	Total       int                 `json:"total"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
	TotalDebit  decimal.Decimal     `json:"totalDebit"`
	TotalCredit decimal.Decimal     `json:"totalCredit"`
}

// BuildGeneralLedger lists entries in posting order with per-account running
// balances. Balances are computed before paging so a page shows the same
// figures it would inside the full list.
func BuildGeneralLedger(ledger LedgerResult, chart ChartOfAccounts, q GeneralLedgerQuery) (GeneralLedger, error) {
	if q.Limit < 0 || q.Offset < 0 {
		return GeneralLedger{}, fmt.Errorf("%w: limit and offset must be non-negative", ErrInvalidQuery)
	}
	var filter Account
	if q.Account != "" {
		a, ok := chart.ParseAccount(q.Account)
		if !ok {
			return GeneralLedger{}, fmt.Errorf("%w: unknown account %q", ErrInvalidQuery, q.Account)
		}
		filter = a
	}

	gl := GeneralLedger{
		StatementMeta: newMeta(StatementGeneralLedger, ledger),
		Account:       string(filter),
		Lines:         []GeneralLedgerLine{},
		Limit:         q.Limit,
		Offset:        q.Offset,
		TotalDebit:    decimal.Zero,
		TotalCredit:   decimal.Zero,
	}

	running := make(map[Account]decimal.Decimal)
	var all []GeneralLedgerLine
	for _, e := range ledger.Entries {
		bal := running[e.Account]
		if chart.Class(e.Account).DebitNormal() {
			bal = bal.Add(e.Debit).Sub(e.Credit)
		} else {
			bal = bal.Add(e.Credit).Sub(e.Debit)
		}
		running[e.Account] = bal

		if filter != "" && e.Account != filter {
			continue
		}
		all = append(all, GeneralLedgerLine{LedgerEntry: e, Balance: bal})
		gl.TotalDebit = gl.TotalDebit.Add(e.Debit)
		gl.TotalCredit = gl.TotalCredit.Add(e.Credit)
	}

	gl.Total = len(all)
	if q.Offset >= len(all) {
		return gl, nil
	}
	end := len(all)
	// Compared against the remaining count so a huge limit cannot overflow.
	if q.Limit > 0 && q.Limit < end-q.Offset {
		end = q.Offset + q.Limit
	}
	gl.Lines = append(gl.Lines, all[q.Offset:end]...)
	return gl, nil
}
