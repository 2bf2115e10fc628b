package reporting

import (
	"fmt"

	"github.com/bilix/bilix/internal/domain"
)

// Account is one of the fixed ledger accounts invoices post to.
type Account string

const (
	AccountRevenue     Account = "Revenue"
	AccountExpense     Account = "Expense"
	AccountsReceivable Account = "AccountsReceivable"
	AccountsPayable    Account = "AccountsPayable"
	AccountCash        Account = "Cash"
)

// AccountClass is the statement section an account belongs to.
type AccountClass string

const (
	ClassAsset     AccountClass = "asset"
	ClassLiability AccountClass = "liability"
	ClassEquity    AccountClass = "equity"
	ClassRevenue   AccountClass = "revenue"
	ClassExpense   AccountClass = "expense"
)

// DebitNormal reports whether balances of this class grow with debits.
func (c AccountClass) DebitNormal() bool {
	return c == ClassAsset || c == ClassExpense
}

// AccountDef describes how an account is presented and classified.
type AccountDef struct {
	Account Account      `json:"account"`
	Name    string       `json:"name"`
	Class   AccountClass `json:"class"`
}

// PostingKey selects a posting rule.
type PostingKey struct {
	Type    domain.InvoiceType
	Settled bool
}

// PostingRule names the two accounts one invoice moves money between.
type PostingRule struct {
	Debit  Account
	Credit Account
}

// ChartOfAccounts is the classification table used by the aggregator and the
// statement builders. Accounts are listed in presentation order.
type ChartOfAccounts struct {
	Accounts []AccountDef
	Rules    map[PostingKey]PostingRule
}

// DefaultChart returns the built-in five-account chart.
func DefaultChart() ChartOfAccounts {
	return ChartOfAccounts{
		Accounts: []AccountDef{
			{Account: AccountCash, Name: "Cash", Class: ClassAsset},
			{Account: AccountsReceivable, Name: "Accounts Receivable", Class: ClassAsset},
			{Account: AccountsPayable, Name: "Accounts Payable", Class: ClassLiability},
			{Account: AccountRevenue, Name: "Revenue", Class: ClassRevenue},
			{Account: AccountExpense, Name: "Expense", Class: ClassExpense},
		},
		Rules: map[PostingKey]PostingRule{
			{Type: domain.InvoiceTypePayment, Settled: true}:   {Debit: AccountCash, Credit: AccountRevenue},
			{Type: domain.InvoiceTypePayment, Settled: false}:  {Debit: AccountsReceivable, Credit: AccountRevenue},
			{Type: domain.InvoiceTypePurchase, Settled: true}:  {Debit: AccountExpense, Credit: AccountCash},
			{Type: domain.InvoiceTypePurchase, Settled: false}: {Debit: AccountExpense, Credit: AccountsPayable},
		},
	}
}

// Validate checks that every rule references a classified account and that
// every invoice type has both a settled and an unsettled rule.
func (c ChartOfAccounts) Validate() error {
	known := make(map[Account]bool, len(c.Accounts))
	for _, def := range c.Accounts {
		if known[def.Account] {
			return fmt.Errorf("chart of accounts: duplicate account %q", def.Account)
		}
		known[def.Account] = true
	}

	for _, typ := range []domain.InvoiceType{domain.InvoiceTypePayment, domain.InvoiceTypePurchase} {
		for _, settled := range []bool{true, false} {
			rule, ok := c.Rules[PostingKey{Type: typ, Settled: settled}]
			if !ok {
				return fmt.Errorf("chart of accounts: no rule for %s (settled=%t)", typ, settled)
			}
			if !known[rule.Debit] || !known[rule.Credit] {
				return fmt.Errorf("chart of accounts: rule for %s references unclassified account", typ)
			}
			if rule.Debit == rule.Credit {
				return fmt.Errorf("chart of accounts: rule for %s posts to a single account", typ)
			}
		}
	}
	return nil
}

// Rule returns the posting rule for an invoice.
func (c ChartOfAccounts) Rule(typ domain.InvoiceType, settled bool) (PostingRule, bool) {
	r, ok := c.Rules[PostingKey{Type: typ, Settled: settled}]
	return r, ok
}

// Def returns the definition of account a.
func (c ChartOfAccounts) Def(a Account) (AccountDef, bool) {
	for _, def := range c.Accounts {
		if def.Account == a {
			return def, true
		}
	}
	return AccountDef{}, false
}

// Class returns the class of account a, or "" when a is not in the chart.
func (c ChartOfAccounts) Class(a Account) AccountClass {
	def, _ := c.Def(a)
	return def.Class
}

// ParseAccount matches s against the chart, case-sensitively on the account key.
func (c ChartOfAccounts) ParseAccount(s string) (Account, bool) {
	for _, def := range c.Accounts {
		if string(def.Account) == s {
			return def.Account, true
		}
	}
	return "", false
}
