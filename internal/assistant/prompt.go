package assistant

import (
	"fmt"
	"strings"

	"github.com/bilix/bilix/internal/reporting"
)

const basePrompt = `You are Bilix, a bookkeeping assistant for a small business.
Answer questions about the user's invoices, cash flow and financial health.
Be concise. Quote amounts with two decimals. If a figure is not in the summary
below, say you do not have it instead of estimating.`

// maxSummaryAlerts caps how many alerts are listed in the prompt.
const maxSummaryAlerts = 5

func systemPrompt(summary string) string {
	if summary == "" {
		return basePrompt + "\n\nThe user's figures could not be loaded right now."
	}
	return basePrompt + "\n\n" + summary
}

// summarizeDashboard renders the figures the assistant may quote.
func summarizeDashboard(d reporting.Dashboard) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Financial summary (%s, generated %s):\n", d.Period.Timeframe, d.GeneratedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Revenue: %s\n", d.ProfitLoss.Revenue.StringFixed(2))
	fmt.Fprintf(&b, "- Expenses: %s\n", d.ProfitLoss.Expenses.StringFixed(2))
	fmt.Fprintf(&b, "- Net income: %s\n", d.ProfitLoss.NetIncome.StringFixed(2))
	fmt.Fprintf(&b, "- Assets: %s, liabilities: %s, equity: %s\n",
		d.BalanceSheet.Assets.StringFixed(2),
		d.BalanceSheet.Liability.StringFixed(2),
		d.BalanceSheet.Equity.StringFixed(2))

	cf := d.CashFlow
	fmt.Fprintf(&b, "- Cash today: %s; in %d days: %s; lowest: %s on %s\n",
		cf.StartingBalance.StringFixed(2),
		cf.HorizonDays,
		cf.EndingBalance.StringFixed(2),
		cf.MinBalance.StringFixed(2),
		cf.MinBalanceDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Overdue invoices: %d\n", len(cf.OverdueIDs))

	if len(d.Alerts) == 0 {
		b.WriteString("- Alerts: none\n")
		return b.String()
	}

	b.WriteString("- Alerts:\n")
	for i, al := range d.Alerts {
		if i == maxSummaryAlerts {
			fmt.Fprintf(&b, "  - and %d more\n", len(d.Alerts)-maxSummaryAlerts)
			break
		}
		fmt.Fprintf(&b, "  - [%s] %s: %s\n", al.Severity, al.Title, al.Description)
	}
	return b.String()
}
