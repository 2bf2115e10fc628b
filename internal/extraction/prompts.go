package extraction

import (
	"sort"
	"strings"
)

const invoicePrompt = "You are an invoice reader for a small-business bookkeeping service.\n\n" +
	"Task:\n" +
	"- Read the attached invoice or receipt.\n" +
	"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
	"- Output a single JSON object.\n\n" +
	"The object must have these fields:\n" +
	"- \"invoice_type\": \"PURCHASE\" if the user is paying a supplier, \"PAYMENT\" if the user is billing a customer\n" +
	"- \"issue_date\": string, ISO format \"YYYY-MM-DD\"\n" +
	"- \"due_date\": string \"YYYY-MM-DD\" or null\n" +
	"- \"total_amount\": number, the grand total including tax, or null if not printed\n" +
	"- \"currency\": string, ISO 4217 code (e.g. \"GBP\")\n" +
	"- \"vendor_name\": string, the counterparty's name, or null\n" +
	"- \"category\": string or null (one of the categories below)\n" +
	"- \"notes\": string or null\n" +
	"- \"line_items\": array of objects with \"description\" (string), \"quantity\" (number),\n" +
	"  \"unit_price\" (number), \"total_price\" (number), \"tax_rate\" (percent number or null),\n" +
	"  \"tax_amount\" (number or null), \"discount\" (number or null)\n\n"

const invoiceRules = "Rules:\n" +
	"- Amounts are positive numbers without currency symbols or thousands separators.\n" +
	"- If a field cannot be read, set it to null rather than guessing.\n" +
	"- Do not invent line items; use an empty array when none are itemised.\n\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Output must begin with \"{\" and end with \"}\".\n"

// buildInvoicePrompt assembles the extraction prompt, listing the user's
// categories when there are any.
func buildInvoicePrompt(categories []string) string {
	var b strings.Builder
	b.WriteString(invoicePrompt)

	if len(categories) > 0 {
		sorted := append([]string(nil), categories...)
		sort.Strings(sorted)

		b.WriteString("Use ONLY the following categories (or null if none fits):\n")
		for _, c := range sorted {
			b.WriteString("  - " + c + "\n")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("The user has no categories yet: set \"category\" to null.\n\n")
	}

	b.WriteString(invoiceRules)
	return b.String()
}
