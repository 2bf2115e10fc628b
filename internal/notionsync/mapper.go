package notionsync

import (
	"time"

	"github.com/bilix/bilix/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the invoices database.
const (
	propInvoiceID = "Invoice ID"
	propType      = "Type"
	propStatus    = "Status"
	propIssueDate = "Issue Date"
	propDueDate   = "Due Date"
	propAmount    = "Amount"
	propCurrency  = "Currency"
	propVendor    = "Vendor"
	propCategory  = "Category"
	propTags      = "Tags"
	propNotes     = "Notes"
	propLineItems = "Line Items"
)

// InvoiceToNotionProperties converts an invoice to Notion properties. The
// invoice ID is the page title and the key used to find the page again.
// Amount is a Notion number, so it is a float here; the store keeps the exact value.
func InvoiceToNotionProperties(inv *domain.Invoice, vendorName, categoryName string) notionapi.Properties {
	props := notionapi.Properties{
		propInvoiceID: notionapi.TitleProperty{
			Title: richText(inv.ID),
		},
		propType: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(inv.Type)},
		},
		propStatus: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(inv.Status)},
		},
		propIssueDate: dateProperty(inv.IssueDate),
		propLineItems: notionapi.NumberProperty{
			Number: float64(len(inv.LineItems)),
		},
	}

	if inv.DueDate != nil {
		props[propDueDate] = dateProperty(*inv.DueDate)
	}
	if inv.Amount != nil {
		props[propAmount] = notionapi.NumberProperty{Number: inv.Amount.InexactFloat64()}
	}
	if inv.Currency != "" {
		props[propCurrency] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: inv.Currency},
		}
	}
	if vendorName != "" {
		props[propVendor] = notionapi.RichTextProperty{RichText: richText(vendorName)}
	}
	if categoryName != "" {
		props[propCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: categoryName},
		}
	}
	if len(inv.Tags) > 0 {
		opts := make([]notionapi.Option, 0, len(inv.Tags))
		for _, t := range inv.Tags {
			opts = append(opts, notionapi.Option{Name: t})
		}
		props[propTags] = notionapi.MultiSelectProperty{MultiSelect: opts}
	}
	if inv.Notes != "" {
		props[propNotes] = notionapi.RichTextProperty{RichText: richText(inv.Notes)}
	}

	return props
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

func dateProperty(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
	return notionapi.DateProperty{
		Date: &notionapi.DateObject{Start: &d},
	}
}

// extractInvoiceID reads the invoice ID from a page title.
// Returns empty string if not found.
func extractInvoiceID(page notionapi.Page) string {
	prop, ok := page.Properties[propInvoiceID]
	if !ok {
		return ""
	}
	switch title := prop.(type) {
	case *notionapi.TitleProperty:
		if len(title.Title) > 0 {
			return title.Title[0].PlainText
		}
	case notionapi.TitleProperty:
		if len(title.Title) > 0 {
			return title.Title[0].PlainText
		}
	}
	return ""
}
