package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/bilix/bilix/internal/domain"
	"github.com/bilix/bilix/internal/logger"
	"github.com/jomei/notionapi"
)

const (
	// BatchSize defines the number of invoices to process in a single batch
	BatchSize = 100
)

// SyncOptions selects what SyncInvoices mirrors.
type SyncOptions struct {
	// From and To limit the invoices written by issue date. Pages are only
	// archived when their invoice no longer exists at all.
	From   *time.Time
	To     *time.Time
	DryRun bool
}

// SyncResult counts what a sync did (or would do, in dry-run mode).
type SyncResult struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
	Total    int `json:"total"`
}

// SyncInvoices mirrors a user's invoices into a Notion database:
// 1. Reads the user's invoices and every page of the database
// 2. Archives pages whose invoice was deleted (or that carry no invoice ID)
// 3. Updates pages of known invoices and creates pages for new ones
//
// Failures on single pages are logged and counted; the sync carries on.
func SyncInvoices(ctx context.Context, src InvoiceSource, notionClient NotionService, notionDBID, userID string, opts SyncOptions) (*SyncResult, error) {
	log := logger.FromContext(ctx).With().Str("user_id", userID).Logger()

	log.Info().
		Bool("dry_run", opts.DryRun).
		Msg("Starting invoice sync to Notion")

	invoices, err := src.ListInvoices(ctx, userID, domain.InvoiceFilter{})
	if err != nil {
		return nil, fmt.Errorf("SyncInvoices: query invoices: %w", err)
	}
	vendorNames, categoryNames, err := loadNames(ctx, src, userID)
	if err != nil {
		return nil, fmt.Errorf("SyncInvoices: %w", err)
	}

	log.Info().Int("invoice_count", len(invoices)).Msg("Retrieved invoices")

	known := make(map[string]bool, len(invoices))
	for _, inv := range invoices {
		known[inv.ID] = true
	}

	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return nil, fmt.Errorf("SyncInvoices: query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	result := &SyncResult{}
	pageByInvoice := make(map[string]string, len(notionPages))

	for _, page := range notionPages {
		invID := extractInvoiceID(page)
		if invID != "" && known[invID] {
			if _, dup := pageByInvoice[invID]; !dup {
				pageByInvoice[invID] = string(page.ID)
				continue
			}
		}

		// Deleted invoice, page without an ID or duplicate page.
		if opts.DryRun {
			log.Info().
				Str("invoice_id", invID).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would archive stale Notion page")
			result.Archived++
			continue
		}
		if err := notionClient.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("invoice_id", invID).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale Notion page")
			result.Failed++
			continue
		}
		result.Archived++
	}

	selected := selectInvoices(invoices, opts.From, opts.To)
	result.Total = len(selected)

	for i := 0; i < len(selected); i += BatchSize {
		end := i + BatchSize
		if end > len(selected) {
			end = len(selected)
		}

		log.Debug().
			Int("batch_start", i).
			Int("batch_end", end).
			Msg("Processing batch")

		for j := i; j < end; j++ {
			inv := &selected[j]
			pageID, exists := pageByInvoice[inv.ID]

			if opts.DryRun {
				if exists {
					log.Info().Str("invoice_id", inv.ID).Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
					result.Updated++
				} else {
					log.Info().Str("invoice_id", inv.ID).Msg("[DRY RUN] Would create Notion page")
					result.Created++
				}
				continue
			}

			props := InvoiceToNotionProperties(inv, vendorNames[inv.VendorID], categoryNames[inv.CategoryID])

			if exists {
				if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
					log.Warn().
						Err(err).
						Str("invoice_id", inv.ID).
						Str("page_id", pageID).
						Msg("Failed to update Notion page")
					result.Failed++
					continue
				}
				result.Updated++
				continue
			}

			page, err := notionClient.CreatePage(ctx, notionDBID, props)
			if err != nil {
				log.Warn().
					Err(err).
					Str("invoice_id", inv.ID).
					Msg("Failed to create Notion page")
				result.Failed++
				continue
			}
			log.Debug().
				Str("invoice_id", inv.ID).
				Str("page_id", string(page.ID)).
				Msg("Created Notion page")
			result.Created++
		}
	}

	log.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("archived", result.Archived).
		Int("failed", result.Failed).
		Int("total", result.Total).
		Msg("Invoice sync completed")

	return result, nil
}

func loadNames(ctx context.Context, src InvoiceSource, userID string) (map[string]string, map[string]string, error) {
	vendors, err := src.ListVendors(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("query vendors: %w", err)
	}
	categories, err := src.ListCategories(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("query categories: %w", err)
	}

	vendorNames := make(map[string]string, len(vendors))
	for _, v := range vendors {
		vendorNames[v.ID] = v.Name
	}
	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}
	return vendorNames, categoryNames, nil
}

// selectInvoices keeps invoices issued within [from, to], compared by day.
func selectInvoices(invoices []domain.Invoice, from, to *time.Time) []domain.Invoice {
	if from == nil && to == nil {
		return invoices
	}
	out := make([]domain.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		day := domain.DateOf(inv.IssueDate)
		if from != nil && day.Before(domain.DateOf(*from)) {
			continue
		}
		if to != nil && day.After(domain.DateOf(*to)) {
			continue
		}
		out = append(out, inv)
	}
	return out
}

// queryAllNotionPages queries all pages from a Notion database and returns them.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
