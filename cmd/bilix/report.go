package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/bilix/bilix/internal/infra"
	"github.com/bilix/bilix/internal/reporting"
	"github.com/spf13/cobra"
)

type reportArgs struct {
	userID      string
	timeframe   string
	granularity string
	horizon     int
	account     string
}

type reportFunc func(ctx context.Context, svc *reporting.Service, a reportArgs) (interface{}, error)

var reports = []struct {
	use   string
	short string
	run   reportFunc
}{
	{"ledger", "Ledger entries with data-quality warnings", func(ctx context.Context, svc *reporting.Service, a reportArgs) (interface{}, error) {
		return svc.Ledger(ctx, a.userID, a.query())
	}},
	{"pl", "Profit and loss statement", func(ctx context.Context, svc *reporting.Service, a reportArgs) (interface{}, error) {
		return svc.ProfitLoss(ctx, a.userID, a.query())
	}},
	{"balance", "Balance sheet at the end of the period", func(ctx context.Context, svc *reporting.Service, a reportArgs) (interface{}, error) {
		return svc.BalanceSheet(ctx, a.userID, a.query())
	}},
	{"trial", "Trial balance", func(ctx context.Context, svc *reporting.Service, a reportArgs) (interface{}, error) {
		return svc.TrialBalance(ctx, a.userID, a.query())
	}},
	{"gl", "General ledger with running balances", func(ctx context.Context, svc *reporting.Service, a reportArgs) (interface{}, error) {
		return svc.GeneralLedger(ctx, a.userID, a.query(), reporting.GeneralLedgerQuery{Account: a.account})
	}},
	{"cashflow", "Cash-flow projection over the horizon", func(ctx context.Context, svc *reporting.Service, a reportArgs) (interface{}, error) {
		return svc.CashFlow(ctx, a.userID, a.horizon)
	}},
	{"alerts", "Financial alerts", func(ctx context.Context, svc *reporting.Service, a reportArgs) (interface{}, error) {
		return svc.Alerts(ctx, a.userID, a.horizon)
	}},
	{"dashboard", "Every report from one snapshot", func(ctx context.Context, svc *reporting.Service, a reportArgs) (interface{}, error) {
		return svc.Dashboard(ctx, a.userID, a.query(), a.horizon)
	}},
}

func (a reportArgs) query() reporting.Query {
	return reporting.Query{Timeframe: a.timeframe, Granularity: a.granularity}
}

func reportCmd() *cobra.Command {
	var args reportArgs

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run a financial report for a user",
		Long:  `Run a financial report over a user's invoices and print it as JSON.`,
	}
	cmd.PersistentFlags().StringVar(&args.userID, "user", "", "user whose books are reported (required)")
	cmd.PersistentFlags().StringVar(&args.timeframe, "timeframe", reporting.Timeframe30Days, "7days, 30days, 90days, month, quarter, year or all")
	cmd.PersistentFlags().StringVar(&args.granularity, "granularity", "", "day, week, month or quarter (default depends on timeframe)")
	cmd.PersistentFlags().IntVar(&args.horizon, "horizon", 30, "cash-flow horizon in days")
	cmd.PersistentFlags().StringVar(&args.account, "account", "", "general ledger account filter")
	_ = cmd.MarkPersistentFlagRequired("user")

	for _, r := range reports {
		run := r.run
		cmd.AddCommand(&cobra.Command{
			Use:   r.use,
			Short: r.short,
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				cfg, log, err := setup(c)
				if err != nil {
					return err
				}

				ctx := c.Context()
				store, err := infra.OpenStore(ctx, cfg)
				if err != nil {
					return err
				}
				defer store.Close()

				opts, err := cfg.ReportingOptions()
				if err != nil {
					return err
				}
				svc := reporting.NewService(store, opts, log)
				return writeReport(ctx, c.OutOrStdout(), svc, run, args)
			},
		})
	}

	return cmd
}

// writeReport runs one report and prints it as indented JSON.
func writeReport(ctx context.Context, w io.Writer, svc *reporting.Service, run reportFunc, a reportArgs) error {
	res, err := run(ctx, svc, a)
	if err != nil {
		return fmt.Errorf("report failed: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
