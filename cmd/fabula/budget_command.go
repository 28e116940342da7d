package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fabula/internal/budget"
)

func newBudgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "budget",
		Short: "Show spend against the configured budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ledger, err := budget.OpenLedger(cfg.Paths.StateDir)
			if err != nil {
				return err
			}
			defer ledger.Close()

			governor := budget.NewGovernor(ledger, budget.Limits{
				LimitUSD:         cfg.Budget.LimitUSD,
				WarningThreshold: cfg.Budget.WarningThreshold,
				Window:           cfg.Budget.AccountingWindow,
			}, nil)

			usage, err := governor.CurrentUsage(cmd.Context())
			if err != nil {
				return err
			}

			window := cfg.Budget.AccountingWindow
			if window == "" {
				window = "session"
			}
			rows := [][]string{
				{"Accounting window", window},
				{"Window start", formatTimestamp(usage.WindowStart)},
				{"Requests", fmt.Sprintf("%d", usage.Requests)},
				{"Token equivalent", fmt.Sprintf("%.0f", usage.TokenEquivalent)},
				{"Total spend", formatUSD(usage.TotalCost)},
				{"Budget limit", formatUSD(cfg.Budget.LimitUSD)},
				{"Remaining", formatUSD(usage.Remaining)},
				{"Warning threshold", fmt.Sprintf("%.0f%%", cfg.Budget.WarningThreshold*100)},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Budget", "Value"}, rows, 1))

			breakdown, err := governor.Report(cmd.Context())
			if err != nil {
				return err
			}
			if len(breakdown) == 0 {
				return nil
			}
			detail := make([][]string, 0, len(breakdown))
			for _, row := range breakdown {
				detail = append(detail, []string{
					row.Service,
					string(row.Kind),
					fmt.Sprintf("%d", row.Count),
					fmt.Sprintf("$%.4f", row.AvgUnitCost),
					formatUSD(row.TotalCost),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Service", "Kind", "Calls", "Avg cost", "Total"}, detail, 2, 3, 4,
			))
			return nil
		},
	}
}
