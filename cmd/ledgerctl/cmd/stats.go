package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tresorerie/backend/internal/models"
)

var (
	statsFrom string
	statsTo   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display ledger totals",
	Long: `Display the number of transactions and the receipt and expense totals
over an optional date window.

Example:
  ledgerctl stats --from 2024-01-01 --to 2024-03-31`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsFrom, "from", "", "first day, YYYY-MM-DD")
	statsCmd.Flags().StringVar(&statsTo, "to", "", "last day, YYYY-MM-DD")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var filter models.StatsFilter
	var err error
	if filter.From, err = parseDayFlag("from", statsFrom); err != nil {
		return err
	}
	if filter.To, err = parseDayFlag("to", statsTo); err != nil {
		return err
	}

	l, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer l.store.Close()

	stats := l.service.GetStats(ctx, filter)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Ledger Statistics ===")
	fmt.Fprintf(out, "Transactions:   %d\n", stats.TotalTransactions)
	fmt.Fprintf(out, "Total recettes: %s\n", stats.TotalRecettes.StringFixed(2))
	fmt.Fprintf(out, "Total depenses: %s\n", stats.TotalDepenses.StringFixed(2))
	return nil
}
