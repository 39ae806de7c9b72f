package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

var (
	recalcAccount string
	recalcFrom    string
)

var recalculateCmd = &cobra.Command{
	Use:   "recalculate",
	Short: "Rebuild running balances",
	Long: `Rebuild the balance_after chain and the current balance of one account,
or of every account when --account is omitted.

Example:
  ledgerctl recalculate --from 2024-01-01
  ledgerctl recalculate --account 3f0c...`,
	RunE: runRecalculate,
}

func init() {
	recalculateCmd.Flags().StringVar(&recalcAccount, "account", "", "account id (default: all accounts)")
	recalculateCmd.Flags().StringVar(&recalcFrom, "from", "", "first day to rebuild, YYYY-MM-DD (default: whole history)")
}

func runRecalculate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	from, err := parseDayFlag("from", recalcFrom)
	if err != nil {
		return err
	}
	start := time.Time{}
	if from != nil {
		start = *from
	}

	l, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer l.store.Close()

	ids := []string{recalcAccount}
	if recalcAccount == "" {
		accounts, err := l.accounts.List(ctx, true)
		if err != nil {
			return err
		}
		ids = ids[:0]
		for _, a := range accounts {
			ids = append(ids, a.ID)
		}
	}

	for _, id := range ids {
		if err := l.service.RecalculateBalances(ctx, id, start); err != nil {
			return fmt.Errorf("recalculate %s: %w", id, err)
		}
		slog.Debug("account recalculated", "account_id", id)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "recalculated %d account(s)\n", len(ids))
	return nil
}
