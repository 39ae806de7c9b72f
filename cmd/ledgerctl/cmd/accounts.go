package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var accountsAll bool

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List accounts and their balances",
	RunE:  runAccounts,
}

func init() {
	accountsCmd.Flags().BoolVar(&accountsAll, "all", false, "include deactivated accounts")
}

func runAccounts(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	l, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer l.store.Close()

	accounts, err := l.accounts.List(ctx, accountsAll)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no accounts")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tBALANCE\tACTIVE")
	for _, a := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", a.ID, a.Name, a.Type, a.Balance.StringFixed(2), a.Active)
	}
	return w.Flush()
}
