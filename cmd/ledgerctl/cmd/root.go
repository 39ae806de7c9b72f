// Package cmd provides the ledgerctl commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tresorerie/backend/internal/config"
	"github.com/tresorerie/backend/internal/database"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/services"
	"github.com/tresorerie/backend/internal/store"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Maintenance commands for the trésorerie ledger",
	Long: `ledgerctl runs maintenance tasks against the ledger database
outside of the HTTP server.

Example:
  ledgerctl migrate
  ledgerctl recalculate --account 3f0c... --from 2024-01-01
  ledgerctl stats --from 2024-01-01 --to 2024-12-31`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute runs the root command. It is called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".env", "env file to load")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(recalculateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(accountsCmd)
}

// ledger wires the services a command needs. Callers close the store.
type ledger struct {
	store    store.Store
	service  *services.LedgerService
	accounts *services.AccountService
}

func openLedger(ctx context.Context) (*ledger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	st, err := database.OpenStore(ctx, cfg, slog.Default())
	if err != nil {
		return nil, err
	}

	return &ledger{
		store:    st,
		service:  services.NewLedgerService(st, slog.Default(), cfg.Ledger),
		accounts: services.NewAccountService(st, slog.Default()),
	}, nil
}

func parseDayFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := models.ParseDay(value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &d, nil
}
