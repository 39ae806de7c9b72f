package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tresorerie/backend/internal/config"
	"github.com/tresorerie/backend/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Apply the ledger schema to the configured PostgreSQL database.
Statements are idempotent, running it twice is harmless.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Store.Driver != "postgres" && cfg.Store.Driver != "" {
		return errors.New("migrate needs the postgres store driver")
	}

	// OpenPostgres applies the schema before returning
	db, err := database.OpenPostgres(cmd.Context(), cfg.Database, slog.Default())
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
	return nil
}
