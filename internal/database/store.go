package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tresorerie/backend/internal/config"
	"github.com/tresorerie/backend/internal/store"
	"github.com/tresorerie/backend/internal/store/memory"
	"github.com/tresorerie/backend/internal/store/postgres"
)

// OpenStore builds the storage backend named by cfg.Store.Driver.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	case "postgres", "":
		db, err := OpenPostgres(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		return postgres.New(db), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
