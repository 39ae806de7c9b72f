// Package store defines the persistence contract used by the ledger services.
//
// All writes happen inside Store.WithTx: the callback either returns nil and
// everything it wrote is committed, or returns an error and nothing is.
// Helpers never open their own scope; they receive the Queries handle of the
// enclosing one.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tresorerie/backend/internal/models"
)

// Store is the entry point of a storage backend.
type Store interface {
	// View runs fn against a read scope.
	View(ctx context.Context, fn func(q Queries) error) error

	// WithTx runs fn atomically. A non-nil error rolls everything back.
	WithTx(ctx context.Context, fn func(q Queries) error) error

	Close() error
}

// Queries is the set of reads and writes available inside a scope.
// Get* methods return (nil, nil) when the row does not exist.
type Queries interface {
	AccountQueries
	TransactionQueries
	TiersQueries
	DocumentQueries
}

type AccountQueries interface {
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByName(ctx context.Context, name string) (*models.Account, error)
	ListAccounts(ctx context.Context, includeInactive bool) ([]models.Account, error)

	// LockAccount loads the account and holds a write lock on it until the scope ends.
	LockAccount(ctx context.Context, id string) (*models.Account, error)
	SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error
	DeactivateAccount(ctx context.Context, id string) error
	CountAccountTransactions(ctx context.Context, accountID string) (int64, error)
}

type TransactionQueries interface {
	// InsertTransaction stores t and assigns t.Seq.
	InsertTransaction(ctx context.Context, t *models.Transaction) error
	UpdateTransaction(ctx context.Context, t *models.Transaction) error
	SetBalanceAfter(ctx context.Context, id string, balance decimal.Decimal) error
	SetLinkedTransaction(ctx context.Context, id, linkedID string) error

	// GetTransaction returns the row with account, tiers and category names joined.
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, error)
	TransactionsByTransferRef(ctx context.Context, ref string) ([]models.Transaction, error)
	FindTransferLeg(ctx context.Context, ref string, legType models.TransactionType) (*models.Transaction, error)

	// LastTransactionBefore returns the latest row of the account strictly before day,
	// ordered by (date, seq).
	LastTransactionBefore(ctx context.Context, accountID string, day time.Time) (*models.Transaction, error)
	// TransactionsFrom returns the rows of the account with date >= day, ordered by (date, seq).
	TransactionsFrom(ctx context.Context, accountID string, day time.Time) ([]models.Transaction, error)

	DeleteTransaction(ctx context.Context, id string) error
	DeleteByTransferRef(ctx context.Context, ref string) (int64, error)

	// Stats aggregates the filtered rows. When rowCap is set, rows with an amount above it are ignored.
	Stats(ctx context.Context, f models.StatsFilter, rowCap *decimal.Decimal) (models.Stats, error)
}

type TiersQueries interface {
	CreateTiers(ctx context.Context, t *models.Tiers) error
	GetTiers(ctx context.Context, id string) (*models.Tiers, error)
	ListTiers(ctx context.Context) ([]models.Tiers, error)

	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

type DocumentQueries interface {
	InsertDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, transactionID string) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	// DeleteDocumentsForTransaction removes the rows and returns what was removed.
	DeleteDocumentsForTransaction(ctx context.Context, transactionID string) ([]models.Document, error)
}
