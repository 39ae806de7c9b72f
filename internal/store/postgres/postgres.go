/*
Package postgres implements store.Store on PostgreSQL through lib/pq.

Every WithTx scope is one sql.Tx. LockAccount uses SELECT ... FOR UPDATE so
that two requests touching the same account serialize for the whole
recalculation instead of interleaving on the balance chain.
*/
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/store"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) View(ctx context.Context, fn func(q store.Queries) error) error {
	return fn(&queries{db: s.db})
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(q store.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type queries struct {
	db dbtx
}

// =============================================================================
// ACCOUNTS
// =============================================================================

const accountColumns = `id, name, type, balance, active, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Balance, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &a, nil
}

func (q *queries) CreateAccount(ctx context.Context, a *models.Account) error {
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO accounts (id, name, type, balance, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		a.ID, a.Name, a.Type, a.Balance, a.Active,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (q *queries) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (q *queries) GetAccountByName(ctx context.Context, name string) (*models.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE LOWER(name) = LOWER($1)`, name))
}

func (q *queries) ListAccounts(ctx context.Context, includeInactive bool) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if !includeInactive {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (q *queries) LockAccount(ctx context.Context, id string) (*models.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
}

func (q *queries) SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	if _, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2`,
		balance, id); err != nil {
		return fmt.Errorf("failed to update balance for account %s: %w", id, err)
	}
	return nil
}

func (q *queries) DeactivateAccount(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET active = FALSE, updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to deactivate account %s: %w", id, err)
	}
	return nil
}

func (q *queries) CountAccountTransactions(ctx context.Context, accountID string) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

var _ store.Store = (*Store)(nil)
var _ store.Queries = (*queries)(nil)
