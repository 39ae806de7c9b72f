package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tresorerie/backend/internal/models"
)

const selectTransaction = `
	SELECT t.id, t.seq, t.type, t.description, t.amount, t.date,
	       t.account_id, t.tiers_id, t.category_id, t.balance_after,
	       t.transfer_ref, t.linked_transaction_id, t.reference, t.payment_method,
	       t.value_date, t.effective_date, t.status, t.bank_notes, t.comments,
	       t.created_at, t.updated_at,
	       COALESCE(a.name, ''), COALESCE(ti.name, ''), COALESCE(c.name, '')
	FROM transactions t
	LEFT JOIN accounts a ON a.id = t.account_id
	LEFT JOIN tiers ti ON ti.id = t.tiers_id
	LEFT JOIN categories c ON c.id = t.category_id`

func scanTransaction(row interface{ Scan(...any) error }) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID, &t.Seq, &t.Type, &t.Description, &t.Amount, &t.Date,
		&t.AccountID, &t.TiersID, &t.CategoryID, &t.BalanceAfter,
		&t.TransferRef, &t.LinkedTransactionID, &t.Reference, &t.PaymentMethod,
		&t.ValueDate, &t.EffectiveDate, &t.Status, &t.BankNotes, &t.Comments,
		&t.CreatedAt, &t.UpdatedAt,
		&t.AccountName, &t.TiersName, &t.CategoryName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return &t, nil
}

func (q *queries) queryTransactions(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

func (q *queries) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO transactions
		(id, type, description, amount, date, account_id, tiers_id, category_id, balance_after,
		 transfer_ref, linked_transaction_id, reference, payment_method, value_date, effective_date,
		 status, bank_notes, comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING seq, created_at, updated_at`,
		t.ID, t.Type, t.Description, t.Amount, t.Date, t.AccountID, t.TiersID, t.CategoryID, t.BalanceAfter,
		t.TransferRef, t.LinkedTransactionID, t.Reference, t.PaymentMethod, t.ValueDate, t.EffectiveDate,
		t.Status, t.BankNotes, t.Comments,
	).Scan(&t.Seq, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (q *queries) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE transactions SET
			type = $2, description = $3, amount = $4, date = $5, account_id = $6, tiers_id = $7,
			category_id = $8, balance_after = $9, transfer_ref = $10, linked_transaction_id = $11,
			reference = $12, payment_method = $13, value_date = $14, effective_date = $15,
			status = $16, bank_notes = $17, comments = $18, updated_at = NOW()
		WHERE id = $1`,
		t.ID, t.Type, t.Description, t.Amount, t.Date, t.AccountID, t.TiersID,
		t.CategoryID, t.BalanceAfter, t.TransferRef, t.LinkedTransactionID,
		t.Reference, t.PaymentMethod, t.ValueDate, t.EffectiveDate,
		t.Status, t.BankNotes, t.Comments,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", t.ID, err)
	}
	return nil
}

func (q *queries) SetBalanceAfter(ctx context.Context, id string, balance decimal.Decimal) error {
	if _, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET balance_after = $1 WHERE id = $2`, balance, id); err != nil {
		return fmt.Errorf("failed to set balance_after on %s: %w", id, err)
	}
	return nil
}

func (q *queries) SetLinkedTransaction(ctx context.Context, id, linkedID string) error {
	if _, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET linked_transaction_id = $1 WHERE id = $2`, linkedID, id); err != nil {
		return fmt.Errorf("failed to link transaction %s: %w", id, err)
	}
	return nil
}

func (q *queries) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, selectTransaction+` WHERE t.id = $1`, id))
}

func (q *queries) ListTransactions(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if f.Search != "" {
		add("(t.description ILIKE $%[1]d OR t.reference ILIKE $%[1]d)", "%"+f.Search+"%")
	}
	if f.Type != "" {
		add("t.type = $%d", f.Type)
	}
	if f.AccountID != "" {
		add("t.account_id = $%d", f.AccountID)
	}
	if f.TiersID != "" {
		add("t.tiers_id = $%d", f.TiersID)
	}
	if f.CategoryID != "" {
		add("t.category_id = $%d", f.CategoryID)
	}
	if f.Month != "" {
		start, end, err := models.MonthRange(f.Month)
		if err != nil {
			return nil, err
		}
		add("t.date >= $%d", start)
		add("t.date <= $%d", end)
	}
	if f.From != nil {
		add("t.date >= $%d", *f.From)
	}
	if f.To != nil {
		add("t.date <= $%d", *f.To)
	}

	query := selectTransaction
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.date DESC, t.seq DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return q.queryTransactions(ctx, query, args...)
}

func (q *queries) TransactionsByTransferRef(ctx context.Context, ref string) ([]models.Transaction, error) {
	return q.queryTransactions(ctx, selectTransaction+` WHERE t.transfer_ref = $1 ORDER BY t.seq`, ref)
}

func (q *queries) FindTransferLeg(ctx context.Context, ref string, legType models.TransactionType) (*models.Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx,
		selectTransaction+` WHERE t.transfer_ref = $1 AND t.type = $2 LIMIT 1`, ref, legType))
}

func (q *queries) LastTransactionBefore(ctx context.Context, accountID string, day time.Time) (*models.Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx,
		selectTransaction+` WHERE t.account_id = $1 AND t.date < $2 ORDER BY t.date DESC, t.seq DESC LIMIT 1`,
		accountID, day))
}

func (q *queries) TransactionsFrom(ctx context.Context, accountID string, day time.Time) ([]models.Transaction, error) {
	return q.queryTransactions(ctx,
		selectTransaction+` WHERE t.account_id = $1 AND t.date >= $2 ORDER BY t.date ASC, t.seq ASC`,
		accountID, day)
}

func (q *queries) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	return nil
}

func (q *queries) DeleteByTransferRef(ctx context.Context, ref string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE transfer_ref = $1`, ref)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transfer %s: %w", ref, err)
	}
	return res.RowsAffected()
}

func (q *queries) Stats(ctx context.Context, f models.StatsFilter, rowCap *decimal.Decimal) (models.Stats, error) {
	var (
		where []string
		args  []any
	)
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("date <= $%d", len(args)))
	}
	capped := ""
	if rowCap != nil {
		args = append(args, *rowCap)
		capped = fmt.Sprintf(" AND amount <= $%d", len(args))
	}

	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN type IN ('recette', 'virement_credit')` + capped + ` THEN amount ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN type IN ('depense', 'virement_debit')` + capped + ` THEN amount ELSE 0 END), 0)
		FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	var stats models.Stats
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalTransactions, &stats.TotalRecettes, &stats.TotalDepenses,
	); err != nil {
		return models.Stats{}, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	return stats, nil
}
