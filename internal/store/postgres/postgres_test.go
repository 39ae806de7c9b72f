package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/store"
)

var transactionCols = []string{
	"id", "seq", "type", "description", "amount", "date",
	"account_id", "tiers_id", "category_id", "balance_after",
	"transfer_ref", "linked_transaction_id", "reference", "payment_method",
	"value_date", "effective_date", "status", "bank_notes", "comments",
	"created_at", "updated_at", "account_name", "tiers_name", "category_name",
}

func transactionRow(rows *sqlmock.Rows, id string, seq int64, txType, amount, balanceAfter string, day time.Time) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, seq, txType, "desc", amount, day,
		"acc1", nil, nil, balanceAfter,
		nil, nil, nil, nil,
		nil, nil, nil, nil, nil,
		now, now, "Caisse", "", "",
	)
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestStore_WithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE accounts SET balance = \\$1, updated_at = NOW\\(\\) WHERE id = \\$2").
			WithArgs("130", "acc1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := s.WithTx(ctx, func(q store.Queries) error {
			return q.SetAccountBalance(ctx, "acc1", decimal.NewFromInt(130))
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := s.WithTx(ctx, func(q store.Queries) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		err := s.WithTx(ctx, func(q store.Queries) error { return nil })
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
	})
}

func TestQueries_LockAccount(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	t.Run("existing account", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, name, type, balance, active, created_at, updated_at FROM accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs("acc1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "balance", "active", "created_at", "updated_at"}).
				AddRow("acc1", "Caisse", "cash", "150.00", true, time.Now(), time.Now()))
		mock.ExpectCommit()

		var account *models.Account
		err := s.WithTx(ctx, func(q store.Queries) error {
			var err error
			account, err = q.LockAccount(ctx, "acc1")
			return err
		})
		require.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, models.AccountCash, account.Type)
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(150)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account", func(t *testing.T) {
		mock.ExpectQuery("FROM accounts WHERE id = \\$1").
			WithArgs("nope").
			WillReturnError(sql.ErrNoRows)

		var account *models.Account
		err := s.View(ctx, func(q store.Queries) error {
			var err error
			account, err = q.GetAccount(ctx, "nope")
			return err
		})
		assert.NoError(t, err)
		assert.Nil(t, account)
	})
}

func TestQueries_InsertTransaction(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	accountID := "acc1"
	tx := &models.Transaction{
		ID:           "tx1",
		Type:         models.TypeRecette,
		Description:  "Vente",
		Amount:       decimal.NewFromInt(30),
		Date:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		AccountID:    &accountID,
		BalanceAfter: decimal.NewFromInt(130),
	}

	now := time.Now()
	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs("tx1", "recette", "Vente", "30", tx.Date, "acc1", nil, nil, "130",
			nil, nil, nil, nil, nil, nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"seq", "created_at", "updated_at"}).AddRow(7, now, now))

	err := s.View(ctx, func(q store.Queries) error { return q.InsertTransaction(ctx, tx) })
	require.NoError(t, err)
	assert.Equal(t, int64(7), tx.Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries_ChainReads(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)
	day := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	t.Run("last before", func(t *testing.T) {
		mock.ExpectQuery("WHERE t.account_id = \\$1 AND t.date < \\$2 ORDER BY t.date DESC, t.seq DESC LIMIT 1").
			WithArgs("acc1", day).
			WillReturnRows(transactionRow(sqlmock.NewRows(transactionCols), "tx1", 1, "recette", "50.00", "50.00", day.AddDate(0, 0, -1)))

		var last *models.Transaction
		err := s.View(ctx, func(q store.Queries) error {
			var err error
			last, err = q.LastTransactionBefore(ctx, "acc1", day)
			return err
		})
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, "tx1", last.ID)
		assert.Equal(t, "Caisse", last.AccountName)
		assert.Nil(t, last.TiersID)
		assert.True(t, last.BalanceAfter.Equal(decimal.NewFromInt(50)))
	})

	t.Run("suffix from day", func(t *testing.T) {
		rows := sqlmock.NewRows(transactionCols)
		transactionRow(rows, "tx2", 2, "depense", "20.00", "30.00", day)
		transactionRow(rows, "tx3", 3, "recette", "5.00", "35.00", day.AddDate(0, 0, 1))

		mock.ExpectQuery("WHERE t.account_id = \\$1 AND t.date >= \\$2 ORDER BY t.date ASC, t.seq ASC").
			WithArgs("acc1", day).
			WillReturnRows(rows)

		var txs []models.Transaction
		err := s.View(ctx, func(q store.Queries) error {
			var err error
			txs, err = q.TransactionsFrom(ctx, "acc1", day)
			return err
		})
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, models.TypeDepense, txs[0].Type)
		assert.Equal(t, int64(3), txs[1].Seq)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries_ListTransactions(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectQuery("WHERE \\(t.description ILIKE \\$1 OR t.reference ILIKE \\$1\\) AND t.account_id = \\$2 AND t.date >= \\$3 AND t.date <= \\$4 ORDER BY t.date DESC, t.seq DESC LIMIT \\$5").
		WithArgs("%loyer%", "acc1",
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			10).
		WillReturnRows(sqlmock.NewRows(transactionCols))

	err := s.View(ctx, func(q store.Queries) error {
		_, err := q.ListTransactions(ctx, models.TransactionFilter{
			Search: "loyer", AccountID: "acc1", Month: "2024-02", Limit: 10,
		})
		return err
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries_Stats(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rowCap := decimal.NewFromInt(1000)

	mock.ExpectQuery("AND amount <= \\$2 THEN amount ELSE 0 END.*FROM transactions WHERE date >= \\$1").
		WithArgs(from, "1000").
		WillReturnRows(sqlmock.NewRows([]string{"count", "recettes", "depenses"}).AddRow(4, "300.00", "120.50"))

	var stats models.Stats
	err := s.View(ctx, func(q store.Queries) error {
		var err error
		stats, err = q.Stats(ctx, models.StatsFilter{From: &from}, &rowCap)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalTransactions)
	assert.Equal(t, "300", stats.TotalRecettes.String())
	assert.Equal(t, "120.5", stats.TotalDepenses.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries_DeleteByTransferRef(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM transactions WHERE transfer_ref = \\$1").
		WithArgs("ref1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	var n int64
	err := s.View(ctx, func(q store.Queries) error {
		var err error
		n, err = q.DeleteByTransferRef(ctx, "ref1")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestQueries_GetTiers(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM tiers ti\\s+LEFT JOIN transactions t ON t.tiers_id = ti.id WHERE ti.id = \\$1 GROUP BY ti.id").
		WithArgs("F1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "kind", "email", "phone", "created_at", "balance"}).
			AddRow("F1", "Fournisseur SA", "fournisseur", nil, "0102030405", time.Now(), "-40.00"))

	var tiers *models.Tiers
	err := s.View(ctx, func(q store.Queries) error {
		var err error
		tiers, err = q.GetTiers(ctx, "F1")
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, tiers)
	assert.Nil(t, tiers.Email)
	require.NotNil(t, tiers.Phone)
	assert.Equal(t, "0102030405", *tiers.Phone)
	assert.True(t, tiers.Balance.Equal(decimal.NewFromInt(-40)))
}

func TestQueries_DeleteDocumentsForTransaction(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectQuery("DELETE FROM documents WHERE transaction_id = \\$1 RETURNING").
		WithArgs("tx1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "transaction_id", "file_name", "content_type", "size", "path", "uploaded_at"}).
			AddRow("d1", "tx1", "facture.pdf", "application/pdf", 1024, "/data/d1", time.Now()))

	var docs []models.Document
	err := s.View(ctx, func(q store.Queries) error {
		var err error
		docs, err = q.DeleteDocumentsForTransaction(ctx, "tx1")
		return err
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "facture.pdf", docs[0].FileName)
}
