package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/store"
)

func ptr(s string) *string { return &s }

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	m := New()

	require.NoError(t, m.WithTx(ctx, func(q store.Queries) error {
		return q.CreateAccount(ctx, &models.Account{ID: "a1", Name: "Caisse", Type: models.AccountCash, Active: true})
	}))

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(q store.Queries) error {
		if err := q.SetAccountBalance(ctx, "a1", decimal.NewFromInt(50)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, m.View(ctx, func(q store.Queries) error {
		a, err := q.GetAccount(ctx, "a1")
		require.NoError(t, err)
		assert.True(t, a.Balance.IsZero())
		return nil
	}))
}

func TestChainOrdering(t *testing.T) {
	ctx := context.Background()
	m := New()
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)

	require.NoError(t, m.WithTx(ctx, func(q store.Queries) error {
		for _, tx := range []*models.Transaction{
			{ID: "late", Type: models.TypeRecette, Amount: decimal.NewFromInt(1), Date: d2, AccountID: ptr("a1")},
			{ID: "first", Type: models.TypeRecette, Amount: decimal.NewFromInt(1), Date: d1, AccountID: ptr("a1")},
			{ID: "second", Type: models.TypeRecette, Amount: decimal.NewFromInt(1), Date: d1, AccountID: ptr("a1")},
			{ID: "other", Type: models.TypeRecette, Amount: decimal.NewFromInt(1), Date: d1, AccountID: ptr("a2")},
		} {
			if err := q.InsertTransaction(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, m.View(ctx, func(q store.Queries) error {
		from, err := q.TransactionsFrom(ctx, "a1", d1)
		require.NoError(t, err)
		require.Len(t, from, 3)
		assert.Equal(t, []string{"first", "second", "late"}, []string{from[0].ID, from[1].ID, from[2].ID})

		last, err := q.LastTransactionBefore(ctx, "a1", d2)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, "second", last.ID)

		none, err := q.LastTransactionBefore(ctx, "a1", d1)
		require.NoError(t, err)
		assert.Nil(t, none)
		return nil
	}))
}

func TestStats_RowCap(t *testing.T) {
	ctx := context.Background()
	m := New()
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.WithTx(ctx, func(q store.Queries) error {
		q.InsertTransaction(ctx, &models.Transaction{ID: "r", Type: models.TypeRecette, Amount: decimal.NewFromInt(10), Date: d})
		q.InsertTransaction(ctx, &models.Transaction{ID: "huge", Type: models.TypeRecette, Amount: decimal.New(1, 15), Date: d})
		q.InsertTransaction(ctx, &models.Transaction{ID: "d", Type: models.TypeVirementDebit, Amount: decimal.NewFromInt(4), Date: d})
		return nil
	}))

	require.NoError(t, m.View(ctx, func(q store.Queries) error {
		rowCap := decimal.New(1, 9)
		stats, err := q.Stats(ctx, models.StatsFilter{}, &rowCap)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.TotalTransactions)
		assert.True(t, stats.TotalRecettes.Equal(decimal.NewFromInt(10)))
		assert.True(t, stats.TotalDepenses.Equal(decimal.NewFromInt(4)))
		return nil
	}))
}

func TestListTransactions_MonthAndRangeIntersect(t *testing.T) {
	ctx := context.Background()
	m := New()
	on := func(month time.Month, d int) time.Time { return time.Date(2024, month, d, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, m.WithTx(ctx, func(q store.Queries) error {
		for id, d := range map[string]time.Time{
			"feb28": on(time.February, 28),
			"mar05": on(time.March, 5),
			"mar20": on(time.March, 20),
			"apr02": on(time.April, 2),
		} {
			if err := q.InsertTransaction(ctx, &models.Transaction{ID: id, Type: models.TypeRecette, Description: id, Amount: decimal.NewFromInt(1), Date: d}); err != nil {
				return err
			}
		}
		return nil
	}))

	day := func(month time.Month, d int) *time.Time { v := on(month, d); return &v }
	tests := []struct {
		name   string
		filter models.TransactionFilter
		want   []string
	}{
		{"wider from keeps the month", models.TransactionFilter{Month: "2024-03", From: day(time.February, 1)}, []string{"mar20", "mar05"}},
		{"narrower to cuts the month", models.TransactionFilter{Month: "2024-03", To: day(time.March, 10)}, []string{"mar05"}},
		{"disjoint range yields nothing", models.TransactionFilter{Month: "2024-03", From: day(time.April, 1)}, nil},
		{"range alone", models.TransactionFilter{From: day(time.March, 1), To: day(time.April, 30)}, []string{"apr02", "mar20", "mar05"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, m.View(ctx, func(q store.Queries) error {
				got, err := q.ListTransactions(ctx, tt.filter)
				require.NoError(t, err)
				var ids []string
				for _, tx := range got {
					ids = append(ids, tx.ID)
				}
				assert.Equal(t, tt.want, ids)
				return nil
			}))
		})
	}
}
