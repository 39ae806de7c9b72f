package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tresorerie/backend/internal/metrics"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/store"
)

// RecalculateBalances rebuilds the balance_after chain of an account from the
// given day onwards and resets the account balance to the end of the chain.
// Running it twice without intervening writes changes nothing.
func (s *LedgerService) RecalculateBalances(ctx context.Context, accountID string, from time.Time) error {
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		if _, err := lockAccounts(ctx, q, false, accountID); err != nil {
			return err
		}
		return s.recalculate(ctx, q, accountID, models.Day(from))
	})
	metrics.ObserveOperation("recalculate", err)
	if err != nil {
		return err
	}
	s.logger.Info("balances recalculated", "account_id", accountID, "from", from.Format(models.DateLayout))
	return nil
}

// recalculate folds the account's rows dated on or after from, starting at the
// balance_after of the last row before it. The caller holds the account lock.
func (s *LedgerService) recalculate(ctx context.Context, q store.Queries, accountID string, from time.Time) error {
	base := decimal.Zero
	prev, err := q.LastTransactionBefore(ctx, accountID, from)
	if err != nil {
		return err
	}
	if prev != nil {
		base = prev.BalanceAfter
	}

	suffix, err := q.TransactionsFrom(ctx, accountID, from)
	if err != nil {
		return err
	}

	rewritten := 0
	for _, t := range suffix {
		base = t.Type.Apply(base, t.Amount)
		if t.BalanceAfter.Equal(base) {
			continue
		}
		if err := q.SetBalanceAfter(ctx, t.ID, base); err != nil {
			return err
		}
		rewritten++
	}

	if rewritten > 0 {
		metrics.BalanceRowsRewritten.Add(float64(rewritten))
		s.logger.Debug("balance chain rewritten",
			"account_id", accountID, "from", from.Format(models.DateLayout), "rows", rewritten)
	}
	return q.SetAccountBalance(ctx, accountID, base)
}

// settle recalculates from t's date when t was not appended at the end of the
// account's chain, i.e. when it is backdated.
func (s *LedgerService) settle(ctx context.Context, q store.Queries, accountID string, t *models.Transaction) error {
	suffix, err := q.TransactionsFrom(ctx, accountID, t.Date)
	if err != nil {
		return err
	}
	if n := len(suffix); n == 0 || suffix[n-1].ID == t.ID {
		return nil
	}
	return s.recalculate(ctx, q, accountID, t.Date)
}
