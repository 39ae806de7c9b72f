package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/store/memory"
)

func TestAccountService(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(memory.New(), testLogger())

	cash, err := svc.Create(ctx, "  Caisse  ", models.AccountCash)
	require.NoError(t, err)
	assert.Equal(t, "Caisse", cash.Name)
	assert.True(t, cash.Balance.IsZero())
	assert.True(t, cash.Active)

	t.Run("validation", func(t *testing.T) {
		_, err := svc.Create(ctx, "", models.AccountBank)
		assert.ErrorIs(t, err, ErrValidation)

		_, err = svc.Create(ctx, "Epargne", "savings")
		assert.ErrorIs(t, err, ErrValidation)

		_, err = svc.Create(ctx, "caisse", models.AccountCash)
		assert.ErrorIs(t, err, ErrValidation, "names are unique")
	})

	t.Run("deactivate", func(t *testing.T) {
		bank, err := svc.Create(ctx, "Banque", models.AccountBank)
		require.NoError(t, err)

		require.NoError(t, svc.Deactivate(ctx, bank.ID))
		assert.ErrorIs(t, svc.Deactivate(ctx, bank.ID), ErrNotFound)

		active, err := svc.List(ctx, false)
		require.NoError(t, err)
		assert.Len(t, active, 1)

		all, err := svc.List(ctx, true)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestAccountService_DeactivateWithTransactions(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	f.create(t, models.TypeRecette, "1", today, f.cash.ID)

	svc := NewAccountService(f.st, testLogger())
	err := svc.Deactivate(ctx, f.cash.ID)
	assert.ErrorIs(t, err, ErrValidation)

	a, err := svc.Get(ctx, f.cash.ID)
	require.NoError(t, err)
	assert.True(t, a.Active)
}

func TestTiersAndCategoryServices(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	tiers := NewTiersService(f.st, testLogger())
	categories := NewCategoryService(f.st, testLogger())

	client, err := tiers.Create(ctx, "ACME", models.TiersClient, "compta@acme.test", "")
	require.NoError(t, err)
	assert.Nil(t, client.Phone)

	_, err = tiers.Create(ctx, "X", "partner", "", "")
	assert.ErrorIs(t, err, ErrValidation)

	ventes, err := categories.Create(ctx, "Ventes", models.TypeRecette)
	require.NoError(t, err)
	_, err = categories.Create(ctx, "Virements", models.TypeVirementDebit)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.ledger.Create(ctx, CreateTransactionInput{
		Type: models.TypeRecette, Description: "Facture 12", Amount: dec("300"),
		AccountID: f.bank.ID, TiersID: client.ID, CategoryID: ventes.ID,
	})
	require.NoError(t, err)
	_, err = f.ledger.Create(ctx, CreateTransactionInput{
		Type: models.TypeDepense, Description: "Avoir", Amount: dec("45"),
		AccountID: f.bank.ID, TiersID: client.ID,
	})
	require.NoError(t, err)

	got, err := tiers.Get(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("255")))

	list, err := f.ledger.GetAll(ctx, models.TransactionFilter{TiersID: client.ID, CategoryID: ventes.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ACME", list[0].TiersName)
	assert.Equal(t, "Ventes", list[0].CategoryName)

	cats, err := categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}
