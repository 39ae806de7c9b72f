package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tresorerie/backend/internal/config"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/store/memory"
)

func TestTiersService(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	tiers := NewTiersService(st, testLogger())
	ledger := NewLedgerService(st, testLogger(), config.DefaultLedgerConfig())

	acme, err := tiers.Create(ctx, " ACME ", models.TiersFournisseur, "compta@acme.test", "")
	require.NoError(t, err)
	assert.Equal(t, "ACME", acme.Name)
	require.NotNil(t, acme.Email)
	assert.Nil(t, acme.Phone)

	_, err = tiers.Create(ctx, "Bob", "partenaire", "", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = tiers.Create(ctx, "  ", models.TiersClient, "", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ledger.CreatePurchase(ctx, CreateTransactionInput{Description: "Toner", Amount: dec("30"), TiersID: acme.ID})
	require.NoError(t, err)

	got, err := tiers.Get(ctx, acme.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Balance.Equal(dec("-30")), "got %s", got.Balance)

	missing, err := tiers.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := tiers.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCategoryService(t *testing.T) {
	ctx := context.Background()
	svc := NewCategoryService(memory.New(), testLogger())

	loyer, err := svc.Create(ctx, "Loyer", models.TypeDepense)
	require.NoError(t, err)
	assert.Equal(t, models.TypeDepense, loyer.Kind)

	_, err = svc.Create(ctx, "Virements", models.TypeVirementDebit)
	assert.ErrorIs(t, err, ErrValidation)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
