package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/store"
)

// AccountService manages bank accounts and cash registers. Balances are only
// ever written by the LedgerService.
type AccountService struct {
	store  store.Store
	logger *slog.Logger
}

func NewAccountService(st store.Store, logger *slog.Logger) *AccountService {
	return &AccountService{store: st, logger: logger}
}

func (s *AccountService) Create(ctx context.Context, name string, accountType models.AccountType) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, missing("name")
	}
	if accountType != models.AccountCash && accountType != models.AccountBank {
		return nil, invalid("type", "must be cash or bank; got %q", accountType)
	}

	account := &models.Account{
		ID:      uuid.NewString(),
		Name:    name,
		Type:    accountType,
		Balance: decimal.Zero,
		Active:  true,
	}
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		existing, err := q.GetAccountByName(ctx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return invalid("name", "an account named %q already exists", name)
		}
		return q.CreateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created", "id", account.ID, "name", account.Name, "type", account.Type)
	return account, nil
}

// Get returns the account, or nil if it does not exist.
func (s *AccountService) Get(ctx context.Context, id string) (*models.Account, error) {
	var a *models.Account
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		a, err = q.GetAccount(ctx, id)
		return err
	})
	return a, err
}

func (s *AccountService) List(ctx context.Context, includeInactive bool) ([]models.Account, error) {
	var out []models.Account
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		out, err = q.ListAccounts(ctx, includeInactive)
		return err
	})
	return out, err
}

// Deactivate soft-deletes an account that no transaction references.
func (s *AccountService) Deactivate(ctx context.Context, id string) error {
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		a, err := q.LockAccount(ctx, id)
		if err != nil {
			return err
		}
		if a == nil || !a.Active {
			return &NotFoundError{Kind: "account", ID: id}
		}

		n, err := q.CountAccountTransactions(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return invalid("id", "account has %d transactions and cannot be deleted", n)
		}
		return q.DeactivateAccount(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("account deactivated", "id", id)
	return nil
}
