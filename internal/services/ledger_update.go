package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tresorerie/backend/internal/metrics"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/store"
)

// TransactionUpdate is a partial update. Nil fields are left untouched.
// An empty string clears an optional field; on AccountID it detaches a purchase.
// ValueDate and EffectiveDate are YYYY-MM-DD strings.
type TransactionUpdate struct {
	Type          *models.TransactionType
	Description   *string
	Amount        *decimal.Decimal
	Date          *time.Time
	AccountID     *string
	TiersID       *string
	CategoryID    *string
	Reference     *string
	PaymentMethod *string
	ValueDate     *string
	EffectiveDate *string
	Status        *string
	BankNotes     *string
	Comments      *string
}

// Update applies a partial update and rebuilds the affected balance chains.
// Editing one leg of a transfer keeps the other leg in sync.
func (s *LedgerService) Update(ctx context.Context, id string, upd TransactionUpdate) (*models.Transaction, error) {
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		original, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if original == nil {
			return &NotFoundError{Kind: "transaction", ID: id}
		}
		if original.TransferRef != nil {
			return s.updateLinkedTransfer(ctx, q, original, upd)
		}

		updated, err := applyUpdate(ctx, q, original, upd)
		if err != nil {
			return err
		}
		if updated.Type.IsTransfer() {
			return invalid("type", "transfers are created with the transfer operation")
		}
		return s.persistUpdate(ctx, q, original, updated)
	})
	metrics.ObserveOperation("update", err)
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.logger.Info("transaction updated", "id", id)
	return s.GetByID(ctx, id)
}

func (s *LedgerService) updateLinkedTransfer(ctx context.Context, q store.Queries, original *models.Transaction, upd TransactionUpdate) error {
	if upd.Type != nil && *upd.Type != original.Type {
		return invalid("type", "a transfer leg cannot change type")
	}

	partner, err := q.FindTransferLeg(ctx, *original.TransferRef, original.Type.Opposite())
	if err != nil {
		return err
	}
	if partner == nil {
		return &IntegrityError{Message: "linked transaction not found"}
	}

	edited, err := applyUpdate(ctx, q, original, upd)
	if err != nil {
		return err
	}
	if !edited.HasAccount() {
		return missing("account_id")
	}
	if partner.HasAccount() && *edited.AccountID == *partner.AccountID {
		return invalid("account_id", "both legs of a transfer cannot use the same account")
	}

	// every account touched by either leg, locked once in id order
	accounts, err := lockAccounts(ctx, q, false, accountIDs(*original, *edited, *partner)...)
	if err != nil {
		return err
	}
	if !accounts[*edited.AccountID].Active {
		return &NotFoundError{Kind: "account", ID: *edited.AccountID}
	}

	mirrored := *partner
	mirrored.Amount = edited.Amount
	mirrored.Date = edited.Date
	mirrored.Reference = edited.Reference
	mirrored.PaymentMethod = edited.PaymentMethod
	mirrored.ValueDate = edited.ValueDate
	mirrored.EffectiveDate = edited.EffectiveDate
	mirrored.Status = edited.Status
	mirrored.BankNotes = edited.BankNotes
	mirrored.Comments = edited.Comments

	base := baseDescription(edited.Description)
	mirrored.Description = transferDescription(base, mirrored.Type, accounts[*edited.AccountID].Name)
	if upd.Description != nil && partner.HasAccount() {
		edited.Description = transferDescription(base, edited.Type, accounts[*partner.AccountID].Name)
	}

	if err := s.persistUpdate(ctx, q, original, edited); err != nil {
		return err
	}
	return s.persistUpdate(ctx, q, partner, &mirrored)
}

// persistUpdate writes updated over original and rebuilds the chains of the
// old and new accounts from the earlier of the two dates.
func (s *LedgerService) persistUpdate(ctx context.Context, q store.Queries, original, updated *models.Transaction) error {
	oldAccount, newAccount := deref(original.AccountID), deref(updated.AccountID)

	if _, err := lockAccounts(ctx, q, false, oldAccount, newAccount); err != nil {
		return err
	}

	if oldAccount != "" {
		if err := s.recalculate(ctx, q, oldAccount, original.Date); err != nil {
			return err
		}
	}
	if newAccount != "" && newAccount != oldAccount {
		if err := s.recalculate(ctx, q, newAccount, original.Date); err != nil {
			return err
		}
	}

	if newAccount == "" {
		updated.BalanceAfter = decimal.Zero
	}
	if err := q.UpdateTransaction(ctx, updated); err != nil {
		return err
	}

	anchor := original.Date
	if updated.Date.Before(anchor) {
		anchor = updated.Date
	}
	if oldAccount != "" && oldAccount != newAccount {
		if err := s.recalculate(ctx, q, oldAccount, anchor); err != nil {
			return err
		}
	}
	if newAccount != "" {
		return s.recalculate(ctx, q, newAccount, anchor)
	}
	return nil
}

// applyUpdate returns a copy of original with upd applied and validated.
func applyUpdate(ctx context.Context, q store.Queries, original *models.Transaction, upd TransactionUpdate) (*models.Transaction, error) {
	t := *original

	if upd.Type != nil {
		if !upd.Type.Valid() {
			return nil, invalid("type", "unknown transaction type %q", *upd.Type)
		}
		if original.Type.IsTransfer() != upd.Type.IsTransfer() {
			return nil, invalid("type", "cannot convert between transfer and non-transfer types")
		}
		t.Type = *upd.Type
	}
	if upd.Description != nil {
		d := strings.TrimSpace(*upd.Description)
		if d == "" {
			return nil, missing("description")
		}
		t.Description = d
	}
	if upd.Amount != nil {
		if err := checkAmount(*upd.Amount); err != nil {
			return nil, err
		}
		t.Amount = *upd.Amount
	}
	if upd.Date != nil {
		if upd.Date.IsZero() {
			return nil, missing("date")
		}
		t.Date = models.Day(*upd.Date)
	}

	if upd.AccountID != nil {
		t.AccountID = optional(*upd.AccountID)
		if t.HasAccount() {
			a, err := q.GetAccount(ctx, *t.AccountID)
			if err != nil {
				return nil, err
			}
			if a == nil || !a.Active {
				return nil, &NotFoundError{Kind: "account", ID: *t.AccountID}
			}
		}
	}
	if !t.HasAccount() && t.Type != models.TypeAchat {
		return nil, missing("account_id")
	}

	if upd.TiersID != nil {
		t.TiersID = optional(*upd.TiersID)
	}
	if upd.CategoryID != nil {
		t.CategoryID = optional(*upd.CategoryID)
	}
	if err := checkReferences(ctx, q, deref(upd.TiersID), deref(upd.CategoryID)); err != nil {
		return nil, err
	}

	setOptional(&t.Reference, upd.Reference)
	setOptional(&t.PaymentMethod, upd.PaymentMethod)
	setOptional(&t.Status, upd.Status)
	setOptional(&t.BankNotes, upd.BankNotes)
	setOptional(&t.Comments, upd.Comments)

	var err error
	if t.ValueDate, err = updateDay("value_date", t.ValueDate, upd.ValueDate); err != nil {
		return nil, err
	}
	if t.EffectiveDate, err = updateDay("effective_date", t.EffectiveDate, upd.EffectiveDate); err != nil {
		return nil, err
	}
	return &t, nil
}

func setOptional(dst **string, v *string) {
	if v != nil {
		*dst = optional(*v)
	}
}

func updateDay(field string, current *time.Time, v *string) (*time.Time, error) {
	if v == nil {
		return current, nil
	}
	if *v == "" {
		return nil, nil
	}
	d, err := models.ParseDay(*v)
	if err != nil {
		return nil, invalid(field, "expected YYYY-MM-DD")
	}
	return &d, nil
}
