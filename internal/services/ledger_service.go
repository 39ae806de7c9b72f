package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tresorerie/backend/internal/config"
	"github.com/tresorerie/backend/internal/metrics"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/store"
)

// DocumentCascader removes the attachments of a deleted transaction.
// It runs after the ledger commit; its failures never undo the deletion.
type DocumentCascader interface {
	CascadeDeleteForTransaction(ctx context.Context, transactionID string) error
}

// StatsCache memoizes GetStats results between ledger writes. Get reports
// the cache generation it looked under; Set must be given that generation so
// results computed before an Invalidate are never served after it.
type StatsCache interface {
	Get(ctx context.Context, f models.StatsFilter) (*models.Stats, int64, bool)
	Set(ctx context.Context, f models.StatsFilter, gen int64, stats models.Stats)
	Invalidate(ctx context.Context)
}

// LedgerService owns the transaction table and the balance invariants:
// every account balance equals the fold of its transactions in
// (date, creation order), and every balance_after is the running value
// of that fold.
type LedgerService struct {
	store  store.Store
	docs   DocumentCascader
	cache  StatsCache
	logger *slog.Logger
	cfg    config.LedgerConfig
	now    func() time.Time
	newID  func() string
}

type LedgerOption func(*LedgerService)

func WithDocumentCascader(d DocumentCascader) LedgerOption {
	return func(s *LedgerService) { s.docs = d }
}

func WithStatsCache(c StatsCache) LedgerOption {
	return func(s *LedgerService) { s.cache = c }
}

func WithClock(now func() time.Time) LedgerOption {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(st store.Store, logger *slog.Logger, cfg config.LedgerConfig, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		store:  st,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metadata holds the optional descriptive fields of a transaction.
type Metadata struct {
	Reference     string
	PaymentMethod string
	Status        string
	BankNotes     string
	Comments      string
	ValueDate     *time.Time
	EffectiveDate *time.Time
}

// CreateTransactionInput is the input of Create. A zero Date means today.
type CreateTransactionInput struct {
	Type        models.TransactionType
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	AccountID   string
	TiersID     string
	CategoryID  string
	Metadata    Metadata
}

// TransferInput is the input of CreateTransfer. A zero Date means today.
type TransferInput struct {
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	Description   string
	Date          time.Time
	TiersID       string
	CategoryID    string
	Metadata      Metadata
}

// =============================================================================
// CREATE
// =============================================================================

// Create records a receipt, an expense or a purchase and moves the account balance accordingly.
func (s *LedgerService) Create(ctx context.Context, in CreateTransactionInput) (*models.Transaction, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		ID:          s.newID(),
		Type:        in.Type,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Date:        s.day(in.Date),
		AccountID:   optional(in.AccountID),
		TiersID:     optional(in.TiersID),
		CategoryID:  optional(in.CategoryID),
	}
	in.Metadata.applyTo(tx)

	err := s.store.WithTx(ctx, func(q store.Queries) error {
		if err := checkReferences(ctx, q, in.TiersID, in.CategoryID); err != nil {
			return err
		}

		if !tx.HasAccount() {
			tx.BalanceAfter = decimal.Zero
			return q.InsertTransaction(ctx, tx)
		}

		accounts, err := lockAccounts(ctx, q, true, in.AccountID)
		if err != nil {
			return err
		}
		account := accounts[in.AccountID]

		newBalance := tx.Type.Apply(account.Balance, tx.Amount)
		tx.BalanceAfter = newBalance
		if err := q.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		if err := q.SetAccountBalance(ctx, account.ID, newBalance); err != nil {
			return err
		}
		return s.settle(ctx, q, account.ID, tx)
	})
	metrics.ObserveOperation("create", err)
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.logger.Info("transaction created",
		"id", tx.ID, "type", tx.Type, "amount", tx.Amount.String(), "account_id", deref(tx.AccountID))
	return s.GetByID(ctx, tx.ID)
}

// CreatePurchase records an achat. The account is optional.
func (s *LedgerService) CreatePurchase(ctx context.Context, in CreateTransactionInput) (*models.Transaction, error) {
	in.Type = models.TypeAchat
	return s.Create(ctx, in)
}

func validateCreate(in CreateTransactionInput) error {
	if in.Type == "" {
		return missing("type")
	}
	switch in.Type {
	case models.TypeRecette, models.TypeDepense, models.TypeAchat:
	default:
		return invalid("type", "must be one of recette, depense, achat; got %q", in.Type)
	}
	if strings.TrimSpace(in.Description) == "" {
		return missing("description")
	}
	if in.Amount.IsZero() {
		return missing("amount")
	}
	if in.Type != models.TypeAchat && in.AccountID == "" {
		return missing("account_id")
	}
	return checkAmount(in.Amount)
}

// maxAmount is the first value NUMERIC(15,2) cannot hold.
var maxAmount = decimal.New(1, 13)

// checkAmount accepts positive amounts that the amount and balance columns
// store exactly: at most two decimal places and below maxAmount.
func checkAmount(amount decimal.Decimal) error {
	switch {
	case !amount.IsPositive():
		return invalid("amount", "must be a positive number")
	case !amount.Equal(amount.Truncate(2)):
		return invalid("amount", "at most 2 decimal places")
	case amount.GreaterThanOrEqual(maxAmount):
		return invalid("amount", "must be below %s", maxAmount.String())
	}
	return nil
}

// =============================================================================
// TRANSFER
// =============================================================================

// CreateTransfer moves amount between two accounts as a linked debit/credit pair.
func (s *LedgerService) CreateTransfer(ctx context.Context, in TransferInput) (*models.TransferResult, error) {
	switch {
	case in.FromAccountID == "":
		return nil, missing("from_account_id")
	case in.ToAccountID == "":
		return nil, missing("to_account_id")
	case in.FromAccountID == in.ToAccountID:
		return nil, invalid("to_account_id", "source and destination accounts must differ")
	}
	if err := checkAmount(in.Amount); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = "Virement"
	}
	ref := s.newID()
	day := s.day(in.Date)

	debit := &models.Transaction{
		ID:          s.newID(),
		Type:        models.TypeVirementDebit,
		Amount:      in.Amount,
		Date:        day,
		AccountID:   optional(in.FromAccountID),
		TiersID:     optional(in.TiersID),
		CategoryID:  optional(in.CategoryID),
		TransferRef: &ref,
	}
	credit := &models.Transaction{
		ID:          s.newID(),
		Type:        models.TypeVirementCredit,
		Amount:      in.Amount,
		Date:        day,
		AccountID:   optional(in.ToAccountID),
		TiersID:     optional(in.TiersID),
		CategoryID:  optional(in.CategoryID),
		TransferRef: &ref,
	}
	in.Metadata.applyTo(debit)
	in.Metadata.applyTo(credit)

	err := s.store.WithTx(ctx, func(q store.Queries) error {
		if err := checkReferences(ctx, q, in.TiersID, in.CategoryID); err != nil {
			return err
		}

		accounts, err := lockAccounts(ctx, q, true, in.FromAccountID, in.ToAccountID)
		if err != nil {
			return err
		}
		from, to := accounts[in.FromAccountID], accounts[in.ToAccountID]

		if from.Balance.LessThan(in.Amount) {
			return &InsufficientFundsError{AccountID: from.ID, Available: from.Balance, Requested: in.Amount}
		}

		debit.Description = transferDescription(description, debit.Type, to.Name)
		credit.Description = transferDescription(description, credit.Type, from.Name)

		fromBalance := debit.Type.Apply(from.Balance, in.Amount)
		toBalance := credit.Type.Apply(to.Balance, in.Amount)
		debit.BalanceAfter = fromBalance
		credit.BalanceAfter = toBalance
		debit.LinkedTransactionID = &credit.ID
		credit.LinkedTransactionID = &debit.ID

		if err := q.InsertTransaction(ctx, debit); err != nil {
			return err
		}
		if err := q.InsertTransaction(ctx, credit); err != nil {
			return err
		}
		if err := q.SetLinkedTransaction(ctx, debit.ID, credit.ID); err != nil {
			return err
		}
		if err := q.SetLinkedTransaction(ctx, credit.ID, debit.ID); err != nil {
			return err
		}

		if err := q.SetAccountBalance(ctx, from.ID, fromBalance); err != nil {
			return err
		}
		if err := q.SetAccountBalance(ctx, to.ID, toBalance); err != nil {
			return err
		}

		if err := s.settle(ctx, q, from.ID, debit); err != nil {
			return err
		}
		return s.settle(ctx, q, to.ID, credit)
	})
	metrics.ObserveOperation("transfer", err)
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.logger.Info("transfer created",
		"transfer_ref", ref, "from", in.FromAccountID, "to", in.ToAccountID, "amount", in.Amount.String())

	result := &models.TransferResult{}
	if result.Debit, err = s.GetByID(ctx, debit.ID); err != nil {
		return nil, err
	}
	if result.Credit, err = s.GetByID(ctx, credit.ID); err != nil {
		return nil, err
	}
	return result, nil
}

// transferDescription appends "(to X)" on a debit leg and "(from X)" on a credit leg.
func transferDescription(base string, legType models.TransactionType, otherAccount string) string {
	if legType == models.TypeVirementDebit {
		return fmt.Sprintf("%s (to %s)", base, otherAccount)
	}
	return fmt.Sprintf("%s (from %s)", base, otherAccount)
}

// baseDescription strips a trailing parenthetical suffix.
func baseDescription(description string) string {
	d := strings.TrimSpace(description)
	if strings.HasSuffix(d, ")") {
		if i := strings.LastIndex(d, " ("); i > 0 {
			return strings.TrimSpace(d[:i])
		}
	}
	return d
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a transaction, or both legs of its transfer, and reverses the
// balance effect. Attachments are cascaded after the commit.
func (s *LedgerService) Delete(ctx context.Context, id string) error {
	var removed []string

	err := s.store.WithTx(ctx, func(q store.Queries) error {
		t, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return &NotFoundError{Kind: "transaction", ID: id}
		}

		legs := []models.Transaction{*t}
		if t.TransferRef != nil {
			if legs, err = q.TransactionsByTransferRef(ctx, *t.TransferRef); err != nil {
				return err
			}
		}

		accounts, err := lockAccounts(ctx, q, false, accountIDs(legs...)...)
		if err != nil {
			return err
		}

		for _, leg := range legs {
			if !leg.HasAccount() {
				continue
			}
			account := accounts[*leg.AccountID]
			account.Balance = leg.Type.Reverse(account.Balance, leg.Amount)
			if err := q.SetAccountBalance(ctx, account.ID, account.Balance); err != nil {
				return err
			}
		}

		if t.TransferRef != nil {
			if _, err := q.DeleteByTransferRef(ctx, *t.TransferRef); err != nil {
				return err
			}
		} else if err := q.DeleteTransaction(ctx, t.ID); err != nil {
			return err
		}

		// later rows still carry the deleted amount in their balance_after
		for _, leg := range legs {
			if leg.HasAccount() {
				if err := s.recalculate(ctx, q, *leg.AccountID, leg.Date); err != nil {
					return err
				}
			}
			removed = append(removed, leg.ID)
		}
		return nil
	})
	metrics.ObserveOperation("delete", err)
	if err != nil {
		return err
	}

	s.invalidateStats(ctx)
	s.logger.Info("transaction deleted", "id", id, "removed", len(removed))

	if s.docs != nil {
		for _, txID := range removed {
			if err := s.docs.CascadeDeleteForTransaction(ctx, txID); err != nil {
				s.logger.Warn("document cleanup failed", "transaction_id", txID, "error", err)
			}
		}
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// GetByID returns the transaction with joined names and documents, or nil if absent.
func (s *LedgerService) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var t *models.Transaction
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		if t, err = q.GetTransaction(ctx, id); err != nil || t == nil {
			return err
		}
		t.Documents, err = q.ListDocuments(ctx, id)
		return err
	})
	return t, err
}

func (s *LedgerService) GetAll(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, error) {
	if f.Month != "" {
		if _, _, err := models.MonthRange(f.Month); err != nil {
			return nil, invalid("month", "expected YYYY-MM")
		}
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, invalid("type", "unknown transaction type %q", f.Type)
	}

	var out []models.Transaction
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		out, err = q.ListTransactions(ctx, f)
		return err
	})
	return out, err
}

// GetByTransferRef returns both legs of a transfer.
func (s *LedgerService) GetByTransferRef(ctx context.Context, ref string) ([]models.Transaction, error) {
	var out []models.Transaction
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		out, err = q.TransactionsByTransferRef(ctx, ref)
		return err
	})
	return out, err
}

// =============================================================================
// HELPERS
// =============================================================================

// lockAccounts locks the given accounts in id order so concurrent operations
// never wait on each other in a cycle.
func lockAccounts(ctx context.Context, q store.Queries, requireActive bool, ids ...string) (map[string]*models.Account, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Strings(unique)

	accounts := make(map[string]*models.Account, len(unique))
	for _, id := range unique {
		a, err := q.LockAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		if a == nil || (requireActive && !a.Active) {
			return nil, &NotFoundError{Kind: "account", ID: id}
		}
		accounts[id] = a
	}
	return accounts, nil
}

func checkReferences(ctx context.Context, q store.Queries, tiersID, categoryID string) error {
	if tiersID != "" {
		t, err := q.GetTiers(ctx, tiersID)
		if err != nil {
			return err
		}
		if t == nil {
			return &NotFoundError{Kind: "tiers", ID: tiersID}
		}
	}
	if categoryID != "" {
		c, err := q.GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		if c == nil {
			return &NotFoundError{Kind: "category", ID: categoryID}
		}
	}
	return nil
}

func (s *LedgerService) day(t time.Time) time.Time {
	if t.IsZero() {
		t = s.now()
	}
	return models.Day(t)
}

func (s *LedgerService) invalidateStats(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func (m Metadata) applyTo(t *models.Transaction) {
	t.Reference = optional(m.Reference)
	t.PaymentMethod = optional(m.PaymentMethod)
	t.Status = optional(m.Status)
	t.BankNotes = optional(m.BankNotes)
	t.Comments = optional(m.Comments)
	t.ValueDate = optionalDay(m.ValueDate)
	t.EffectiveDate = optionalDay(m.EffectiveDate)
}

func accountIDs(txs ...models.Transaction) []string {
	var ids []string
	for _, t := range txs {
		if t.HasAccount() {
			ids = append(ids, *t.AccountID)
		}
	}
	return ids
}

// optional maps "" to unset.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalDay(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	d := models.Day(*t)
	return &d
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
