// Package memory provides an in-memory Store, used by tests and by the
// "memory" storage driver for local runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tresorerie/backend/internal/models"
	"github.com/tresorerie/backend/internal/store"
)

// Memory serializes every scope behind one mutex. WithTx works on a copy of
// the state and swaps it in only when the callback succeeds.
type Memory struct {
	mu sync.RWMutex
	st *state
}

func New() *Memory {
	return &Memory{st: newState()}
}

func (m *Memory) View(ctx context.Context, fn func(q store.Queries) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(m.st)
}

func (m *Memory) WithTx(ctx context.Context, fn func(q store.Queries) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	draft := m.st.clone()
	if err := fn(draft); err != nil {
		return err
	}
	m.st = draft
	return nil
}

func (m *Memory) Close() error { return nil }

type state struct {
	seq          int64
	accounts     map[string]models.Account
	transactions map[string]models.Transaction
	tiers        map[string]models.Tiers
	categories   map[string]models.Category
	documents    map[string]models.Document
}

func newState() *state {
	return &state{
		accounts:     make(map[string]models.Account),
		transactions: make(map[string]models.Transaction),
		tiers:        make(map[string]models.Tiers),
		categories:   make(map[string]models.Category),
		documents:    make(map[string]models.Document),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.tiers {
		c.tiers[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.documents {
		c.documents[k] = v
	}
	return c
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *state) CreateAccount(_ context.Context, a *models.Account) error {
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	s.accounts[a.ID] = *a
	return nil
}

func (s *state) GetAccount(_ context.Context, id string) (*models.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *state) GetAccountByName(_ context.Context, name string) (*models.Account, error) {
	for _, a := range s.accounts {
		if strings.EqualFold(a.Name, name) {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *state) ListAccounts(_ context.Context, includeInactive bool) ([]models.Account, error) {
	var out []models.Account
	for _, a := range s.accounts {
		if a.Active || includeInactive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *state) LockAccount(ctx context.Context, id string) (*models.Account, error) {
	return s.GetAccount(ctx, id)
}

func (s *state) SetAccountBalance(_ context.Context, id string, balance decimal.Decimal) error {
	a, ok := s.accounts[id]
	if !ok {
		return nil
	}
	a.Balance = balance
	a.UpdatedAt = time.Now().UTC()
	s.accounts[id] = a
	return nil
}

func (s *state) DeactivateAccount(_ context.Context, id string) error {
	a, ok := s.accounts[id]
	if !ok {
		return nil
	}
	a.Active = false
	a.UpdatedAt = time.Now().UTC()
	s.accounts[id] = a
	return nil
}

func (s *state) CountAccountTransactions(_ context.Context, accountID string) (int64, error) {
	var n int64
	for _, t := range s.transactions {
		if t.AccountID != nil && *t.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *state) InsertTransaction(_ context.Context, t *models.Transaction) error {
	s.seq++
	t.Seq = s.seq
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	row := *t
	row.Documents = nil
	s.transactions[t.ID] = row
	return nil
}

func (s *state) UpdateTransaction(_ context.Context, t *models.Transaction) error {
	old, ok := s.transactions[t.ID]
	if !ok {
		return nil
	}
	row := *t
	row.Seq = old.Seq
	row.CreatedAt = old.CreatedAt
	row.UpdatedAt = time.Now().UTC()
	row.Documents = nil
	s.transactions[t.ID] = row
	return nil
}

func (s *state) SetBalanceAfter(_ context.Context, id string, balance decimal.Decimal) error {
	t, ok := s.transactions[id]
	if !ok {
		return nil
	}
	t.BalanceAfter = balance
	s.transactions[id] = t
	return nil
}

func (s *state) SetLinkedTransaction(_ context.Context, id, linkedID string) error {
	t, ok := s.transactions[id]
	if !ok {
		return nil
	}
	t.LinkedTransactionID = &linkedID
	s.transactions[id] = t
	return nil
}

func (s *state) GetTransaction(_ context.Context, id string) (*models.Transaction, error) {
	t, ok := s.transactions[id]
	if !ok {
		return nil, nil
	}
	s.join(&t)
	return &t, nil
}

func (s *state) join(t *models.Transaction) {
	t.AccountName, t.TiersName, t.CategoryName = "", "", ""
	if t.AccountID != nil {
		t.AccountName = s.accounts[*t.AccountID].Name
	}
	if t.TiersID != nil {
		t.TiersName = s.tiers[*t.TiersID].Name
	}
	if t.CategoryID != nil {
		t.CategoryName = s.categories[*t.CategoryID].Name
	}
}

func (s *state) ListTransactions(_ context.Context, f models.TransactionFilter) ([]models.Transaction, error) {
	var from, to *time.Time
	if f.Month != "" {
		start, end, err := models.MonthRange(f.Month)
		if err != nil {
			return nil, err
		}
		from, to = &start, &end
	}
	// month and from/to combine as an intersection
	if f.From != nil && (from == nil || f.From.After(*from)) {
		from = f.From
	}
	if f.To != nil && (to == nil || f.To.Before(*to)) {
		to = f.To
	}
	search := strings.ToLower(f.Search)

	var out []models.Transaction
	for _, t := range s.transactions {
		switch {
		case f.Type != "" && t.Type != f.Type:
			continue
		case f.AccountID != "" && !eq(t.AccountID, f.AccountID):
			continue
		case f.TiersID != "" && !eq(t.TiersID, f.TiersID):
			continue
		case f.CategoryID != "" && !eq(t.CategoryID, f.CategoryID):
			continue
		case from != nil && t.Date.Before(*from):
			continue
		case to != nil && t.Date.After(*to):
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Description), search) &&
			(t.Reference == nil || !strings.Contains(strings.ToLower(*t.Reference), search)) {
			continue
		}
		s.join(&t)
		out = append(out, t)
	}
	// newest first, like the listing screen
	sort.Slice(out, func(i, j int) bool { return out[j].Before(&out[i]) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *state) TransactionsByTransferRef(_ context.Context, ref string) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range s.transactions {
		if eq(t.TransferRef, ref) {
			s.join(&t)
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (s *state) FindTransferLeg(_ context.Context, ref string, legType models.TransactionType) (*models.Transaction, error) {
	for _, t := range s.transactions {
		if eq(t.TransferRef, ref) && t.Type == legType {
			return &t, nil
		}
	}
	return nil, nil
}

func (s *state) chain(accountID string) []models.Transaction {
	var out []models.Transaction
	for _, t := range s.transactions {
		if eq(t.AccountID, accountID) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(&out[j]) })
	return out
}

func (s *state) LastTransactionBefore(_ context.Context, accountID string, day time.Time) (*models.Transaction, error) {
	var last *models.Transaction
	for _, t := range s.chain(accountID) {
		if !t.Date.Before(day) {
			break
		}
		t := t
		last = &t
	}
	return last, nil
}

func (s *state) TransactionsFrom(_ context.Context, accountID string, day time.Time) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range s.chain(accountID) {
		if !t.Date.Before(day) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *state) DeleteTransaction(_ context.Context, id string) error {
	delete(s.transactions, id)
	return nil
}

func (s *state) DeleteByTransferRef(_ context.Context, ref string) (int64, error) {
	var n int64
	for id, t := range s.transactions {
		if eq(t.TransferRef, ref) {
			delete(s.transactions, id)
			n++
		}
	}
	return n, nil
}

func (s *state) Stats(_ context.Context, f models.StatsFilter, rowCap *decimal.Decimal) (models.Stats, error) {
	stats := models.Stats{TotalRecettes: decimal.Zero, TotalDepenses: decimal.Zero}
	for _, t := range s.transactions {
		if f.From != nil && t.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && t.Date.After(*f.To) {
			continue
		}
		stats.TotalTransactions++
		if rowCap != nil && t.Amount.GreaterThan(*rowCap) {
			continue
		}
		switch t.Type {
		case models.TypeRecette, models.TypeVirementCredit:
			stats.TotalRecettes = stats.TotalRecettes.Add(t.Amount)
		case models.TypeDepense, models.TypeVirementDebit:
			stats.TotalDepenses = stats.TotalDepenses.Add(t.Amount)
		}
	}
	return stats, nil
}

// =============================================================================
// TIERS & CATEGORIES
// =============================================================================

func (s *state) CreateTiers(_ context.Context, t *models.Tiers) error {
	t.CreatedAt = time.Now().UTC()
	t.Balance = decimal.Zero
	s.tiers[t.ID] = *t
	return nil
}

func (s *state) GetTiers(_ context.Context, id string) (*models.Tiers, error) {
	t, ok := s.tiers[id]
	if !ok {
		return nil, nil
	}
	t.Balance = s.tiersBalance(id)
	return &t, nil
}

func (s *state) tiersBalance(id string) decimal.Decimal {
	balance := decimal.Zero
	for _, t := range s.transactions {
		if !eq(t.TiersID, id) {
			continue
		}
		switch t.Type {
		case models.TypeRecette:
			balance = balance.Add(t.Amount)
		case models.TypeDepense, models.TypeAchat:
			balance = balance.Sub(t.Amount)
		}
	}
	return balance
}

func (s *state) ListTiers(_ context.Context) ([]models.Tiers, error) {
	var out []models.Tiers
	for id, t := range s.tiers {
		t.Balance = s.tiersBalance(id)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *state) CreateCategory(_ context.Context, c *models.Category) error {
	c.CreatedAt = time.Now().UTC()
	s.categories[c.ID] = *c
	return nil
}

func (s *state) GetCategory(_ context.Context, id string) (*models.Category, error) {
	c, ok := s.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *state) ListCategories(_ context.Context) ([]models.Category, error) {
	var out []models.Category
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func (s *state) InsertDocument(_ context.Context, d *models.Document) error {
	d.UploadedAt = time.Now().UTC()
	s.documents[d.ID] = *d
	return nil
}

func (s *state) GetDocument(_ context.Context, id string) (*models.Document, error) {
	d, ok := s.documents[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *state) ListDocuments(_ context.Context, transactionID string) ([]models.Document, error) {
	var out []models.Document
	for _, d := range s.documents {
		if d.TransactionID == transactionID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (s *state) DeleteDocument(_ context.Context, id string) error {
	delete(s.documents, id)
	return nil
}

func (s *state) DeleteDocumentsForTransaction(ctx context.Context, transactionID string) ([]models.Document, error) {
	docs, _ := s.ListDocuments(ctx, transactionID)
	for _, d := range docs {
		delete(s.documents, d.ID)
	}
	return docs, nil
}

func eq(p *string, v string) bool {
	return p != nil && *p == v
}

var _ store.Store = (*Memory)(nil)
var _ store.Queries = (*state)(nil)
