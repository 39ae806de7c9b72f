package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the closed set of movements the ledger knows about.
type TransactionType string

const (
	TypeRecette        TransactionType = "recette"         // receipt
	TypeDepense        TransactionType = "depense"         // expense
	TypeVirementDebit  TransactionType = "virement_debit"  // transfer-out leg
	TypeVirementCredit TransactionType = "virement_credit" // transfer-in leg
	TypeAchat          TransactionType = "achat"           // purchase, account optional
)

// ParseTransactionType returns the matching type or an error for unknown values.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case TypeRecette, TypeDepense, TypeVirementDebit, TypeVirementCredit, TypeAchat:
		return t, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// Valid reports whether t is one of the declared types.
func (t TransactionType) Valid() bool {
	_, err := ParseTransactionType(string(t))
	return err == nil
}

// IsTransfer reports whether t is one leg of a transfer.
func (t TransactionType) IsTransfer() bool {
	return t == TypeVirementDebit || t == TypeVirementCredit
}

// Opposite returns the other leg type of a transfer. Non-transfer types map to themselves.
func (t TransactionType) Opposite() TransactionType {
	switch t {
	case TypeVirementDebit:
		return TypeVirementCredit
	case TypeVirementCredit:
		return TypeVirementDebit
	}
	return t
}

// Credits reports whether t adds to the account balance.
func (t TransactionType) Credits() bool {
	switch t {
	case TypeRecette, TypeVirementCredit:
		return true
	case TypeDepense, TypeVirementDebit, TypeAchat:
		return false
	}
	return false
}

// Apply returns balance after a movement of amount with type t.
// An achat only reaches this when it is attached to an account.
func (t TransactionType) Apply(balance, amount decimal.Decimal) decimal.Decimal {
	switch t {
	case TypeRecette, TypeVirementCredit:
		return balance.Add(amount)
	case TypeDepense, TypeVirementDebit, TypeAchat:
		return balance.Sub(amount)
	}
	return balance
}

// Reverse undoes Apply.
func (t TransactionType) Reverse(balance, amount decimal.Decimal) decimal.Decimal {
	return t.Apply(balance, amount.Neg())
}

// Transaction is one dated movement on an account (or an unattached purchase).
type Transaction struct {
	ID                  string           `json:"id" db:"id"`
	Seq                 int64            `json:"-" db:"seq"`
	Type                TransactionType  `json:"type" db:"type"`
	Description         string           `json:"description" db:"description"`
	Amount              decimal.Decimal  `json:"amount" db:"amount"`
	Date                time.Time        `json:"date" db:"date"`
	AccountID           *string          `json:"account_id" db:"account_id"`
	TiersID             *string          `json:"tiers_id" db:"tiers_id"`
	CategoryID          *string          `json:"category_id" db:"category_id"`
	BalanceAfter        decimal.Decimal  `json:"balance_after" db:"balance_after"`
	TransferRef         *string          `json:"transfer_ref,omitempty" db:"transfer_ref"`
	LinkedTransactionID *string          `json:"linked_transaction_id,omitempty" db:"linked_transaction_id"`
	Reference           *string          `json:"reference,omitempty" db:"reference"`
	PaymentMethod       *string          `json:"payment_method,omitempty" db:"payment_method"`
	ValueDate           *time.Time       `json:"value_date,omitempty" db:"value_date"`
	EffectiveDate       *time.Time       `json:"effective_date,omitempty" db:"effective_date"`
	Status              *string          `json:"status,omitempty" db:"status"`
	BankNotes           *string          `json:"bank_notes,omitempty" db:"bank_notes"`
	Comments            *string          `json:"comments,omitempty" db:"comments"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at" db:"updated_at"`

	AccountName  string     `json:"account_name,omitempty"`
	TiersName    string     `json:"tiers_name,omitempty"`
	CategoryName string     `json:"category_name,omitempty"`
	Documents    []Document `json:"documents,omitempty"`
}

// HasAccount reports whether the transaction affects an account balance.
func (t *Transaction) HasAccount() bool {
	return t.AccountID != nil && *t.AccountID != ""
}

// Before orders transactions by (date, creation order).
func (t *Transaction) Before(o *Transaction) bool {
	if !t.Date.Equal(o.Date) {
		return t.Date.Before(o.Date)
	}
	return t.Seq < o.Seq
}

// TransferResult holds both legs of a freshly created transfer.
type TransferResult struct {
	Debit  *Transaction `json:"debit"`
	Credit *Transaction `json:"credit"`
}

// TransactionFilter narrows GetAll. Zero values are ignored.
type TransactionFilter struct {
	Search     string
	Type       TransactionType
	AccountID  string
	TiersID    string
	CategoryID string
	Month      string // YYYY-MM
	From       *time.Time
	To         *time.Time
	Limit      int
}

// StatsFilter bounds the statistics window. Both ends are inclusive.
type StatsFilter struct {
	From *time.Time
	To   *time.Time
}

// Stats aggregates over a set of transactions.
type Stats struct {
	TotalTransactions int64           `json:"total_transactions"`
	TotalRecettes     decimal.Decimal `json:"total_recettes"`
	TotalDepenses     decimal.Decimal `json:"total_depenses"`
}

// DateLayout is the calendar-day wire format.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// MonthRange returns the first and last day of a YYYY-MM month.
func MonthRange(month string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q: %w", month, err)
	}
	return start, start.AddDate(0, 1, -1), nil
}
