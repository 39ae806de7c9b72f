package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountCash AccountType = "cash"
	AccountBank AccountType = "bank"
)

// Account is a bank account or a cash register. Balance is maintained by the ledger only.
type Account struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Type      AccountType     `json:"type" db:"type"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Active    bool            `json:"active" db:"active"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

type TiersKind string

const (
	TiersClient      TiersKind = "client"
	TiersFournisseur TiersKind = "fournisseur"
)

// Tiers is a client or supplier. Balance is derived from its transactions and never stored.
type Tiers struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Kind      TiersKind       `json:"kind" db:"kind"`
	Email     *string         `json:"email,omitempty" db:"email"`
	Phone     *string         `json:"phone,omitempty" db:"phone"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Category groups transactions for reporting.
type Category struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Kind      TransactionType `json:"kind" db:"kind"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Document is a file attached to a transaction.
type Document struct {
	ID            string    `json:"id" db:"id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	FileName      string    `json:"file_name" db:"file_name"`
	ContentType   string    `json:"content_type" db:"content_type"`
	Size          int64     `json:"size" db:"size"`
	Path          string    `json:"-" db:"path"`
	UploadedAt    time.Time `json:"uploaded_at" db:"uploaded_at"`
}
