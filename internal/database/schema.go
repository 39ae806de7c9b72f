package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied idempotently at startup. Versioned migrations can replace it later.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	type TEXT NOT NULL CHECK (type IN ('cash', 'bank')),
	balance NUMERIC(15,2) NOT NULL DEFAULT 0,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tiers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	kind TEXT NOT NULL CHECK (kind IN ('client', 'fournisseur')),
	email TEXT,
	phone TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS categories (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	seq BIGSERIAL NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('recette', 'depense', 'virement_debit', 'virement_credit', 'achat')),
	description TEXT NOT NULL,
	amount NUMERIC(15,2) NOT NULL CHECK (amount > 0),
	date DATE NOT NULL,
	account_id TEXT REFERENCES accounts(id),
	tiers_id TEXT REFERENCES tiers(id),
	category_id TEXT REFERENCES categories(id),
	balance_after NUMERIC(15,2) NOT NULL DEFAULT 0,
	transfer_ref TEXT,
	linked_transaction_id TEXT,
	reference TEXT,
	payment_method TEXT,
	value_date DATE,
	effective_date DATE,
	status TEXT,
	bank_notes TEXT,
	comments TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- balance chain walk (hot path)
CREATE INDEX IF NOT EXISTS idx_transactions_account_date_seq
	ON transactions(account_id, date, seq);
CREATE INDEX IF NOT EXISTS idx_transactions_transfer_ref
	ON transactions(transfer_ref) WHERE transfer_ref IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_transactions_tiers
	ON transactions(tiers_id) WHERE tiers_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_transactions_date
	ON transactions(date);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	transaction_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size BIGINT NOT NULL,
	path TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_documents_transaction
	ON documents(transaction_id);
`

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
