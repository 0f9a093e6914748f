package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied statement by statement; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id                BIGSERIAL PRIMARY KEY,
		owner_user_id     BIGINT NOT NULL,
		parent_account_id BIGINT REFERENCES accounts(id),
		name              TEXT NOT NULL,
		account_type      TEXT NOT NULL DEFAULT 'personal',
		legal_name        TEXT,
		jurisdiction      TEXT,
		notes             TEXT,
		is_active         BOOLEAN NOT NULL DEFAULT TRUE,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_accounts_owner ON accounts (owner_user_id)`,
	`CREATE INDEX IF NOT EXISTS ix_accounts_parent ON accounts (parent_account_id)`,

	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id                 BIGSERIAL PRIMARY KEY,
		account_id         BIGINT NOT NULL REFERENCES accounts(id),
		created_by_user_id BIGINT NOT NULL,
		direction          TEXT NOT NULL CHECK (direction IN ('credit', 'debit')),
		amount             NUMERIC(18, 2) NOT NULL CHECK (amount > 0),
		currency           TEXT NOT NULL DEFAULT 'USD',
		entry_type         TEXT NOT NULL DEFAULT 'manual',
		status             TEXT NOT NULL DEFAULT 'posted' CHECK (status IN ('posted', 'pending', 'void')),
		reference          TEXT,
		external_ref       TEXT,
		idempotency_key    TEXT,
		memo               TEXT,
		meta               JSONB,
		is_reversal        BOOLEAN NOT NULL DEFAULT FALSE,
		reversed_entry_id  BIGINT REFERENCES ledger_entries(id) ON DELETE SET NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_ledger_account_created_at ON ledger_entries (account_id, created_at DESC, id DESC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_account_idempotency
		ON ledger_entries (account_id, idempotency_key) WHERE idempotency_key IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS ix_ledger_transfer_id ON ledger_entries ((meta->>'transfer_id'))`,

	`CREATE TABLE IF NOT EXISTS scheduled_entries (
		id                 BIGSERIAL PRIMARY KEY,
		account_id         BIGINT NOT NULL REFERENCES accounts(id),
		created_by_user_id BIGINT NOT NULL,
		direction          TEXT NOT NULL CHECK (direction IN ('credit', 'debit')),
		amount             NUMERIC(18, 2) NOT NULL CHECK (amount > 0),
		currency           TEXT NOT NULL DEFAULT 'USD',
		entry_type         TEXT NOT NULL DEFAULT 'scheduled',
		status             TEXT NOT NULL DEFAULT 'pending',
		reference          TEXT,
		memo               TEXT,
		scheduled_for      TIMESTAMPTZ NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
		posted_at          TIMESTAMPTZ,
		posted_entry_id    BIGINT REFERENCES ledger_entries(id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_scheduled_due ON scheduled_entries (status, scheduled_for)`,
	`CREATE INDEX IF NOT EXISTS ix_scheduled_account ON scheduled_entries (account_id)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id          BIGSERIAL PRIMARY KEY,
		account_id  BIGINT NOT NULL REFERENCES accounts(id),
		amount      NUMERIC(18, 2) NOT NULL,
		currency    TEXT NOT NULL DEFAULT 'USD',
		description TEXT,
		category    TEXT,
		status      TEXT NOT NULL DEFAULT 'posted',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_transactions_account ON transactions (account_id)`,
}

// Migrate creates the ledger tables and indexes if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}
