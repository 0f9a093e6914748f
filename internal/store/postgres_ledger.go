package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/intentionbank/backend/internal/models"
)

type pgLedger struct {
	q querier
}

const entryColumns = `id, account_id, created_by_user_id, direction, amount, currency,
	entry_type, status, reference, external_ref, idempotency_key, memo, meta,
	is_reversal, reversed_entry_id, created_at`

func scanEntry(row interface{ Scan(dest ...any) error }) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := row.Scan(&e.ID, &e.AccountID, &e.CreatedByUserID, &e.Direction, &e.Amount, &e.Currency,
		&e.EntryType, &e.Status, &e.Reference, &e.ExternalRef, &e.IdempotencyKey, &e.Memo, &e.Metadata,
		&e.IsReversal, &e.ReversedEntryID, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *pgLedger) queryEntries(ctx context.Context, query string, args ...any) ([]*models.LedgerEntry, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []*models.LedgerEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Insert relies on the partial unique index over (account_id, idempotency_key):
// a conflicting insert returns no row instead of failing the transaction.
func (r *pgLedger) Insert(ctx context.Context, e *models.LedgerEntry) error {
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO ledger_entries (account_id, created_by_user_id, direction, amount, currency,
			entry_type, status, reference, external_ref, idempotency_key, memo, meta,
			is_reversal, reversed_entry_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (account_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
		RETURNING id, created_at`,
		e.AccountID, e.CreatedByUserID, string(e.Direction), e.Amount, e.Currency,
		e.EntryType, string(e.Status), e.Reference, e.ExternalRef, e.IdempotencyKey, e.Memo, e.Metadata,
		e.IsReversal, e.ReversedEntryID,
	).Scan(&e.ID, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

func (r *pgLedger) FindByIdempotencyKey(ctx context.Context, accountID int64, key string) (*models.LedgerEntry, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE account_id = $1 AND idempotency_key = $2
		ORDER BY created_at ASC, id ASC
		LIMIT 1`, accountID, key)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return e, nil
}

func (r *pgLedger) FindByTransferID(ctx context.Context, transferID string) ([]*models.LedgerEntry, error) {
	return r.queryEntries(ctx, `SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE meta->>'transfer_id' = $1
		ORDER BY id ASC`, transferID)
}

func (r *pgLedger) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*models.LedgerEntry, error) {
	return r.queryEntries(ctx, `SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, accountID, limit, offset)
}

func (r *pgLedger) ListWindow(ctx context.Context, f EntryFilter, limit int) ([]*models.LedgerEntry, error) {
	w := entryWhere(f)
	query := `SELECT ` + entryColumns + ` FROM ledger_entries` + w.String() +
		` ORDER BY created_at DESC, id DESC LIMIT ` + w.next(limit)
	return r.queryEntries(ctx, query, w.args...)
}

func (r *pgLedger) Sum(ctx context.Context, f EntryFilter) (Totals, error) {
	w := entryWhere(f)
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount ELSE 0 END), 0) AS credits,
			COALESCE(SUM(CASE WHEN direction = 'debit' THEN amount ELSE 0 END), 0) AS debits
		FROM ledger_entries` + w.String()

	var t Totals
	if err := r.q.QueryRowContext(ctx, query, w.args...).Scan(&t.Credits, &t.Debits); err != nil {
		return Totals{}, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return t, nil
}

func (r *pgLedger) CountByAccounts(ctx context.Context, accountIDs []int64) (int64, error) {
	if len(accountIDs) == 0 {
		return 0, nil
	}
	w := entryWhere(EntryFilter{AccountIDs: accountIDs})
	var n int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_entries`+w.String(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return n, nil
}

func (r *pgLedger) DeleteByAccountIDs(ctx context.Context, accountIDs []int64) (int64, error) {
	return deleteByAccountIDs(ctx, r.q, `DELETE FROM ledger_entries WHERE account_id = ANY($1)`, accountIDs)
}
