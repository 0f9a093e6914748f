package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/intentionbank/backend/internal/models"
	"github.com/lib/pq"
)

type pgAccounts struct {
	q querier
}

const accountColumns = `id, owner_user_id, parent_account_id, name, account_type,
	legal_name, jurisdiction, notes, is_active, created_at`

func scanAccount(row interface{ Scan(dest ...any) error }) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.OwnerUserID, &a.ParentAccountID, &a.Name, &a.AccountType,
		&a.LegalName, &a.Jurisdiction, &a.Notes, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *pgAccounts) Get(ctx context.Context, id int64) (*models.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return a, nil
}

func (r *pgAccounts) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Account, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+accountColumns+`
		FROM accounts WHERE owner_user_id = $1
		ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []*models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *pgAccounts) ChildIDs(ctx context.Context, parentID int64) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id FROM accounts WHERE parent_account_id = $1 ORDER BY id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child accounts: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgAccounts) Create(ctx context.Context, a *models.Account) error {
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO accounts (owner_user_id, parent_account_id, name, account_type,
			legal_name, jurisdiction, notes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		a.OwnerUserID, a.ParentAccountID, a.Name, a.AccountType,
		a.LegalName, a.Jurisdiction, a.Notes, a.IsActive,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *pgAccounts) UpdateName(ctx context.Context, id int64, name string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE accounts SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("failed to rename account %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgAccounts) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	return deleteByAccountIDs(ctx, r.q, `DELETE FROM accounts WHERE id = ANY($1)`, ids)
}

func deleteByAccountIDs(ctx context.Context, q querier, query string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := q.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
