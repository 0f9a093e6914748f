package store

import (
	"context"
	"fmt"

	"github.com/intentionbank/backend/internal/models"
)

type pgTransactions struct {
	q querier
}

func (r *pgTransactions) Create(ctx context.Context, t *models.Transaction) error {
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO transactions (account_id, amount, currency, description, category, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		t.AccountID, t.Amount, t.Currency, t.Description, t.Category, t.Status,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *pgTransactions) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, account_id, amount, currency, description, category, status, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txns := []*models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Currency, &t.Description,
			&t.Category, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, &t)
	}
	return txns, rows.Err()
}

func (r *pgTransactions) DeleteByAccountIDs(ctx context.Context, accountIDs []int64) (int64, error) {
	return deleteByAccountIDs(ctx, r.q, `DELETE FROM transactions WHERE account_id = ANY($1)`, accountIDs)
}
