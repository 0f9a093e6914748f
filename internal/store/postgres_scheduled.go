package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/intentionbank/backend/internal/models"
)

type pgScheduled struct {
	q querier
}

const scheduledColumns = `id, account_id, created_by_user_id, direction, amount, currency,
	entry_type, status, reference, memo, scheduled_for, created_at, posted_at, posted_entry_id`

func scanScheduled(row interface{ Scan(dest ...any) error }) (*models.ScheduledEntry, error) {
	var s models.ScheduledEntry
	err := row.Scan(&s.ID, &s.AccountID, &s.CreatedByUserID, &s.Direction, &s.Amount, &s.Currency,
		&s.EntryType, &s.Status, &s.Reference, &s.Memo, &s.ScheduledFor, &s.CreatedAt, &s.PostedAt, &s.PostedEntryID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *pgScheduled) query(ctx context.Context, query string, args ...any) ([]*models.ScheduledEntry, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled entries: %w", err)
	}
	defer rows.Close()

	entries := []*models.ScheduledEntry{}
	for rows.Next() {
		s, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, s)
	}
	return entries, rows.Err()
}

func (r *pgScheduled) Insert(ctx context.Context, s *models.ScheduledEntry) error {
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO scheduled_entries (account_id, created_by_user_id, direction, amount, currency,
			entry_type, status, reference, memo, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`,
		s.AccountID, s.CreatedByUserID, string(s.Direction), s.Amount, s.Currency,
		s.EntryType, string(s.Status), s.Reference, s.Memo, s.ScheduledFor,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert scheduled entry: %w", err)
	}
	return nil
}

func (r *pgScheduled) Get(ctx context.Context, id int64) (*models.ScheduledEntry, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+scheduledColumns+` FROM scheduled_entries WHERE id = $1`, id)
	s, err := scanScheduled(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduled entry %d: %w", id, err)
	}
	return s, nil
}

func (r *pgScheduled) ListByAccount(ctx context.Context, accountID int64, includePosted bool) ([]*models.ScheduledEntry, error) {
	query := `SELECT ` + scheduledColumns + ` FROM scheduled_entries WHERE account_id = $1`
	args := []any{accountID}
	if !includePosted {
		query += ` AND status = $2`
		args = append(args, string(models.ScheduledStatusPending))
	}
	query += ` ORDER BY scheduled_for ASC, id ASC`
	return r.query(ctx, query, args...)
}

// ListDue locks the selected rows; concurrent promoters skip rows another
// transaction already holds.
func (r *pgScheduled) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledEntry, error) {
	return r.query(ctx, `SELECT `+scheduledColumns+`
		FROM scheduled_entries
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for ASC, id ASC
		FOR UPDATE SKIP LOCKED`, string(models.ScheduledStatusPending), now)
}

func (r *pgScheduled) MarkPosted(ctx context.Context, id int64, postedAt time.Time, ledgerEntryID int64) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE scheduled_entries
		SET status = $1, posted_at = $2, posted_entry_id = $3
		WHERE id = $4 AND status = $5`,
		string(models.ScheduledStatusPosted), postedAt, ledgerEntryID, id, string(models.ScheduledStatusPending))
	if err != nil {
		return fmt.Errorf("failed to mark scheduled entry %d posted: %w", id, err)
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

func (r *pgScheduled) CountCreatedSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM scheduled_entries
		WHERE created_by_user_id = $1 AND created_at >= $2`, userID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count scheduled entries: %w", err)
	}
	return n, nil
}

func (r *pgScheduled) DeleteByAccountIDs(ctx context.Context, accountIDs []int64) (int64, error) {
	return deleteByAccountIDs(ctx, r.q, `DELETE FROM scheduled_entries WHERE account_id = ANY($1)`, accountIDs)
}
