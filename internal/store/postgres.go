package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements Store over database/sql with lib/pq.
type PostgresStore struct {
	db   *sql.DB
	q    querier
	inTx bool
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

func (s *PostgresStore) Accounts() AccountStore { return &pgAccounts{q: s.q} }
func (s *PostgresStore) Ledger() LedgerStore { return &pgLedger{q: s.q} }
func (s *PostgresStore) Scheduled() ScheduledEntryStore { return &pgScheduled{q: s.q} }
func (s *PostgresStore) Transactions() TransactionStore { return &pgTransactions{q: s.q} }

func (s *PostgresStore) WithTransaction(ctx context.Context, fn func(tx Repositories) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&PostgresStore{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// whereBuilder accumulates numbered placeholders the same way across queries.
type whereBuilder struct {
	conditions []string
	args       []any
}

func (w *whereBuilder) add(format string, arg any) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, fmt.Sprintf(format, len(w.args)))
}

func (w *whereBuilder) String() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

// next returns the placeholder index for an argument appended after the
// conditions.
func (w *whereBuilder) next(arg any) string {
	w.args = append(w.args, arg)
	return fmt.Sprintf("$%d", len(w.args))
}

func entryWhere(f EntryFilter) *whereBuilder {
	w := &whereBuilder{}
	if len(f.AccountIDs) > 0 {
		w.add("account_id = ANY($%d)", pq.Array(f.AccountIDs))
	}
	if f.Currency != "" {
		w.add("currency = $%d", f.Currency)
	}
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	if f.Direction != "" {
		w.add("direction = $%d", string(f.Direction))
	}
	if f.EntryType != "" {
		w.add("entry_type = $%d", f.EntryType)
	}
	if f.From != nil {
		w.add("created_at >= $%d", *f.From)
	}
	if f.Before != nil {
		w.add("created_at < $%d", *f.Before)
	}
	return w
}
