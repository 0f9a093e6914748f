// Package store defines the persistence contracts of the ledger and their
// Postgres implementation. Multi-row operations run through
// Store.WithTransaction so that they commit or roll back as a unit.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/intentionbank/backend/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned by LedgerStore.Insert when an entry with the
	// same (account, idempotency key) already exists.
	ErrDuplicateKey = errors.New("duplicate idempotency key")
)

type AccountStore interface {
	Get(ctx context.Context, id int64) (*models.Account, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Account, error)
	ChildIDs(ctx context.Context, parentID int64) ([]int64, error)
	Create(ctx context.Context, account *models.Account) error
	UpdateName(ctx context.Context, id int64, name string) error
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}

type LedgerStore interface {
	// Insert assigns ID and CreatedAt on success.
	Insert(ctx context.Context, entry *models.LedgerEntry) error
	FindByIdempotencyKey(ctx context.Context, accountID int64, key string) (*models.LedgerEntry, error)
	FindByTransferID(ctx context.Context, transferID string) ([]*models.LedgerEntry, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*models.LedgerEntry, error)
	// ListWindow returns matching entries newest first (created_at, id).
	ListWindow(ctx context.Context, filter EntryFilter, limit int) ([]*models.LedgerEntry, error)
	Sum(ctx context.Context, filter EntryFilter) (Totals, error)
	CountByAccounts(ctx context.Context, accountIDs []int64) (int64, error)
	DeleteByAccountIDs(ctx context.Context, accountIDs []int64) (int64, error)
}

type ScheduledEntryStore interface {
	Insert(ctx context.Context, entry *models.ScheduledEntry) error
	Get(ctx context.Context, id int64) (*models.ScheduledEntry, error)
	ListByAccount(ctx context.Context, accountID int64, includePosted bool) ([]*models.ScheduledEntry, error)
	// ListDue returns pending entries with scheduled_for <= now, earliest first.
	ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledEntry, error)
	MarkPosted(ctx context.Context, id int64, postedAt time.Time, ledgerEntryID int64) error
	CountCreatedSince(ctx context.Context, userID int64, since time.Time) (int64, error)
	DeleteByAccountIDs(ctx context.Context, accountIDs []int64) (int64, error)
}

type TransactionStore interface {
	Create(ctx context.Context, txn *models.Transaction) error
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error)
	DeleteByAccountIDs(ctx context.Context, accountIDs []int64) (int64, error)
}

// Repositories groups the stores that share one connection or transaction.
type Repositories interface {
	Accounts() AccountStore
	Ledger() LedgerStore
	Scheduled() ScheduledEntryStore
	Transactions() TransactionStore
}

// Store is the ledger's single shared mutable resource.
type Store interface {
	Repositories
	// WithTransaction runs fn against repositories bound to one transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	// Calling it on repositories already inside a transaction reuses that
	// transaction.
	WithTransaction(ctx context.Context, fn func(tx Repositories) error) error
}

// EntryFilter selects ledger entries. Zero-valued fields do not filter.
type EntryFilter struct {
	AccountIDs []int64
	Currency   string
	Status     models.EntryStatus
	Direction  models.Direction
	EntryType  string
	From       *time.Time // inclusive lower bound on created_at
	Before     *time.Time // exclusive upper bound on created_at
}

// Matches applies the filter to a single entry.
func (f EntryFilter) Matches(e *models.LedgerEntry) bool {
	if len(f.AccountIDs) > 0 && !containsID(f.AccountIDs, e.AccountID) {
		return false
	}
	if f.Currency != "" && e.Currency != f.Currency {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Direction != "" && e.Direction != f.Direction {
		return false
	}
	if f.EntryType != "" && e.EntryType != f.EntryType {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.Before != nil && !e.CreatedAt.Before(*f.Before) {
		return false
	}
	return true
}

// Totals are the credit and debit sums of a set of entries.
type Totals struct {
	Credits decimal.Decimal
	Debits  decimal.Decimal
}

// Net is credits minus debits.
func (t Totals) Net() decimal.Decimal {
	return t.Credits.Sub(t.Debits)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
