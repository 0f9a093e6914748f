// Package inmemory is a map-backed implementation of store.Store, safe for
// concurrent use. Data is lost on restart; it backs tests and local runs
// without Postgres.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/store"
	"github.com/shopspring/decimal"
)

type state struct {
	accounts     map[int64]*models.Account
	entries      []*models.LedgerEntry
	scheduled    map[int64]*models.ScheduledEntry
	transactions []*models.Transaction

	nextAccountID     int64
	nextEntryID       int64
	nextScheduledID   int64
	nextTransactionID int64
}

func newState() *state {
	return &state{
		accounts:  make(map[int64]*models.Account),
		scheduled: make(map[int64]*models.ScheduledEntry),
	}
}

func (st *state) clone() *state {
	c := *st
	c.accounts = make(map[int64]*models.Account, len(st.accounts))
	for id, a := range st.accounts {
		c.accounts[id] = copyAccount(a)
	}
	c.entries = make([]*models.LedgerEntry, len(st.entries))
	for i, e := range st.entries {
		c.entries[i] = copyEntry(e)
	}
	c.scheduled = make(map[int64]*models.ScheduledEntry, len(st.scheduled))
	for id, s := range st.scheduled {
		c.scheduled[id] = copyScheduled(s)
	}
	c.transactions = make([]*models.Transaction, len(st.transactions))
	for i, t := range st.transactions {
		tc := *t
		c.transactions[i] = &tc
	}
	return &c
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the source of created_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store implements store.Store in memory.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func NewStore(opts ...Option) *Store {
	s := &Store{st: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Accounts() store.AccountStore { return &accounts{view{s: s}} }
func (s *Store) Ledger() store.LedgerStore { return &ledger{view{s: s}} }
func (s *Store) Scheduled() store.ScheduledEntryStore { return &scheduled{view{s: s}} }
func (s *Store) Transactions() store.TransactionStore { return &transactions{view{s: s}} }

// WithTransaction serialises fn against a working copy of the data and
// swaps it in only when fn succeeds.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx store.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&txRepos{view{s: s, tx: work}}); err != nil {
		return err
	}
	s.st = work
	return nil
}

type txRepos struct {
	v view
}

func (t *txRepos) Accounts() store.AccountStore { return &accounts{t.v} }
func (t *txRepos) Ledger() store.LedgerStore { return &ledger{t.v} }
func (t *txRepos) Scheduled() store.ScheduledEntryStore { return &scheduled{t.v} }
func (t *txRepos) Transactions() store.TransactionStore { return &transactions{t.v} }

func (t *txRepos) WithTransaction(ctx context.Context, fn func(tx store.Repositories) error) error {
	return fn(t)
}

// view routes an operation either to the open transaction's working copy or
// to the shared state under the store mutex.
type view struct {
	s  *Store
	tx *state
}

func (v view) with(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.st)
}

type accounts struct{ v view }

func (r *accounts) Get(ctx context.Context, id int64) (*models.Account, error) {
	var out *models.Account
	err := r.v.with(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return store.ErrNotFound
		}
		out = copyAccount(a)
		return nil
	})
	return out, err
}

func (r *accounts) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Account, error) {
	out := []*models.Account{}
	err := r.v.with(func(st *state) error {
		for _, a := range st.accounts {
			if a.OwnerUserID == ownerID {
				out = append(out, copyAccount(a))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func (r *accounts) ChildIDs(ctx context.Context, parentID int64) ([]int64, error) {
	ids := []int64{}
	err := r.v.with(func(st *state) error {
		for _, a := range st.accounts {
			if a.ParentAccountID != nil && *a.ParentAccountID == parentID {
				ids = append(ids, a.ID)
			}
		}
		return nil
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, err
}

func (r *accounts) Create(ctx context.Context, a *models.Account) error {
	return r.v.with(func(st *state) error {
		st.nextAccountID++
		a.ID = st.nextAccountID
		a.CreatedAt = r.v.s.now()
		st.accounts[a.ID] = copyAccount(a)
		return nil
	})
}

func (r *accounts) UpdateName(ctx context.Context, id int64, name string) error {
	return r.v.with(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return store.ErrNotFound
		}
		a.Name = name
		return nil
	})
}

func (r *accounts) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	var n int64
	err := r.v.with(func(st *state) error {
		for _, id := range ids {
			if _, ok := st.accounts[id]; ok {
				delete(st.accounts, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

type ledger struct{ v view }

func (r *ledger) Insert(ctx context.Context, e *models.LedgerEntry) error {
	return r.v.with(func(st *state) error {
		if e.IdempotencyKey != nil {
			for _, existing := range st.entries {
				if existing.AccountID == e.AccountID && existing.IdempotencyKey != nil &&
					*existing.IdempotencyKey == *e.IdempotencyKey {
					return store.ErrDuplicateKey
				}
			}
		}
		st.nextEntryID++
		e.ID = st.nextEntryID
		e.CreatedAt = r.v.s.now()
		st.entries = append(st.entries, copyEntry(e))
		return nil
	})
}

func (r *ledger) FindByIdempotencyKey(ctx context.Context, accountID int64, key string) (*models.LedgerEntry, error) {
	var out *models.LedgerEntry
	err := r.v.with(func(st *state) error {
		for _, e := range st.entries {
			if e.AccountID == accountID && e.IdempotencyKey != nil && *e.IdempotencyKey == key {
				out = copyEntry(e)
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r *ledger) FindByTransferID(ctx context.Context, transferID string) ([]*models.LedgerEntry, error) {
	out := []*models.LedgerEntry{}
	err := r.v.with(func(st *state) error {
		for _, e := range st.entries {
			if e.Metadata.String(models.MetaTransferID) == transferID {
				out = append(out, copyEntry(e))
			}
		}
		return nil
	})
	return out, err
}

func (r *ledger) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*models.LedgerEntry, error) {
	entries, err := r.filtered(store.EntryFilter{AccountIDs: []int64{accountID}})
	if err != nil {
		return nil, err
	}
	return page(entries, limit, offset), nil
}

func (r *ledger) ListWindow(ctx context.Context, f store.EntryFilter, limit int) ([]*models.LedgerEntry, error) {
	entries, err := r.filtered(f)
	if err != nil {
		return nil, err
	}
	return page(entries, limit, 0), nil
}

func (r *ledger) Sum(ctx context.Context, f store.EntryFilter) (store.Totals, error) {
	entries, err := r.filtered(f)
	if err != nil {
		return store.Totals{}, err
	}
	t := store.Totals{Credits: decimal.Zero, Debits: decimal.Zero}
	for _, e := range entries {
		switch e.Direction {
		case models.DirectionCredit:
			t.Credits = t.Credits.Add(e.Amount)
		case models.DirectionDebit:
			t.Debits = t.Debits.Add(e.Amount)
		}
	}
	return t, nil
}

func (r *ledger) CountByAccounts(ctx context.Context, accountIDs []int64) (int64, error) {
	if len(accountIDs) == 0 {
		return 0, nil
	}
	entries, err := r.filtered(store.EntryFilter{AccountIDs: accountIDs})
	return int64(len(entries)), err
}

func (r *ledger) DeleteByAccountIDs(ctx context.Context, accountIDs []int64) (int64, error) {
	var n int64
	err := r.v.with(func(st *state) error {
		kept := st.entries[:0]
		for _, e := range st.entries {
			if containsID(accountIDs, e.AccountID) {
				n++
				continue
			}
			kept = append(kept, e)
		}
		st.entries = kept
		return nil
	})
	return n, err
}

// filtered returns copies of the matching entries, newest first.
func (r *ledger) filtered(f store.EntryFilter) ([]*models.LedgerEntry, error) {
	out := []*models.LedgerEntry{}
	err := r.v.with(func(st *state) error {
		for _, e := range st.entries {
			if f.Matches(e) {
				out = append(out, copyEntry(e))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func page(entries []*models.LedgerEntry, limit, offset int) []*models.LedgerEntry {
	if offset >= len(entries) {
		return []*models.LedgerEntry{}
	}
	entries = entries[offset:]
	if limit >= 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

type scheduled struct{ v view }

func (r *scheduled) Insert(ctx context.Context, s *models.ScheduledEntry) error {
	return r.v.with(func(st *state) error {
		st.nextScheduledID++
		s.ID = st.nextScheduledID
		s.CreatedAt = r.v.s.now()
		st.scheduled[s.ID] = copyScheduled(s)
		return nil
	})
}

func (r *scheduled) Get(ctx context.Context, id int64) (*models.ScheduledEntry, error) {
	var out *models.ScheduledEntry
	err := r.v.with(func(st *state) error {
		s, ok := st.scheduled[id]
		if !ok {
			return store.ErrNotFound
		}
		out = copyScheduled(s)
		return nil
	})
	return out, err
}

func (r *scheduled) ListByAccount(ctx context.Context, accountID int64, includePosted bool) ([]*models.ScheduledEntry, error) {
	return r.list(func(s *models.ScheduledEntry) bool {
		return s.AccountID == accountID && (includePosted || s.Status == models.ScheduledStatusPending)
	})
}

func (r *scheduled) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledEntry, error) {
	return r.list(func(s *models.ScheduledEntry) bool { return s.IsDue(now) })
}

func (r *scheduled) MarkPosted(ctx context.Context, id int64, postedAt time.Time, ledgerEntryID int64) error {
	return r.v.with(func(st *state) error {
		s, ok := st.scheduled[id]
		if !ok || s.Status != models.ScheduledStatusPending {
			return store.ErrNotFound
		}
		s.Status = models.ScheduledStatusPosted
		s.PostedAt = &postedAt
		s.PostedEntryID = &ledgerEntryID
		return nil
	})
}

func (r *scheduled) CountCreatedSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var n int64
	err := r.v.with(func(st *state) error {
		for _, s := range st.scheduled {
			if s.CreatedByUserID == userID && !s.CreatedAt.Before(since) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *scheduled) DeleteByAccountIDs(ctx context.Context, accountIDs []int64) (int64, error) {
	var n int64
	err := r.v.with(func(st *state) error {
		for id, s := range st.scheduled {
			if containsID(accountIDs, s.AccountID) {
				delete(st.scheduled, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// list returns matching entries ordered by scheduled_for, then id.
func (r *scheduled) list(keep func(*models.ScheduledEntry) bool) ([]*models.ScheduledEntry, error) {
	out := []*models.ScheduledEntry{}
	err := r.v.with(func(st *state) error {
		for _, s := range st.scheduled {
			if keep(s) {
				out = append(out, copyScheduled(s))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledFor.Equal(out[j].ScheduledFor) {
			return out[i].ScheduledFor.Before(out[j].ScheduledFor)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

type transactions struct{ v view }

func (r *transactions) Create(ctx context.Context, t *models.Transaction) error {
	return r.v.with(func(st *state) error {
		st.nextTransactionID++
		t.ID = st.nextTransactionID
		t.CreatedAt = r.v.s.now()
		tc := *t
		st.transactions = append(st.transactions, &tc)
		return nil
	})
}

func (r *transactions) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Transaction, error) {
	out := []*models.Transaction{}
	err := r.v.with(func(st *state) error {
		for i := len(st.transactions) - 1; i >= 0; i-- {
			t := st.transactions[i]
			if t.AccountID != accountID {
				continue
			}
			if limit > 0 && len(out) == limit {
				break
			}
			tc := *t
			out = append(out, &tc)
		}
		return nil
	})
	return out, err
}

func (r *transactions) DeleteByAccountIDs(ctx context.Context, accountIDs []int64) (int64, error) {
	var n int64
	err := r.v.with(func(st *state) error {
		kept := st.transactions[:0]
		for _, t := range st.transactions {
			if containsID(accountIDs, t.AccountID) {
				n++
				continue
			}
			kept = append(kept, t)
		}
		st.transactions = kept
		return nil
	})
	return n, err
}

func copyAccount(a *models.Account) *models.Account {
	c := *a
	return &c
}

func copyEntry(e *models.LedgerEntry) *models.LedgerEntry {
	c := *e
	c.Metadata = e.Metadata.Clone()
	return &c
}

func copyScheduled(s *models.ScheduledEntry) *models.ScheduledEntry {
	c := *s
	return &c
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
