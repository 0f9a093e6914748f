package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func credit(accountID int64, amount string) *models.LedgerEntry {
	return &models.LedgerEntry{
		AccountID: accountID,
		Direction: models.DirectionCredit,
		Amount:    decimal.RequireFromString(amount),
		Currency:  "USD",
		EntryType: models.EntryTypeManual,
		Status:    models.EntryStatusPosted,
	}
}

func TestStore_WithTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	boom := errors.New("boom")
	err := s.WithTransaction(ctx, func(tx store.Repositories) error {
		require.NoError(t, tx.Ledger().Insert(ctx, credit(1, "10.00")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := s.Ledger().CountByAccounts(ctx, []int64{1})
	require.NoError(t, err)
	assert.Zero(t, n)

	err = s.WithTransaction(ctx, func(tx store.Repositories) error {
		return tx.Ledger().Insert(ctx, credit(1, "10.00"))
	})
	require.NoError(t, err)
	n, _ = s.Ledger().CountByAccounts(ctx, []int64{1})
	assert.Equal(t, int64(1), n)
}

func TestLedger_InsertDuplicateKey(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	key := "k1"

	first := credit(1, "5.00")
	first.IdempotencyKey = &key
	require.NoError(t, s.Ledger().Insert(ctx, first))

	second := credit(1, "5.00")
	second.IdempotencyKey = &key
	assert.ErrorIs(t, s.Ledger().Insert(ctx, second), store.ErrDuplicateKey)

	other := credit(2, "5.00")
	other.IdempotencyKey = &key
	assert.NoError(t, s.Ledger().Insert(ctx, other), "keys are scoped per account")

	found, err := s.Ledger().FindByIdempotencyKey(ctx, 1, key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestLedger_OrderingAndSum(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	s := NewStore(WithClock(func() time.Time { return now }))

	require.NoError(t, s.Ledger().Insert(ctx, credit(1, "100.00")))
	debit := credit(1, "30.00")
	debit.Direction = models.DirectionDebit
	require.NoError(t, s.Ledger().Insert(ctx, debit))
	pending := credit(1, "999.00")
	pending.Status = models.EntryStatusPending
	require.NoError(t, s.Ledger().Insert(ctx, pending))

	entries, err := s.Ledger().ListByAccount(ctx, 1, 2, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, pending.ID, entries[0].ID, "equal timestamps fall back to id descending")
	assert.Equal(t, debit.ID, entries[1].ID)

	totals, err := s.Ledger().Sum(ctx, store.EntryFilter{
		AccountIDs: []int64{1},
		Currency:   "USD",
		Status:     models.EntryStatusPosted,
	})
	require.NoError(t, err)
	assert.Equal(t, "70.00", totals.Net().StringFixed(2))
}

func TestScheduled_ListDueAndMarkPosted(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	s := NewStore(WithClock(func() time.Time { return now }))

	later := &models.ScheduledEntry{AccountID: 1, Status: models.ScheduledStatusPending, ScheduledFor: now.Add(time.Hour)}
	due2 := &models.ScheduledEntry{AccountID: 1, Status: models.ScheduledStatusPending, ScheduledFor: now.Add(-time.Minute)}
	due1 := &models.ScheduledEntry{AccountID: 1, Status: models.ScheduledStatusPending, ScheduledFor: now.Add(-time.Hour)}
	for _, e := range []*models.ScheduledEntry{later, due2, due1} {
		require.NoError(t, s.Scheduled().Insert(ctx, e))
	}

	due, err := s.Scheduled().ListDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, due1.ID, due[0].ID)
	assert.Equal(t, due2.ID, due[1].ID)

	require.NoError(t, s.Scheduled().MarkPosted(ctx, due1.ID, now, 5))
	assert.ErrorIs(t, s.Scheduled().MarkPosted(ctx, due1.ID, now, 5), store.ErrNotFound)

	pending, err := s.Scheduled().ListByAccount(ctx, 1, false)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	all, err := s.Scheduled().ListByAccount(ctx, 1, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAccounts_ChildIDsAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	parent := &models.Account{OwnerUserID: 1, Name: "Trust", AccountType: models.AccountTypeTrust}
	require.NoError(t, s.Accounts().Create(ctx, parent))
	for _, name := range []string{"A", "B"} {
		child := &models.Account{OwnerUserID: 1, Name: name, AccountType: models.AccountTypeVault, ParentAccountID: &parent.ID}
		require.NoError(t, s.Accounts().Create(ctx, child))
	}

	ids, err := s.Accounts().ChildIDs(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)

	n, err := s.Accounts().DeleteByIDs(ctx, append(ids, parent.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = s.Accounts().Get(ctx, parent.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
