package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/intentionbank/backend/internal/config"
	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/store"
	"github.com/intentionbank/backend/internal/store/inmemory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTxStore delegates reads and single writes to the in-memory store and
// lets tests decide the outcome of WithTransaction.
type MockTxStore struct {
	*inmemory.Store
	mock.Mock
}

func (m *MockTxStore) WithTransaction(ctx context.Context, fn func(tx store.Repositories) error) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store      *inmemory.Store
	clock      *testClock
	accounts   *AccountService
	ledger     *LedgerService
	scheduled  *ScheduledEntryService
	statements *StatementService
	tier       *TierService
	txns       *TransactionService
}

var (
	alice = &models.User{ID: 1, Email: "alice@example.com", Role: models.RoleUser}
	bob   = &models.User{ID: 2, Email: "bob@example.com", Role: models.RoleUser}
	admin = &models.User{ID: 99, Email: "admin@example.com", Role: models.RoleAdmin}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	st := inmemory.NewStore(inmemory.WithClock(clock.Now))
	cfg := config.Default()

	f := &fixture{store: st, clock: clock}
	f.accounts = NewAccountService(st, nil, nil, nil)
	f.ledger = NewLedgerService(st, cfg.Ledger, nil, nil, nil)
	f.tier = NewTierService(st, cfg.Tier)
	f.tier.now = clock.Now
	f.scheduled = NewScheduledEntryService(st, cfg.Ledger, f.tier, nil, nil, nil)
	f.scheduled.now = clock.Now
	f.statements = NewStatementService(st, cfg.Statement, cfg.Ledger)
	f.statements.now = clock.Now
	f.txns = NewTransactionService(st, cfg.Ledger)
	return f
}

func (f *fixture) account(t *testing.T, owner *models.User, accountType string, parentID *int64) *models.Account {
	t.Helper()
	account, err := f.accounts.Create(context.Background(), owner, CreateAccountInput{
		Name:            accountType + " account",
		AccountType:     accountType,
		ParentAccountID: parentID,
	})
	require.NoError(t, err)
	return account
}

func (f *fixture) post(t *testing.T, accountID int64, direction models.Direction, amount string) *models.LedgerEntry {
	t.Helper()
	entry, err := f.ledger.PostEntry(context.Background(), alice.ID, PostEntryInput{
		AccountID: accountID,
		Direction: direction,
		Amount:    decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return entry
}

func (f *fixture) balance(t *testing.T, accountID int64) string {
	t.Helper()
	b, err := f.ledger.GetBalance(context.Background(), accountID, "", nil)
	require.NoError(t, err)
	return b.StringFixed(2)
}

func ptr[T any](v T) *T {
	return &v
}
