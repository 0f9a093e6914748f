package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/intentionbank/backend/internal/config"
	"github.com/intentionbank/backend/internal/events"
	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/store/inmemory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLedgerService_BalanceScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.account(t, alice, models.AccountTypePersonal, nil)
	assert.Equal(t, "0.00", f.balance(t, a.ID))

	f.post(t, a.ID, models.DirectionCredit, "100.00")
	assert.Equal(t, "100.00", f.balance(t, a.ID))

	f.post(t, a.ID, models.DirectionDebit, "30.00")
	assert.Equal(t, "70.00", f.balance(t, a.ID))

	b := f.account(t, alice, models.AccountTypePersonal, nil)
	_, err := f.ledger.CreateTransfer(ctx, alice.ID, TransferInput{
		FromAccountID: a.ID,
		ToAccountID:   b.ID,
		Amount:        decimal.RequireFromString("25.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, "45.00", f.balance(t, a.ID))
	assert.Equal(t, "25.00", f.balance(t, b.ID))
}

func TestLedgerService_PostEntryDefaults(t *testing.T) {
	f := newFixture(t)
	a := f.account(t, alice, models.AccountTypePersonal, nil)

	entry, err := f.ledger.PostEntry(context.Background(), alice.ID, PostEntryInput{
		AccountID: a.ID,
		Direction: "Credit",
		Amount:    decimal.RequireFromString("12.5"),
		Currency:  " usd ",
		Memo:      ptr("  "),
	})
	require.NoError(t, err)

	assert.NotZero(t, entry.ID)
	assert.Equal(t, models.DirectionCredit, entry.Direction)
	assert.Equal(t, "USD", entry.Currency)
	assert.Equal(t, models.EntryTypeManual, entry.EntryType)
	assert.Equal(t, models.EntryStatusPosted, entry.Status)
	assert.Equal(t, alice.ID, entry.CreatedByUserID)
	assert.Nil(t, entry.Memo)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestLedgerService_IdempotentPosting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, alice, models.AccountTypePersonal, nil)

	first, err := f.ledger.PostEntry(ctx, alice.ID, PostEntryInput{
		AccountID:      a.ID,
		Direction:      models.DirectionCredit,
		Amount:         decimal.RequireFromString("10.00"),
		IdempotencyKey: ptr("k1"),
	})
	require.NoError(t, err)

	second, err := f.ledger.PostEntry(ctx, alice.ID, PostEntryInput{
		AccountID:      a.ID,
		Direction:      models.DirectionCredit,
		Amount:         decimal.RequireFromString("99.00"),
		IdempotencyKey: ptr("k1"),
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, decimal.RequireFromString("10.00").Equal(second.Amount), "replay ignores the new payload")
	assert.Equal(t, "10.00", f.balance(t, a.ID))

	n, err := f.store.Ledger().CountByAccounts(ctx, []int64{a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	b := f.account(t, alice, models.AccountTypePersonal, nil)
	other, err := f.ledger.PostEntry(ctx, alice.ID, PostEntryInput{
		AccountID:      b.ID,
		Direction:      models.DirectionCredit,
		Amount:         decimal.RequireFromString("10.00"),
		IdempotencyKey: ptr("k1"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID, "keys are scoped to one account")
}

func TestLedgerService_RejectsInvalidAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, alice, models.AccountTypePersonal, nil)

	for _, amount := range []string{"0", "0.00", "-5.00", "1.001", "10000000000000000"} {
		_, err := f.ledger.PostEntry(ctx, alice.ID, PostEntryInput{
			AccountID: a.ID,
			Direction: models.DirectionCredit,
			Amount:    decimal.RequireFromString(amount),
		})
		assert.ErrorIs(t, err, ErrValidation, amount)
	}

	n, err := f.store.Ledger().CountByAccounts(ctx, []int64{a.ID})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLedgerService_RejectsExtremeExponents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, alice, models.AccountTypePersonal, nil)
	b := f.account(t, alice, models.AccountTypePersonal, nil)

	for _, raw := range []string{"1e-99999999", "1e99999999", "1e-19", "1e17"} {
		amount := decimal.RequireFromString(raw)
		done := make(chan [2]error, 1)
		go func() {
			_, postErr := f.ledger.PostEntry(ctx, alice.ID, PostEntryInput{
				AccountID: a.ID,
				Direction: models.DirectionCredit,
				Amount:    amount,
			})
			_, transferErr := f.ledger.CreateTransfer(ctx, alice.ID, TransferInput{
				FromAccountID: a.ID,
				ToAccountID:   b.ID,
				Amount:        amount,
			})
			done <- [2]error{postErr, transferErr}
		}()

		select {
		case errs := <-done:
			assert.ErrorIs(t, errs[0], ErrValidation, raw)
			assert.ErrorIs(t, errs[1], ErrValidation, raw)
		case <-time.After(5 * time.Second):
			t.Fatalf("amount %s was not rejected in time", raw)
		}
	}

	entry := f.post(t, a.ID, models.DirectionCredit, "1.500")
	assert.Equal(t, "1.50", entry.Amount.StringFixed(2))
}

func TestLedgerService_RejectsInvalidFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, alice, models.AccountTypePersonal, nil)

	cases := map[string]PostEntryInput{
		"direction": {AccountID: a.ID, Direction: "sideways", Amount: decimal.NewFromInt(1)},
		"status":    {AccountID: a.ID, Direction: models.DirectionCredit, Amount: decimal.NewFromInt(1), Status: "settled"},
		"currency":  {AccountID: a.ID, Direction: models.DirectionCredit, Amount: decimal.NewFromInt(1), Currency: "DOLLAR"},
		"account":   {Direction: models.DirectionCredit, Amount: decimal.NewFromInt(1)},
	}
	for name, in := range cases {
		_, err := f.ledger.PostEntry(ctx, alice.ID, in)
		assert.ErrorIs(t, err, ErrValidation, name)
	}
}

func TestLedgerService_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.PostEntry(ctx, alice.ID, PostEntryInput{
		AccountID: 404,
		Direction: models.DirectionCredit,
		Amount:    decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.ledger.GetBalance(ctx, 404, "USD", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerService_TrustAggregation(t *testing.T) {
	f := newFixture(t)
	trust := f.account(t, alice, models.AccountTypeTrust, nil)
	c1 := f.account(t, alice, models.AccountTypeVault, &trust.ID)
	c2 := f.account(t, alice, models.AccountTypeEntity, &trust.ID)

	f.post(t, trust.ID, models.DirectionCredit, "10.00")
	f.post(t, c1.ID, models.DirectionCredit, "20.00")
	f.post(t, c2.ID, models.DirectionCredit, "30.00")
	f.post(t, c2.ID, models.DirectionDebit, "5.00")

	assert.Equal(t, "55.00", f.balance(t, trust.ID))
	assert.Equal(t, "20.00", f.balance(t, c1.ID))
	assert.Equal(t, "25.00", f.balance(t, c2.ID))
}

func TestLedgerService_BalanceFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, alice, models.AccountTypePersonal, nil)

	first := f.post(t, a.ID, models.DirectionCredit, "100.00")
	f.clock.Advance(time.Hour)
	f.post(t, a.ID, models.DirectionCredit, "50.00")

	for _, status := range []models.EntryStatus{models.EntryStatusPending, models.EntryStatusVoid} {
		_, err := f.ledger.PostEntry(ctx, alice.ID, PostEntryInput{
			AccountID: a.ID,
			Direction: models.DirectionCredit,
			Amount:    decimal.NewFromInt(1000),
			Status:    status,
		})
		require.NoError(t, err)
	}
	_, err := f.ledger.PostEntry(ctx, alice.ID, PostEntryInput{
		AccountID: a.ID,
		Direction: models.DirectionCredit,
		Amount:    decimal.NewFromInt(7),
		Currency:  "EUR",
	})
	require.NoError(t, err)

	assert.Equal(t, "150.00", f.balance(t, a.ID))

	eur, err := f.ledger.GetBalance(ctx, a.ID, "eur", nil)
	require.NoError(t, err)
	assert.Equal(t, "7.00", eur.StringFixed(2))

	mid := first.CreatedAt.Add(30 * time.Minute)
	asOf, err := f.ledger.GetBalance(ctx, a.ID, "USD", &mid)
	require.NoError(t, err)
	assert.Equal(t, "100.00", asOf.StringFixed(2))

	exact := first.CreatedAt
	before, err := f.ledger.GetBalance(ctx, a.ID, "USD", &exact)
	require.NoError(t, err)
	assert.True(t, before.IsZero(), "as_of is an exclusive bound")
}

func TestLedgerService_ListEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, alice, models.AccountTypePersonal, nil)

	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, f.post(t, a.ID, models.DirectionCredit, "1.00").ID)
	}

	page, err := f.ledger.ListEntries(ctx, a.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID, "equal timestamps order by id descending")
	assert.Equal(t, ids[3], page[1].ID)

	page, err = f.ledger.ListEntries(ctx, a.ID, 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	page, err = f.ledger.ListEntries(ctx, a.ID, 0, -3)
	require.NoError(t, err)
	assert.Len(t, page, 5)

	assert.Equal(t, 50, f.ledger.pageSize(0))
	assert.Equal(t, 200, f.ledger.pageSize(5000))
	assert.Equal(t, 10, f.ledger.pageSize(10))
}

func TestLedgerService_ClaimWelcomeBonus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.ClaimWelcomeBonus(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, models.EntryTypeWelcome, entry.EntryType)
	assert.Equal(t, "999.00", entry.Amount.StringFixed(2))

	account, err := f.accounts.Get(ctx, entry.AccountID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountTypeWealthBuilder, account.AccountType)
	assert.Equal(t, alice.ID, account.OwnerUserID)

	again, err := f.ledger.ClaimWelcomeBonus(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, again.ID)
	assert.Equal(t, "999.00", f.balance(t, account.ID))

	accounts, err := f.accounts.ListForOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestLedgerService_PublishFailureLoggedOnce(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: time.Second})
	defer rdb.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	st := inmemory.NewStore()
	accounts := NewAccountService(st, nil, nil, nil)
	ledger := NewLedgerService(st, config.Default().Ledger, nil, events.NewPublisher(rdb, log), log)

	a, err := accounts.Create(context.Background(), alice, CreateAccountInput{Name: "Spending"})
	require.NoError(t, err)
	_, err = ledger.PostEntry(context.Background(), alice.ID, PostEntryInput{
		AccountID: a.ID,
		Direction: models.DirectionCredit,
		Amount:    decimal.RequireFromString("5.00"),
	})
	require.NoError(t, err, "a failed publish does not fail the post")

	warnings := logs.FilterLevelExact(zapcore.WarnLevel)
	require.Equal(t, 1, warnings.Len())
	assert.Equal(t, "entry posted event not published", warnings.All()[0].Message)
}
