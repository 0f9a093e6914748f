package services

import (
	"context"
	"testing"
	"time"

	"github.com/intentionbank/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, err := f.accounts.Create(ctx, alice, CreateAccountInput{
		Name:      "  Everyday  ",
		LegalName: ptr(" "),
		Notes:     ptr("main account"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Everyday", account.Name)
	assert.Equal(t, models.AccountTypePersonal, account.AccountType)
	assert.Equal(t, alice.ID, account.OwnerUserID)
	assert.True(t, account.IsActive)
	assert.Nil(t, account.LegalName)
	assert.Equal(t, "main account", *account.Notes)

	_, err = f.accounts.Create(ctx, alice, CreateAccountInput{Name: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	inactive, err := f.accounts.Create(ctx, alice, CreateAccountInput{Name: "Dormant", IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, inactive.IsActive)
}

func TestAccountService_CreateWithParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trust := f.account(t, alice, models.AccountTypeTrust, nil)
	personal := f.account(t, alice, models.AccountTypePersonal, nil)

	child, err := f.accounts.Create(ctx, alice, CreateAccountInput{Name: "Child", AccountType: "vault", ParentAccountID: &trust.ID})
	require.NoError(t, err)
	require.NotNil(t, child.ParentAccountID)
	assert.Equal(t, trust.ID, *child.ParentAccountID)

	_, err = f.accounts.Create(ctx, alice, CreateAccountInput{Name: "Bad", ParentAccountID: &personal.ID})
	assert.ErrorIs(t, err, ErrValidation, "parent must be a trust")

	_, err = f.accounts.Create(ctx, alice, CreateAccountInput{Name: "Orphan", ParentAccountID: ptr(int64(999))})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.accounts.Create(ctx, bob, CreateAccountInput{Name: "Intruder", ParentAccountID: &trust.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	managed, err := f.accounts.Create(ctx, admin, CreateAccountInput{Name: "Managed", ParentAccountID: &trust.ID})
	require.NoError(t, err)

	nested, err := f.accounts.Create(ctx, alice, CreateAccountInput{Name: "Sub-trust", AccountType: models.AccountTypeTrust, ParentAccountID: &trust.ID})
	require.NoError(t, err)
	_, err = f.accounts.Create(ctx, alice, CreateAccountInput{Name: "Grandchild", ParentAccountID: &nested.ID})
	assert.ErrorIs(t, err, ErrValidation, "only one level of hierarchy")

	result, err := f.accounts.Delete(ctx, alice, trust)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{trust.ID, child.ID, managed.ID, nested.ID}, result.AccountIDs)
	_, err = f.accounts.Get(ctx, nested.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountService_ListAndRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.account(t, alice, models.AccountTypePersonal, nil)
	f.clock.Advance(time.Minute)
	second := f.account(t, alice, models.AccountTypeVault, nil)
	f.account(t, bob, models.AccountTypePersonal, nil)

	accounts, err := f.accounts.ListForOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, second.ID, accounts[0].ID, "newest first")
	assert.Equal(t, first.ID, accounts[1].ID)

	renamed, err := f.accounts.Rename(ctx, first, " Rainy Day ")
	require.NoError(t, err)
	assert.Equal(t, "Rainy Day", renamed.Name)

	stored, err := f.accounts.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rainy Day", stored.Name)

	_, err = f.accounts.Rename(ctx, first, "  ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAccountService_Authorized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.account(t, alice, models.AccountTypePersonal, nil)

	_, err := f.accounts.Authorized(ctx, alice, account.ID)
	assert.NoError(t, err)
	_, err = f.accounts.Authorized(ctx, admin, account.ID)
	assert.NoError(t, err)
	_, err = f.accounts.Authorized(ctx, bob, account.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.accounts.Authorized(ctx, alice, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountService_DeleteCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	trust := f.account(t, alice, models.AccountTypeTrust, nil)
	c1 := f.account(t, alice, models.AccountTypeVault, &trust.ID)
	c2 := f.account(t, alice, models.AccountTypeEntity, &trust.ID)
	keep := f.account(t, alice, models.AccountTypePersonal, nil)

	f.post(t, trust.ID, models.DirectionCredit, "10.00")
	f.post(t, c1.ID, models.DirectionCredit, "10.00")
	f.post(t, c2.ID, models.DirectionDebit, "10.00")
	f.post(t, keep.ID, models.DirectionCredit, "10.00")
	_, err := f.ledger.CreateTransfer(ctx, alice.ID, TransferInput{FromAccountID: keep.ID, ToAccountID: c1.ID, Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)

	f.schedule(t, alice, c1.ID, "5.00", f.clock.Now().Add(time.Hour))
	f.schedule(t, alice, trust.ID, "5.00", f.clock.Now().Add(time.Hour))
	_, err = f.txns.Record(ctx, c2.ID, RecordTransactionInput{Amount: decimal.NewFromInt(-3)})
	require.NoError(t, err)

	result, err := f.accounts.Delete(ctx, alice, trust)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{trust.ID, c1.ID, c2.ID}, result.AccountIDs)
	assert.Equal(t, int64(4), result.LedgerEntries)
	assert.Equal(t, int64(2), result.ScheduledEntries)
	assert.Equal(t, int64(1), result.Transactions)
	assert.Equal(t, int64(3), result.AccountsDeleted)

	for _, id := range result.AccountIDs {
		_, err := f.accounts.Get(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = f.ledger.GetBalance(ctx, id, "USD", nil)
		assert.ErrorIs(t, err, ErrNotFound)

		scheduled, err := f.scheduled.ListForAccount(ctx, id, true)
		require.NoError(t, err)
		assert.Empty(t, scheduled)
		txns, err := f.txns.List(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, txns)
	}
	n, err := f.store.Ledger().CountByAccounts(ctx, result.AccountIDs)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, "9.00", f.balance(t, keep.ID))
}

func TestAccountService_Summary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.accounts.Summary(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, empty.AccountsCount)
	assert.Zero(t, empty.LedgerEntriesCount)

	a := f.account(t, alice, models.AccountTypePersonal, nil)
	f.account(t, alice, models.AccountTypeVault, nil)
	f.post(t, a.ID, models.DirectionCredit, "1.00")
	f.post(t, a.ID, models.DirectionCredit, "2.00")
	other := f.account(t, bob, models.AccountTypePersonal, nil)
	f.post(t, other.ID, models.DirectionCredit, "3.00")

	summary, err := f.accounts.Summary(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.AccountsCount)
	assert.Equal(t, int64(2), summary.LedgerEntriesCount)
}

func TestAuthorize(t *testing.T) {
	assert.ErrorIs(t, Authorize(nil, 1), ErrUnauthenticated)
	assert.NoError(t, Authorize(alice, alice.ID))
	assert.NoError(t, Authorize(admin, alice.ID))
	assert.ErrorIs(t, Authorize(bob, alice.ID), ErrForbidden)
}

func TestTierService_RequirePremium(t *testing.T) {
	f := newFixture(t)

	err := f.tier.RequirePremium(alice, "Statements")
	assert.ErrorIs(t, err, ErrPaymentRequired)
	assert.Contains(t, err.Error(), "Statements are available on the Signature tier")

	assert.NoError(t, f.tier.RequirePremium(admin, "Statements"))
	assert.NoError(t, f.tier.RequirePremium(&models.User{ID: 5, IsPremium: true}, "Statements"))
}
