package services

import (
	"context"
	"testing"

	"github.com/intentionbank/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionService_Record(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, alice, models.AccountTypePersonal, nil)

	txn, err := f.txns.Record(ctx, a.ID, RecordTransactionInput{
		Amount:      decimal.RequireFromString("-12.50"),
		Currency:    "usd",
		Description: ptr(" Coffee "),
		Category:    ptr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", txn.Currency)
	assert.Equal(t, "Coffee", *txn.Description)
	assert.Nil(t, txn.Category)
	assert.Equal(t, TransactionStatusCompleted, txn.Status)

	// activity rows never touch the ledger balance
	assert.Equal(t, "0.00", f.balance(t, a.ID))

	second, err := f.txns.Record(ctx, a.ID, RecordTransactionInput{Amount: decimal.NewFromInt(40)})
	require.NoError(t, err)
	assert.Equal(t, "USD", second.Currency)

	list, err := f.txns.List(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, txn.ID, list[1].ID)
}

func TestTransactionService_RecordInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, alice, models.AccountTypePersonal, nil)

	tests := []struct {
		name string
		in   RecordTransactionInput
	}{
		{"zero amount", RecordTransactionInput{Amount: decimal.Zero}},
		{"too precise", RecordTransactionInput{Amount: decimal.RequireFromString("-1.005")}},
		{"bad currency", RecordTransactionInput{Amount: decimal.NewFromInt(1), Currency: "US"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.txns.Record(ctx, a.ID, tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}
