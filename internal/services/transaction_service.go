package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/intentionbank/backend/internal/config"
	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/store"
	"github.com/shopspring/decimal"
)

const TransactionStatusCompleted = "completed"

type RecordTransactionInput struct {
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" example:"-12.50"`
	Currency    string          `json:"currency,omitempty" validate:"len=3,alpha"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=500"`
	Category    *string         `json:"category,omitempty" validate:"omitempty,max=64"`
}

// TransactionService keeps the legacy activity log. Its rows never affect
// balances.
type TransactionService struct {
	store     store.Store
	validator *ValidationHelper
	currency  string
	pageSize  int
}

func NewTransactionService(s store.Store, cfg config.LedgerConfig) *TransactionService {
	currency := cfg.DefaultCurrency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	pageSize := cfg.MaxPageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	return &TransactionService{store: s, validator: inputValidator, currency: currency, pageSize: pageSize}
}

// Record appends a signed, non-zero activity row to the account.
func (s *TransactionService) Record(ctx context.Context, accountID int64, in RecordTransactionInput) (*models.Transaction, error) {
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = s.currency
	}
	in.Description = trimmed(in.Description)
	in.Category = trimmed(in.Category)
	if err := s.validator.ValidateStruct(&in); err != nil {
		return nil, validationFailed(err)
	}
	if in.Amount.IsZero() {
		return nil, invalidf("amount must not be zero")
	}
	if err := validateAmount(in.Amount.Abs()); err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		AccountID:   accountID,
		Amount:      in.Amount,
		Currency:    in.Currency,
		Description: in.Description,
		Category:    in.Category,
		Status:      TransactionStatusCompleted,
	}
	if err := s.store.Transactions().Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}
	return txn, nil
}

func (s *TransactionService) List(ctx context.Context, accountID int64) ([]*models.Transaction, error) {
	return s.store.Transactions().ListByAccount(ctx, accountID, s.pageSize)
}
