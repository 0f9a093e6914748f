package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/intentionbank/backend/internal/events"
	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type TransferInput struct {
	FromAccountID  int64           `json:"from_account_id" validate:"required,gt=0"`
	ToAccountID    int64           `json:"to_account_id" validate:"required,gt=0,nefield=FromAccountID"`
	Amount         decimal.Decimal `json:"amount" swaggertype:"string" example:"25.00"`
	Currency       string          `json:"currency,omitempty" validate:"len=3,alpha" example:"USD"`
	Memo           *string         `json:"memo,omitempty" validate:"omitempty,max=500"`
	Reference      *string         `json:"reference,omitempty" validate:"omitempty,max=120"`
	IdempotencyKey *string         `json:"idempotency_key,omitempty" validate:"omitempty,max=120"`
}

// Transfer is a debit on the source and a credit on the destination sharing
// one correlation tag.
type Transfer struct {
	TransferID string              `json:"transfer_id"`
	Debit      *models.LedgerEntry `json:"debit"`
	Credit     *models.LedgerEntry `json:"credit"`
}

// CreateTransfer posts both legs of a transfer in one transaction. An
// idempotency key is recorded on the debit leg; repeating it returns the
// original pair.
func (s *LedgerService) CreateTransfer(ctx context.Context, creatorID int64, in TransferInput) (*Transfer, error) {
	in.Currency = s.NormalizeCurrency(in.Currency)
	in.Memo = trimmed(in.Memo)
	in.Reference = trimmed(in.Reference)
	in.IdempotencyKey = trimmed(in.IdempotencyKey)
	if err := s.validator.ValidateStruct(&in); err != nil {
		return nil, validationFailed(err)
	}
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}

	for _, id := range []int64{in.FromAccountID, in.ToAccountID} {
		if _, err := s.store.Accounts().Get(ctx, id); err != nil {
			return nil, notFound(err, "account", id)
		}
	}

	if in.IdempotencyKey != nil {
		existing, err := s.store.Ledger().FindByIdempotencyKey(ctx, in.FromAccountID, *in.IdempotencyKey)
		if err == nil {
			return s.replayTransfer(ctx, creatorID, existing, *in.IdempotencyKey)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	transferID := s.newTransferID()
	t := &Transfer{
		TransferID: transferID,
		Debit: &models.LedgerEntry{
			AccountID:       in.FromAccountID,
			CreatedByUserID: creatorID,
			Direction:       models.DirectionDebit,
			Amount:          in.Amount,
			Currency:        in.Currency,
			EntryType:       models.EntryTypeTransfer,
			Status:          models.EntryStatusPosted,
			Reference:       in.Reference,
			IdempotencyKey:  in.IdempotencyKey,
			Memo:            in.Memo,
			Metadata: models.Metadata{
				models.MetaTransferID:   transferID,
				models.MetaCounterparty: in.ToAccountID,
			},
		},
		Credit: &models.LedgerEntry{
			AccountID:       in.ToAccountID,
			CreatedByUserID: creatorID,
			Direction:       models.DirectionCredit,
			Amount:          in.Amount,
			Currency:        in.Currency,
			EntryType:       models.EntryTypeTransfer,
			Status:          models.EntryStatusPosted,
			Reference:       in.Reference,
			Memo:            in.Memo,
			Metadata: models.Metadata{
				models.MetaTransferID:   transferID,
				models.MetaCounterparty: in.FromAccountID,
			},
		},
	}

	err := s.store.WithTransaction(ctx, func(tx store.Repositories) error {
		if err := tx.Ledger().Insert(ctx, t.Debit); err != nil {
			return err
		}
		return tx.Ledger().Insert(ctx, t.Credit)
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		existing, ferr := s.store.Ledger().FindByIdempotencyKey(ctx, in.FromAccountID, *in.IdempotencyKey)
		if ferr != nil {
			return nil, ferr
		}
		return s.replayTransfer(ctx, creatorID, existing, *in.IdempotencyKey)
	}
	if err != nil {
		s.audit.LogError(creatorID, in.FromAccountID, "create_transfer", err)
		return nil, fmt.Errorf("failed to create transfer: %w", err)
	}

	amount := in.Amount.StringFixed(2)
	s.audit.LogTransfer(creatorID, transferID, in.FromAccountID, in.ToAccountID, amount, in.Currency)
	if err := s.events.Publish(ctx, &events.Event{
		Type:       events.TypeTransferCreated,
		AccountID:  in.FromAccountID,
		EntryIDs:   []int64{t.Debit.ID, t.Credit.ID},
		TransferID: transferID,
		Amount:     amount,
		Currency:   in.Currency,
		Metadata:   map[string]any{"to_account_id": in.ToAccountID},
	}); err != nil {
		s.logger.Warn("transfer event not published", zap.String("transfer_id", transferID), zap.Error(err))
	}
	return t, nil
}

// replayTransfer rebuilds the pair an idempotency key already produced.
func (s *LedgerService) replayTransfer(ctx context.Context, actorID int64, debit *models.LedgerEntry, key string) (*Transfer, error) {
	transferID := debit.Metadata.String(models.MetaTransferID)
	if debit.EntryType != models.EntryTypeTransfer || transferID == "" {
		return nil, fmt.Errorf("idempotency key %q already used by entry %d: %w", key, debit.ID, ErrConflict)
	}

	legs, err := s.store.Ledger().FindByTransferID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	t := &Transfer{TransferID: transferID}
	for _, leg := range legs {
		switch leg.Direction {
		case models.DirectionDebit:
			t.Debit = leg
		case models.DirectionCredit:
			t.Credit = leg
		}
	}
	if t.Debit == nil || t.Credit == nil {
		return nil, fmt.Errorf("transfer %s is incomplete", transferID)
	}

	s.audit.LogReplay(actorID, debit.AccountID, debit.ID, key)
	return t, nil
}
