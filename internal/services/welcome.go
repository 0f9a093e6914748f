package services

import (
	"context"
	"fmt"

	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/store"
	"github.com/shopspring/decimal"
)

const welcomeAccountName = "Wealth Builder"

// ClaimWelcomeBonus credits the configured bonus to the actor's wealth builder
// account, creating the account on first use. The credit is keyed per user,
// so repeated claims return the original entry.
func (s *LedgerService) ClaimWelcomeBonus(ctx context.Context, actor *models.User) (*models.LedgerEntry, error) {
	amount, err := decimal.NewFromString(s.cfg.WelcomeBonus)
	if err != nil {
		return nil, fmt.Errorf("invalid welcome bonus %q: %w", s.cfg.WelcomeBonus, err)
	}

	key := fmt.Sprintf("welcome:%d", actor.ID)
	reference := "welcome-bonus"
	memo := "Welcome deposit"

	var (
		entry    *models.LedgerEntry
		replayed bool
	)
	err = s.store.WithTransaction(ctx, func(tx store.Repositories) error {
		account, err := welcomeAccount(ctx, tx, actor.ID)
		if err != nil {
			return err
		}
		in, err := s.prepareEntry(PostEntryInput{
			AccountID:      account.ID,
			Direction:      models.DirectionCredit,
			Amount:         amount,
			EntryType:      models.EntryTypeWelcome,
			Reference:      &reference,
			IdempotencyKey: &key,
			Memo:           &memo,
			Metadata:       models.Metadata{models.MetaSource: models.EntryTypeWelcome},
		})
		if err != nil {
			return err
		}
		entry, replayed, err = s.post(ctx, tx, actor.ID, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	if replayed {
		s.audit.LogReplay(actor.ID, entry.AccountID, entry.ID, key)
	} else {
		s.posted(ctx, actor.ID, entry)
	}
	return entry, nil
}

func welcomeAccount(ctx context.Context, tx store.Repositories, ownerID int64) (*models.Account, error) {
	accounts, err := tx.Accounts().ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.AccountType == models.AccountTypeWealthBuilder {
			return a, nil
		}
	}
	account := &models.Account{
		OwnerUserID: ownerID,
		Name:        welcomeAccountName,
		AccountType: models.AccountTypeWealthBuilder,
		IsActive:    true,
	}
	if err := tx.Accounts().Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create wealth builder account: %w", err)
	}
	return account, nil
}
