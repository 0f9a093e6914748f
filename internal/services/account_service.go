package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/intentionbank/backend/internal/audit"
	"github.com/intentionbank/backend/internal/events"
	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/store"
	"go.uber.org/zap"
)

// AccountService is the account directory: identity, ownership, hierarchy and
// cascading deletion.
type AccountService struct {
	store     store.Store
	audit     *audit.Logger
	events    *events.Publisher
	logger    *zap.Logger
	validator *ValidationHelper
}

func NewAccountService(s store.Store, auditLog *audit.Logger, publisher *events.Publisher, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		store:     s,
		audit:     auditLog,
		events:    publisher,
		logger:    logger,
		validator: inputValidator,
	}
}

type CreateAccountInput struct {
	Name            string  `json:"name" validate:"required,max=120"`
	AccountType     string  `json:"account_type" validate:"max=32"`
	ParentAccountID *int64  `json:"parent_account_id,omitempty" validate:"omitempty,gt=0"`
	LegalName       *string `json:"legal_name,omitempty" validate:"omitempty,max=200"`
	Jurisdiction    *string `json:"jurisdiction,omitempty" validate:"omitempty,max=120"`
	Notes           *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

// DeleteResult counts the rows removed by a cascading delete.
type DeleteResult struct {
	AccountIDs       []int64 `json:"account_ids"`
	LedgerEntries    int64   `json:"ledger_entries"`
	Transactions     int64   `json:"transactions"`
	ScheduledEntries int64   `json:"scheduled_entries"`
	AccountsDeleted  int64   `json:"accounts_deleted"`
}

type Summary struct {
	AccountsCount      int64 `json:"accounts_count"`
	LedgerEntriesCount int64 `json:"ledger_entries_count"`
}

func (s *AccountService) Get(ctx context.Context, id int64) (*models.Account, error) {
	account, err := s.store.Accounts().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	return account, nil
}

// Authorized loads the account and checks that actor may act on it.
func (s *AccountService) Authorized(ctx context.Context, actor *models.User, id int64) (*models.Account, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, account.OwnerUserID); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AccountService) ListForOwner(ctx context.Context, ownerID int64) ([]*models.Account, error) {
	return s.store.Accounts().ListByOwner(ctx, ownerID)
}

// Create adds an account owned by actor. A parent must exist, be accessible
// to actor and be a top-level trust account.
func (s *AccountService) Create(ctx context.Context, actor *models.User, in CreateAccountInput) (*models.Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.AccountType = strings.ToLower(strings.TrimSpace(in.AccountType))
	if in.AccountType == "" {
		in.AccountType = models.AccountTypePersonal
	}
	if err := s.validator.ValidateStruct(&in); err != nil {
		return nil, validationFailed(err)
	}

	if in.ParentAccountID != nil {
		parent, err := s.Authorized(ctx, actor, *in.ParentAccountID)
		if err != nil {
			return nil, err
		}
		if !parent.IsTrust() {
			return nil, invalidf("parent account must be a trust account")
		}
		if parent.ParentAccountID != nil {
			return nil, invalidf("parent account must not itself have a parent")
		}
	}

	account := &models.Account{
		OwnerUserID:     actor.ID,
		ParentAccountID: in.ParentAccountID,
		Name:            in.Name,
		AccountType:     in.AccountType,
		LegalName:       trimmed(in.LegalName),
		Jurisdiction:    trimmed(in.Jurisdiction),
		Notes:           trimmed(in.Notes),
		IsActive:        in.IsActive == nil || *in.IsActive,
	}
	if err := s.store.Accounts().Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("account created",
		zap.Int64("account_id", account.ID),
		zap.Int64("owner_user_id", account.OwnerUserID),
		zap.String("account_type", account.AccountType))
	return account, nil
}

func (s *AccountService) Rename(ctx context.Context, account *models.Account, name string) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("name is required")
	}
	if err := s.store.Accounts().UpdateName(ctx, account.ID, name); err != nil {
		return nil, notFound(err, "account", account.ID)
	}
	renamed := *account
	renamed.Name = name
	return &renamed, nil
}

// Delete removes the account, its direct children and every ledger entry,
// transaction and scheduled entry that references any of them, atomically.
func (s *AccountService) Delete(ctx context.Context, actor *models.User, account *models.Account) (*DeleteResult, error) {
	result := &DeleteResult{}
	err := s.store.WithTransaction(ctx, func(tx store.Repositories) error {
		children, err := tx.Accounts().ChildIDs(ctx, account.ID)
		if err != nil {
			return fmt.Errorf("failed to list child accounts: %w", err)
		}
		ids := append([]int64{account.ID}, children...)
		result.AccountIDs = ids

		if result.LedgerEntries, err = tx.Ledger().DeleteByAccountIDs(ctx, ids); err != nil {
			return fmt.Errorf("failed to delete ledger entries: %w", err)
		}
		if result.Transactions, err = tx.Transactions().DeleteByAccountIDs(ctx, ids); err != nil {
			return fmt.Errorf("failed to delete transactions: %w", err)
		}
		if result.ScheduledEntries, err = tx.Scheduled().DeleteByAccountIDs(ctx, ids); err != nil {
			return fmt.Errorf("failed to delete scheduled entries: %w", err)
		}
		if result.AccountsDeleted, err = tx.Accounts().DeleteByIDs(ctx, ids); err != nil {
			return fmt.Errorf("failed to delete accounts: %w", err)
		}
		return nil
	})
	if err != nil {
		s.audit.LogError(actor.ID, account.ID, "delete_account", err)
		return nil, err
	}

	s.audit.LogAccountDeleted(actor.ID, result.AccountIDs, result.LedgerEntries)
	if err := s.events.Publish(ctx, &events.Event{
		Type:      events.TypeAccountDeleted,
		AccountID: account.ID,
		Metadata:  map[string]any{"account_ids": result.AccountIDs},
	}); err != nil {
		s.logger.Warn("account deleted event not published", zap.Error(err))
	}
	return result, nil
}

// Summary counts the owner's accounts and the ledger entries on them.
func (s *AccountService) Summary(ctx context.Context, ownerID int64) (*Summary, error) {
	accounts, err := s.store.Accounts().ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	entries, err := s.store.Ledger().CountByAccounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &Summary{AccountsCount: int64(len(accounts)), LedgerEntriesCount: entries}, nil
}

// trimmed returns nil for absent or blank strings.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
