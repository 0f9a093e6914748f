package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/intentionbank/backend/internal/audit"
	"github.com/intentionbank/backend/internal/config"
	"github.com/intentionbank/backend/internal/events"
	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateScheduledEntryInput struct {
	AccountID    int64            `json:"account_id" validate:"required,gt=0"`
	Direction    models.Direction `json:"direction" validate:"required,oneof=credit debit"`
	Amount       decimal.Decimal  `json:"amount" swaggertype:"string" example:"50.00"`
	Currency     string           `json:"currency,omitempty" validate:"len=3,alpha" example:"USD"`
	EntryType    string           `json:"entry_type,omitempty" validate:"max=32"`
	Reference    *string          `json:"reference,omitempty" validate:"omitempty,max=120"`
	Memo         *string          `json:"memo,omitempty" validate:"omitempty,max=500"`
	ScheduledFor *time.Time       `json:"scheduled_for" validate:"required"`
}

type ScheduledEntryService struct {
	store     store.Store
	tier      *TierService
	audit     *audit.Logger
	events    *events.Publisher
	logger    *zap.Logger
	validator *ValidationHelper
	currency  string
	now       func() time.Time
}

func NewScheduledEntryService(s store.Store, cfg config.LedgerConfig, tier *TierService, auditLog *audit.Logger, publisher *events.Publisher, logger *zap.Logger) *ScheduledEntryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	currency := cfg.DefaultCurrency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &ScheduledEntryService{
		store:     s,
		tier:      tier,
		audit:     auditLog,
		events:    publisher,
		logger:    logger,
		validator: inputValidator,
		currency:  currency,
		now:       time.Now,
	}
}

// Create records a pending entry for later promotion. Free users are subject
// to the scheduled-entry quota.
func (s *ScheduledEntryService) Create(ctx context.Context, actor *models.User, in CreateScheduledEntryInput) (*models.ScheduledEntry, error) {
	in.Direction = models.Direction(strings.ToLower(strings.TrimSpace(string(in.Direction))))
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = s.currency
	}
	in.EntryType = strings.ToLower(strings.TrimSpace(in.EntryType))
	if in.EntryType == "" {
		in.EntryType = models.EntryTypeScheduled
	}
	in.Reference = trimmed(in.Reference)
	in.Memo = trimmed(in.Memo)

	if err := s.validator.ValidateStruct(&in); err != nil {
		return nil, validationFailed(err)
	}
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if _, err := s.store.Accounts().Get(ctx, in.AccountID); err != nil {
		return nil, notFound(err, "account", in.AccountID)
	}
	if s.tier != nil {
		if err := s.tier.CheckScheduledQuota(ctx, actor); err != nil {
			return nil, err
		}
	}

	entry := &models.ScheduledEntry{
		AccountID:       in.AccountID,
		CreatedByUserID: actor.ID,
		Direction:       in.Direction,
		Amount:          in.Amount,
		Currency:        in.Currency,
		EntryType:       in.EntryType,
		Status:          models.ScheduledStatusPending,
		Reference:       in.Reference,
		Memo:            in.Memo,
		ScheduledFor:    in.ScheduledFor.UTC(),
	}
	if err := s.store.Scheduled().Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create scheduled entry: %w", err)
	}
	return entry, nil
}

// ListForAccount returns pending entries, or every entry when includePosted,
// earliest due first.
func (s *ScheduledEntryService) ListForAccount(ctx context.Context, accountID int64, includePosted bool) ([]*models.ScheduledEntry, error) {
	return s.store.Scheduled().ListByAccount(ctx, accountID, includePosted)
}

type promotion struct {
	scheduled *models.ScheduledEntry
	entry     *models.LedgerEntry
}

// PostDueEntries promotes every pending entry whose time has come into a
// posted ledger entry and commits the batch once. Entries already posted are
// never selected again, so a failed pass is recovered by the next one.
func (s *ScheduledEntryService) PostDueEntries(ctx context.Context) (int, error) {
	now := s.now().UTC()

	var promoted []promotion
	err := s.store.WithTransaction(ctx, func(tx store.Repositories) error {
		promoted = promoted[:0]
		due, err := tx.Scheduled().ListDue(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to list due entries: %w", err)
		}

		for _, se := range due {
			entry := &models.LedgerEntry{
				AccountID:       se.AccountID,
				CreatedByUserID: se.CreatedByUserID,
				Direction:       se.Direction,
				Amount:          se.Amount,
				Currency:        se.Currency,
				EntryType:       se.EntryType,
				Status:          models.EntryStatusPosted,
				Reference:       se.Reference,
				Memo:            se.Memo,
				Metadata: models.Metadata{
					models.MetaSource:           models.EntryTypeScheduled,
					models.MetaScheduledEntryID: se.ID,
				},
			}
			if err := tx.Ledger().Insert(ctx, entry); err != nil {
				return fmt.Errorf("failed to post scheduled entry %d: %w", se.ID, err)
			}
			if err := tx.Scheduled().MarkPosted(ctx, se.ID, now, entry.ID); err != nil {
				return fmt.Errorf("failed to mark scheduled entry %d posted: %w", se.ID, err)
			}
			promoted = append(promoted, promotion{scheduled: se, entry: entry})
		}
		return nil
	})
	if err != nil {
		s.audit.LogError(0, 0, "post_due_entries", err)
		return 0, err
	}

	for _, p := range promoted {
		s.audit.LogScheduledPromoted(p.scheduled.ID, p.entry.AccountID, p.entry.ID)
		if err := s.events.Publish(ctx, &events.Event{
			Type:      events.TypeScheduledPosted,
			AccountID: p.entry.AccountID,
			EntryIDs:  []int64{p.entry.ID},
			Amount:    p.entry.Amount.StringFixed(2),
			Currency:  p.entry.Currency,
			Metadata:  map[string]any{"scheduled_entry_id": p.scheduled.ID},
		}); err != nil {
			s.logger.Warn("scheduled posted event not published", zap.Int64("entry_id", p.entry.ID), zap.Error(err))
		}
	}
	if len(promoted) > 0 {
		s.logger.Info("scheduled entries promoted", zap.Int("count", len(promoted)))
	}
	return len(promoted), nil
}
