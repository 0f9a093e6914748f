package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/intentionbank/backend/internal/audit"
	"github.com/intentionbank/backend/internal/config"
	"github.com/intentionbank/backend/internal/events"
	"github.com/intentionbank/backend/internal/models"
	"github.com/intentionbank/backend/internal/store"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxAmount is the first value that no longer fits NUMERIC(18,2).
var maxAmount = decimal.New(1, 16)

// Exponent bounds checked before any rescaling of a caller supplied amount.
const (
	minAmountExp = -18
	maxAmountExp = 16
)

// LedgerService is the append-only ledger: posting, balances and transfers.
// It performs no ownership checks; callers authorize first.
type LedgerService struct {
	store     store.Store
	cfg       config.LedgerConfig
	audit     *audit.Logger
	events    *events.Publisher
	logger    *zap.Logger
	validator *ValidationHelper

	newTransferID func() string
}

func NewLedgerService(s store.Store, cfg config.LedgerConfig, auditLog *audit.Logger, publisher *events.Publisher, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = models.DefaultCurrency
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}
	return &LedgerService{
		store:         s,
		cfg:           cfg,
		audit:         auditLog,
		events:        publisher,
		logger:        logger,
		validator:     inputValidator,
		newTransferID: func() string { return ulid.Make().String() },
	}
}

type PostEntryInput struct {
	AccountID      int64              `json:"account_id" validate:"required,gt=0"`
	Direction      models.Direction   `json:"direction" validate:"required,oneof=credit debit"`
	Amount         decimal.Decimal    `json:"amount" swaggertype:"string" example:"100.00"`
	Currency       string             `json:"currency,omitempty" validate:"len=3,alpha" example:"USD"`
	EntryType      string             `json:"entry_type,omitempty" validate:"max=32" example:"manual"`
	Status         models.EntryStatus `json:"status,omitempty" validate:"oneof=posted pending void"`
	Reference      *string            `json:"reference,omitempty" validate:"omitempty,max=120"`
	ExternalRef    *string            `json:"external_ref,omitempty" validate:"omitempty,max=120"`
	IdempotencyKey *string            `json:"idempotency_key,omitempty" validate:"omitempty,max=120"`
	Memo           *string            `json:"memo,omitempty" validate:"omitempty,max=500"`
	Metadata       models.Metadata    `json:"meta,omitempty" swaggertype:"object"`
}

func (in PostEntryInput) entry(creatorID int64) *models.LedgerEntry {
	return &models.LedgerEntry{
		AccountID:       in.AccountID,
		CreatedByUserID: creatorID,
		Direction:       in.Direction,
		Amount:          in.Amount,
		Currency:        in.Currency,
		EntryType:       in.EntryType,
		Status:          in.Status,
		Reference:       in.Reference,
		ExternalRef:     in.ExternalRef,
		IdempotencyKey:  in.IdempotencyKey,
		Memo:            in.Memo,
		Metadata:        in.Metadata,
	}
}

// NormalizeCurrency upper-cases c and falls back to the default currency.
func (s *LedgerService) NormalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return s.cfg.DefaultCurrency
	}
	return c
}

// validateAmount enforces a strictly positive amount with at most two
// fractional digits.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalidf("amount must be greater than zero")
	}
	if exp := amount.Exponent(); exp < minAmountExp || exp > maxAmountExp {
		return invalidf("amount is out of range")
	}
	if !amount.Equal(amount.Round(2)) {
		return invalidf("amount must have at most 2 decimal places")
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return invalidf("amount exceeds the maximum of %s", maxAmount.Sub(decimal.New(1, -2)).StringFixed(2))
	}
	return nil
}

func (s *LedgerService) prepareEntry(in PostEntryInput) (PostEntryInput, error) {
	in.Direction = models.Direction(strings.ToLower(strings.TrimSpace(string(in.Direction))))
	in.Currency = s.NormalizeCurrency(in.Currency)
	in.EntryType = strings.ToLower(strings.TrimSpace(in.EntryType))
	if in.EntryType == "" {
		in.EntryType = models.EntryTypeManual
	}
	if in.Status == "" {
		in.Status = models.EntryStatusPosted
	}
	in.Reference = trimmed(in.Reference)
	in.ExternalRef = trimmed(in.ExternalRef)
	in.IdempotencyKey = trimmed(in.IdempotencyKey)
	in.Memo = trimmed(in.Memo)

	if err := s.validator.ValidateStruct(&in); err != nil {
		return in, validationFailed(err)
	}
	if err := validateAmount(in.Amount); err != nil {
		return in, err
	}
	return in, nil
}

// PostEntry appends one entry. With an idempotency key, a repeated request
// for the same account returns the first committed entry unchanged.
func (s *LedgerService) PostEntry(ctx context.Context, creatorID int64, in PostEntryInput) (*models.LedgerEntry, error) {
	in, err := s.prepareEntry(in)
	if err != nil {
		return nil, err
	}

	entry, replayed, err := s.post(ctx, s.store, creatorID, in)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.audit.LogError(creatorID, in.AccountID, "post_entry", err)
		}
		return nil, err
	}

	if replayed {
		s.audit.LogReplay(creatorID, entry.AccountID, entry.ID, *in.IdempotencyKey)
		return entry, nil
	}
	s.posted(ctx, creatorID, entry)
	return entry, nil
}

// post runs against repos so it can join an enclosing transaction.
func (s *LedgerService) post(ctx context.Context, repos store.Repositories, creatorID int64, in PostEntryInput) (*models.LedgerEntry, bool, error) {
	if _, err := repos.Accounts().Get(ctx, in.AccountID); err != nil {
		return nil, false, notFound(err, "account", in.AccountID)
	}

	if in.IdempotencyKey != nil {
		existing, err := repos.Ledger().FindByIdempotencyKey(ctx, in.AccountID, *in.IdempotencyKey)
		if err == nil {
			return existing, true, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, false, err
		}
	}

	entry := in.entry(creatorID)
	err := repos.Ledger().Insert(ctx, entry)
	if errors.Is(err, store.ErrDuplicateKey) {
		// lost a race with a concurrent request carrying the same key
		existing, ferr := repos.Ledger().FindByIdempotencyKey(ctx, in.AccountID, *in.IdempotencyKey)
		if ferr != nil {
			return nil, false, ferr
		}
		return existing, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry, false, nil
}

func (s *LedgerService) posted(ctx context.Context, actorID int64, entry *models.LedgerEntry) {
	s.audit.LogEntryPosted(actorID, entry.AccountID, entry.ID, string(entry.Direction), entry.Amount.StringFixed(2), entry.Currency)
	if err := s.events.Publish(ctx, &events.Event{
		Type:      events.TypeEntryPosted,
		AccountID: entry.AccountID,
		EntryIDs:  []int64{entry.ID},
		Amount:    entry.Amount.StringFixed(2),
		Currency:  entry.Currency,
		Metadata:  map[string]any{"direction": entry.Direction, "entry_type": entry.EntryType},
	}); err != nil {
		s.logger.Warn("entry posted event not published", zap.Int64("entry_id", entry.ID), zap.Error(err))
	}
}

// GetBalance derives the posted balance of an account in one currency. Trust
// accounts include their direct children. With asOf, only entries created
// strictly before it count.
func (s *LedgerService) GetBalance(ctx context.Context, accountID int64, currency string, asOf *time.Time) (decimal.Decimal, error) {
	account, err := s.store.Accounts().Get(ctx, accountID)
	if err != nil {
		return decimal.Zero, notFound(err, "account", accountID)
	}

	ids := []int64{account.ID}
	if account.IsTrust() {
		children, err := s.store.Accounts().ChildIDs(ctx, account.ID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to list child accounts: %w", err)
		}
		ids = append(ids, children...)
	}

	totals, err := s.store.Ledger().Sum(ctx, store.EntryFilter{
		AccountIDs: ids,
		Currency:   s.NormalizeCurrency(currency),
		Status:     models.EntryStatusPosted,
		Before:     asOf,
	})
	if err != nil {
		return decimal.Zero, err
	}
	return totals.Net(), nil
}

// ListEntries pages through an account's entries, newest first.
func (s *LedgerService) ListEntries(ctx context.Context, accountID int64, limit, offset int) ([]*models.LedgerEntry, error) {
	return s.store.Ledger().ListByAccount(ctx, accountID, s.pageSize(limit), max(offset, 0))
}

func (s *LedgerService) pageSize(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultPageSize
	}
	if s.cfg.MaxPageSize > 0 && limit > s.cfg.MaxPageSize {
		return s.cfg.MaxPageSize
	}
	return limit
}
