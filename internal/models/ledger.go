package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a request omits the currency code.
const DefaultCurrency = "USD"

// Direction carries the sign of a ledger entry; amounts are always positive.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// EntryStatus of a ledger entry. Only posted entries count towards balances.
type EntryStatus string

const (
	EntryStatusPosted  EntryStatus = "posted"
	EntryStatusPending EntryStatus = "pending"
	EntryStatusVoid    EntryStatus = "void"
)

// Entry types. The classifier is free-form; these are the ones the service
// itself produces or reports on.
const (
	EntryTypeManual     = "manual"
	EntryTypeTransfer   = "transfer"
	EntryTypeScheduled  = "scheduled"
	EntryTypeWelcome    = "welcome"
	EntryTypeDeposit    = "deposit"
	EntryTypeWithdrawal = "withdrawal"
	EntryTypeCheck      = "check"
)

// Metadata keys written by the ledger.
const (
	MetaTransferID       = "transfer_id"
	MetaCounterparty     = "counterparty_account_id"
	MetaSource           = "source"
	MetaScheduledEntryID = "scheduled_entry_id"
)

// LedgerEntry is an append-only record of value movement on one account.
type LedgerEntry struct {
	ID              int64           `json:"id" db:"id"`
	AccountID       int64           `json:"account_id" db:"account_id"`
	CreatedByUserID int64           `json:"created_by_user_id" db:"created_by_user_id"`
	Direction       Direction       `json:"direction" db:"direction"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	Currency        string          `json:"currency" db:"currency"`
	EntryType       string          `json:"entry_type" db:"entry_type"`
	Status          EntryStatus     `json:"status" db:"status"`
	Reference       *string         `json:"reference,omitempty" db:"reference"`
	ExternalRef     *string         `json:"external_ref,omitempty" db:"external_ref"`
	IdempotencyKey  *string         `json:"idempotency_key,omitempty" db:"idempotency_key"`
	Memo            *string         `json:"memo,omitempty" db:"memo"`
	Metadata        Metadata        `json:"meta,omitempty" db:"meta"`
	IsReversal      bool            `json:"is_reversal" db:"is_reversal"`
	ReversedEntryID *int64          `json:"reversed_entry_id,omitempty" db:"reversed_entry_id"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
