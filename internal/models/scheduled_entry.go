package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ScheduledStatus string

const (
	ScheduledStatusPending ScheduledStatus = "pending"
	ScheduledStatusPosted  ScheduledStatus = "posted"
)

// ScheduledEntry is a future ledger entry. It is promoted exactly once into a
// posted LedgerEntry when ScheduledFor is reached.
type ScheduledEntry struct {
	ID              int64           `json:"id" db:"id"`
	AccountID       int64           `json:"account_id" db:"account_id"`
	CreatedByUserID int64           `json:"created_by_user_id" db:"created_by_user_id"`
	Direction       Direction       `json:"direction" db:"direction"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	Currency        string          `json:"currency" db:"currency"`
	EntryType       string          `json:"entry_type" db:"entry_type"`
	Status          ScheduledStatus `json:"status" db:"status"`
	Reference       *string         `json:"reference,omitempty" db:"reference"`
	Memo            *string         `json:"memo,omitempty" db:"memo"`
	ScheduledFor    time.Time       `json:"scheduled_for" db:"scheduled_for"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	PostedAt        *time.Time      `json:"posted_at,omitempty" db:"posted_at"`
	PostedEntryID   *int64          `json:"posted_entry_id,omitempty" db:"posted_entry_id"`
}

// IsDue reports whether the entry is pending and its time has come.
func (s *ScheduledEntry) IsDue(now time.Time) bool {
	return s.Status == ScheduledStatusPending && !s.ScheduledFor.After(now)
}
