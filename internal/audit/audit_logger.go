// Package audit writes an append-only trail of ledger mutations to a
// dedicated zap logger.
package audit

import (
	"time"

	"go.uber.org/zap"
)

const (
	EventEntryPosted       = "ENTRY_POSTED"
	EventEntryReplayed     = "ENTRY_REPLAYED"
	EventTransfer          = "TRANSFER"
	EventScheduledPromoted = "SCHEDULED_PROMOTED"
	EventAccountDeleted    = "ACCOUNT_DELETED"
	EventError             = "ERROR"
)

type Event struct {
	Timestamp time.Time
	EventType string
	ActorID   int64
	AccountID int64
	EntryID   int64
	Amount    string
	Currency  string
	Status    string
	Details   map[string]any
}

type Logger struct {
	log *zap.Logger
	now func() time.Time
}

// NewLogger returns an audit logger writing through log. A nil log discards,
// as does a nil *Logger.
func NewLogger(log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{log: log.Named("audit"), now: time.Now}
}

func (a *Logger) LogEntryPosted(actorID, accountID, entryID int64, direction, amount, currency string) {
	a.write(Event{
		EventType: EventEntryPosted,
		ActorID:   actorID,
		AccountID: accountID,
		EntryID:   entryID,
		Amount:    amount,
		Currency:  currency,
		Status:    "SUCCESS",
		Details:   map[string]any{"direction": direction},
	})
}

// LogReplay records an idempotent request that returned an existing entry.
func (a *Logger) LogReplay(actorID, accountID, entryID int64, key string) {
	a.write(Event{
		EventType: EventEntryReplayed,
		ActorID:   actorID,
		AccountID: accountID,
		EntryID:   entryID,
		Status:    "SUCCESS",
		Details:   map[string]any{"idempotency_key": key},
	})
}

func (a *Logger) LogTransfer(actorID int64, transferID string, fromAccount, toAccount int64, amount, currency string) {
	a.write(Event{
		EventType: EventTransfer,
		ActorID:   actorID,
		AccountID: fromAccount,
		Amount:    amount,
		Currency:  currency,
		Status:    "SUCCESS",
		Details: map[string]any{
			"transfer_id":  transferID,
			"from_account": fromAccount,
			"to_account":   toAccount,
		},
	})
}

func (a *Logger) LogScheduledPromoted(scheduledID, accountID, entryID int64) {
	a.write(Event{
		EventType: EventScheduledPromoted,
		AccountID: accountID,
		EntryID:   entryID,
		Status:    "SUCCESS",
		Details:   map[string]any{"scheduled_entry_id": scheduledID},
	})
}

func (a *Logger) LogAccountDeleted(actorID int64, accountIDs []int64, ledgerEntries int64) {
	a.write(Event{
		EventType: EventAccountDeleted,
		ActorID:   actorID,
		Status:    "SUCCESS",
		Details: map[string]any{
			"account_ids":    accountIDs,
			"ledger_entries": ledgerEntries,
		},
	})
}

func (a *Logger) LogError(actorID, accountID int64, operation string, err error) {
	a.write(Event{
		EventType: EventError,
		ActorID:   actorID,
		AccountID: accountID,
		Status:    "FAILED",
		Details:   map[string]any{"operation": operation, "error": err.Error()},
	})
}

func (a *Logger) write(e Event) {
	if a == nil {
		return
	}
	e.Timestamp = a.now()
	fields := []zap.Field{
		zap.Time("timestamp", e.Timestamp),
		zap.String("event_type", e.EventType),
		zap.String("status", e.Status),
	}
	if e.ActorID != 0 {
		fields = append(fields, zap.Int64("actor_id", e.ActorID))
	}
	if e.AccountID != 0 {
		fields = append(fields, zap.Int64("account_id", e.AccountID))
	}
	if e.EntryID != 0 {
		fields = append(fields, zap.Int64("entry_id", e.EntryID))
	}
	if e.Amount != "" {
		fields = append(fields, zap.String("amount", e.Amount), zap.String("currency", e.Currency))
	}
	if len(e.Details) > 0 {
		fields = append(fields, zap.Any("details", e.Details))
	}
	a.log.Info("AUDIT", fields...)
}
