// Package events fans ledger changes out over Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const LedgerEventsChannel = "ledger_events"

const (
	TypeEntryPosted     = "ledger.entry_posted"
	TypeTransferCreated = "ledger.transfer_created"
	TypeScheduledPosted = "ledger.scheduled_posted"
	TypeAccountDeleted  = "ledger.account_deleted"
)

type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	AccountID  int64          `json:"account_id,omitempty"`
	EntryIDs   []int64        `json:"entry_ids,omitempty"`
	TransferID string         `json:"transfer_id,omitempty"`
	Amount     string         `json:"amount,omitempty"`
	Currency   string         `json:"currency,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Publisher is nil-safe: without a Redis client every publish is a no-op.
type Publisher struct {
	rdb    *redis.Client
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewPublisher(rdb *redis.Client, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{rdb: rdb, logger: logger, now: time.Now, newID: uuid.NewString}
}

// Publish stamps the event and sends it. Delivery failures are returned
// for the caller to log; the ledger change is already committed.
func (p *Publisher) Publish(ctx context.Context, event *Event) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	event.ID = p.newID()
	event.Timestamp = p.now().UTC()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.rdb.Publish(ctx, LedgerEventsChannel, string(payload)).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published ledger event", zap.String("type", event.Type), zap.String("id", event.ID))
	return nil
}
