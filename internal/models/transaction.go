package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a legacy per-account activity row. It predates the ledger and
// carries no balance semantics; it is kept for history and removed together
// with its account.
type Transaction struct {
	ID          int64           `json:"id" db:"id"`
	AccountID   int64           `json:"account_id" db:"account_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Currency    string          `json:"currency" db:"currency"`
	Description *string         `json:"description,omitempty" db:"description"`
	Category    *string         `json:"category,omitempty" db:"category"`
	Status      string          `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
