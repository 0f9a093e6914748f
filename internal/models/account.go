package models

import "time"

// Account types. The set is open; only trust accounts may have children.
const (
	AccountTypePersonal      = "personal"
	AccountTypeTrust         = "trust"
	AccountTypeEntity        = "entity"
	AccountTypeVault         = "vault"
	AccountTypeWealthBuilder = "wealth_builder"
)

type Account struct {
	ID              int64     `json:"id" db:"id"`
	OwnerUserID     int64     `json:"owner_user_id" db:"owner_user_id"`
	ParentAccountID *int64    `json:"parent_account_id,omitempty" db:"parent_account_id"`
	Name            string    `json:"name" db:"name"`
	AccountType     string    `json:"account_type" db:"account_type"`
	LegalName       *string   `json:"legal_name,omitempty" db:"legal_name"`
	Jurisdiction    *string   `json:"jurisdiction,omitempty" db:"jurisdiction"`
	Notes           *string   `json:"notes,omitempty" db:"notes"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// IsTrust reports whether balances of direct children roll up into this account.
func (a *Account) IsTrust() bool {
	return a.AccountType == AccountTypeTrust
}
