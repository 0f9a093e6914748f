package models

// Role of an authenticated user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a claim value onto a Role. Unknown values are plain users.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// User is the verified identity handed to the ledger by the auth layer.
type User struct {
	ID        int64  `json:"id" example:"1"`
	Email     string `json:"email,omitempty" example:"user@example.com"`
	Role      Role   `json:"role" example:"user"`
	IsPremium bool   `json:"is_premium"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasPremium reports whether premium-gated features are unlocked. Admins
// always have them.
func (u *User) HasPremium() bool {
	return u != nil && (u.IsAdmin() || u.IsPremium)
}
