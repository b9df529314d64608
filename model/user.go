package model

import "time"

// User roles. Admin replaces the old hardcoded allowlist; it gates the
// dataset export endpoints.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account. Coin balances are not stored here;
// the ledger in Redis is authoritative.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // not exposed in API responses
	Avatar       string    `json:"avatar,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
