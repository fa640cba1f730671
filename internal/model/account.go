package model

import (
	"fmt"
	"time"
)

// Account is a login for the HTTP API. Its username is the identity the
// ledger sees when the account acts.
type Account struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Kind         string     `json:"kind"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Account kinds. Admins manage accounts; ledger roles are separate.
const (
	AccountAdmin  = "admin"
	AccountMember = "member"
)

// MinPasswordLength is the shortest password accepted for an account.
const MinPasswordLength = 8

// ValidAccountKind reports whether kind is a known account kind.
func ValidAccountKind(kind string) bool {
	return kind == AccountAdmin || kind == AccountMember
}

// ValidatePassword checks the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
