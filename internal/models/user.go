package models

import (
	"time"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User statuses
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string // NULL until the account is activated
	Name         string
	Phone        string
	Role         string // "user", "admin"
	Status       string // "pending", "active", "inactive"
	PlanID       *string
	ExpiresAt    *time.Time // Access expiry; nil means no expiry
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsExpired reports whether the account's access window has lapsed.
func (u *User) IsExpired() bool {
	return u.ExpiresAt != nil && u.ExpiresAt.Before(time.Now())
}

// CanAuthenticate checks the status/expiry invariant: a user that is not
// active, or whose expiry date has passed, is denied all authenticated
// access regardless of a valid session token.
func (u *User) CanAuthenticate() error {
	switch u.Status {
	case StatusActive:
		// fall through to expiry check
	case StatusPending:
		return ErrAccountPending
	default:
		return ErrAccountInactive
	}

	if u.IsExpired() {
		return ErrAccountExpired
	}
	return nil
}
