package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims carried by session access/refresh tokens.
type TokenClaims struct {
	Type   string `json:"type"` // "access" or "refresh"
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// InviteToken is a single-use credential mailed to a user by an admin.
// Only the SHA-256 hash of the token is stored.
type InviteToken struct {
	ID        string
	UserID    string
	TokenHash string
	Email     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (t *InviteToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *InviteToken) IsUsed() bool {
	return t.UsedAt != nil
}

// PasswordResetToken follows the same hash-at-rest, single-use scheme.
type PasswordResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	Email     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (t *PasswordResetToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *PasswordResetToken) IsUsed() bool {
	return t.UsedAt != nil
}
