package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignupClaims are the claims embedded in a signup token: a short-lived,
// single-use credential binding a confirmed payment to one future account
// creation. Signed HS256 with a dedicated secret.
type SignupClaims struct {
	CustomerEmail string `json:"customer_email"`
	AmountCents   int    `json:"amount_cents"`
	Currency      string `json:"currency"`
	PlanID        string `json:"plan_id"`
	BillingPeriod string `json:"billing_period"`
	Provider      string `json:"provider"`
	OrderID       string `json:"order_id"`
	PaymentID     string `json:"payment_id"`
	jwt.RegisteredClaims
}

// SignupToken tracks a minted token by its JTI so consumption can be a
// single conditional update. The signed string itself is never stored.
type SignupToken struct {
	ID        string
	JTI       string
	PaymentID string
	Email     string
	PlanID    string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (t *SignupToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *SignupToken) IsUsed() bool {
	return t.UsedAt != nil
}
