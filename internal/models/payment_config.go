package models

import (
	"time"
)

// Payment providers
const (
	ProviderStripe = "stripe"
	ProviderPaypal = "paypal"
	ProviderMock   = "mock"
)

// Payment environments
const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"
)

// PaymentConfig holds per-provider credentials managed by administrators.
// At most one config per (provider, environment) may be active at a time.
type PaymentConfig struct {
	ID             string
	Provider       string // "stripe", "paypal"
	Environment    string // "sandbox", "production"
	PublishableKey string // stripe only
	SecretKey      string // stripe only, write-only
	ClientID       string // paypal only
	ClientSecret   string // paypal only, write-only
	WebhookSecret  string // write-only
	WebhookID      string // paypal only
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Sanitized returns a copy with every secret field blanked. Secrets are
// write-only: they are never returned to a client after creation.
func (c *PaymentConfig) Sanitized() *PaymentConfig {
	out := *c
	out.SecretKey = ""
	out.ClientSecret = ""
	out.WebhookSecret = ""
	return &out
}

// RelevantFieldsOnly reports whether only the credential fields that apply
// to the config's provider are populated.
func (c *PaymentConfig) RelevantFieldsOnly() bool {
	switch c.Provider {
	case ProviderStripe:
		return c.ClientID == "" && c.ClientSecret == "" && c.WebhookID == ""
	case ProviderPaypal:
		return c.PublishableKey == "" && c.SecretKey == ""
	default:
		return false
	}
}
