package models

import "time"

// Payment statuses
const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment records a provider transaction. Rows are keyed on
// (provider, provider_event_id) so webhook redelivery and the
// webhook-vs-redirect race collapse into a single confirmed record.
type Payment struct {
	ID              string
	Provider        string
	ProviderRef     string // checkout session / order id at the provider
	ProviderEventID string // webhook event id or reconciled transaction id
	TransactionID   string
	OrderID         string
	PlanID          string
	BillingPeriod   string
	AmountCents     int
	Currency        string
	CustomerEmail   string
	Status          string
	RawPayload      []byte // provider payload as received, for reconciliation
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
