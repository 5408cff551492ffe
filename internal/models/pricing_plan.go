package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Billing periods
const (
	BillingMonthly  = "monthly"
	BillingYearly   = "yearly"
	BillingLifetime = "lifetime"
)

// PlanFeature is one line item in a plan's feature list.
type PlanFeature struct {
	Name     string `json:"name"`
	Included bool   `json:"included"`
	Limit    string `json:"limit,omitempty"`
}

// PlanFeatures is stored as an ordered JSONB array.
type PlanFeatures []PlanFeature

// Scan implements sql.Scanner for JSONB
func (pf *PlanFeatures) Scan(value interface{}) error {
	if value == nil {
		*pf = PlanFeatures{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}
	return json.Unmarshal(bytes, pf)
}

// Value implements driver.Valuer for JSONB
func (pf PlanFeatures) Value() (driver.Value, error) {
	if pf == nil {
		return json.Marshal(PlanFeatures{})
	}
	return json.Marshal(pf)
}

// PricingPlan is an admin-defined subscription tier. Prices are stored in
// minor units (cents) to avoid floating-point drift.
type PricingPlan struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	PriceCents    int          `json:"price_cents"`
	Currency      string       `json:"currency"`
	BillingPeriod string       `json:"billing_period"` // "monthly", "yearly", "lifetime"
	Features      PlanFeatures `json:"features"`
	IsPopular     bool         `json:"is_popular"`
	IsActive      bool         `json:"is_active"`
	SortOrder     int          `json:"sort_order"`
	ButtonText    string       `json:"button_text"`
	ButtonLink    string       `json:"button_link"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"BDT": "৳",
	"INR": "₹",
}

// FormattedPrice renders a display string such as "$9.99".
func (p *PricingPlan) FormattedPrice() string {
	symbol, ok := currencySymbols[p.Currency]
	if !ok {
		symbol = p.Currency + " "
	}
	return fmt.Sprintf("%s%d.%02d", symbol, p.PriceCents/100, p.PriceCents%100)
}

// IsRecurring reports whether checkout should use the subscription code
// path rather than a one-time charge.
func (p *PricingPlan) IsRecurring() bool {
	return p.BillingPeriod == BillingMonthly || p.BillingPeriod == BillingYearly
}

// AccessDuration returns how long a paid account stays entitled. Lifetime
// plans return 0, which callers treat as "no expiry".
func (p *PricingPlan) AccessDuration() time.Duration {
	switch p.BillingPeriod {
	case BillingMonthly:
		return 30 * 24 * time.Hour
	case BillingYearly:
		return 365 * 24 * time.Hour
	default:
		return 0
	}
}

// ValidBillingPeriod reports whether s is a known billing period.
func ValidBillingPeriod(s string) bool {
	switch s {
	case BillingMonthly, BillingYearly, BillingLifetime:
		return true
	}
	return false
}

// ValidCurrency reports whether the currency is supported for plan pricing.
func ValidCurrency(s string) bool {
	_, ok := currencySymbols[s]
	return ok
}
