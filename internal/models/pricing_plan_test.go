package models

import (
	"testing"
	"time"
)

func TestPricingPlan_FormattedPrice(t *testing.T) {
	tests := []struct {
		name     string
		plan     PricingPlan
		expected string
	}{
		{"usd", PricingPlan{PriceCents: 1999, Currency: "USD"}, "$19.99"},
		{"whole dollars", PricingPlan{PriceCents: 2000, Currency: "USD"}, "$20.00"},
		{"eur", PricingPlan{PriceCents: 999, Currency: "EUR"}, "€9.99"},
		{"bdt", PricingPlan{PriceCents: 50000, Currency: "BDT"}, "৳500.00"},
		{"unknown currency falls back to code", PricingPlan{PriceCents: 1050, Currency: "CHF"}, "CHF 10.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.plan.FormattedPrice(); got != tt.expected {
				t.Errorf("FormattedPrice() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPricingPlan_AccessDuration(t *testing.T) {
	if got := (&PricingPlan{BillingPeriod: BillingMonthly}).AccessDuration(); got != 30*24*time.Hour {
		t.Errorf("monthly: got %v", got)
	}
	if got := (&PricingPlan{BillingPeriod: BillingYearly}).AccessDuration(); got != 365*24*time.Hour {
		t.Errorf("yearly: got %v", got)
	}
	if got := (&PricingPlan{BillingPeriod: BillingLifetime}).AccessDuration(); got != 0 {
		t.Errorf("lifetime must have no expiry, got %v", got)
	}
}

func TestPricingPlan_IsRecurring(t *testing.T) {
	if !(&PricingPlan{BillingPeriod: BillingMonthly}).IsRecurring() {
		t.Error("monthly is recurring")
	}
	if !(&PricingPlan{BillingPeriod: BillingYearly}).IsRecurring() {
		t.Error("yearly is recurring")
	}
	if (&PricingPlan{BillingPeriod: BillingLifetime}).IsRecurring() {
		t.Error("lifetime is a one-time charge")
	}
}

func TestValidBillingPeriod(t *testing.T) {
	for _, period := range []string{BillingMonthly, BillingYearly, BillingLifetime} {
		if !ValidBillingPeriod(period) {
			t.Errorf("%q should be valid", period)
		}
	}
	for _, period := range []string{"", "weekly", "Monthly"} {
		if ValidBillingPeriod(period) {
			t.Errorf("%q should be invalid", period)
		}
	}
}
