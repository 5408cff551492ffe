package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openshelf/openshelf/internal/models"
	"github.com/openshelf/openshelf/internal/repositories"
)

// SeedPlan inserts an active monthly plan and returns it
func SeedPlan(ctx context.Context, planRepo *repositories.PricingPlanRepository, name string) (*models.PricingPlan, error) {
	return planRepo.Create(ctx, &models.PricingPlan{
		Name:          name,
		Description:   "Full catalog access",
		PriceCents:    1999,
		Currency:      "USD",
		BillingPeriod: models.BillingMonthly,
		IsActive:      true,
	})
}

// SeedConfirmedPayment records a confirmed payment for a plan and
// returns the stored row
func SeedConfirmedPayment(ctx context.Context, paymentRepo *repositories.PaymentRepository, planID, email string) (*models.Payment, error) {
	payment := &models.Payment{
		Provider:        models.ProviderMock,
		ProviderRef:     "ref-" + uuid.New().String(),
		ProviderEventID: "evt-" + uuid.New().String(),
		TransactionID:   "txn-" + uuid.New().String(),
		OrderID:         uuid.New().String(),
		PlanID:          planID,
		BillingPeriod:   models.BillingMonthly,
		AmountCents:     1999,
		Currency:        "USD",
		CustomerEmail:   email,
		Status:          models.PaymentStatusConfirmed,
	}

	stored, inserted, err := paymentRepo.RecordConfirmed(ctx, payment)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, fmt.Errorf("expected fresh payment insert")
	}
	return stored, nil
}

// UniqueEmail generates a unique test address
func UniqueEmail(suffix string) string {
	return fmt.Sprintf("test-%d-%s@example.com", time.Now().UnixNano(), suffix)
}
