package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openshelf/openshelf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activePlan(id, name string) *models.PricingPlan {
	return &models.PricingPlan{
		ID:            id,
		Name:          name,
		PriceCents:    1999,
		Currency:      "USD",
		BillingPeriod: models.BillingMonthly,
		IsActive:      true,
	}
}

func TestPlanHandler_ListPublicPlans_IncludesProviders(t *testing.T) {
	service := &MockPlanService{
		ListPublicPlansFunc: func(ctx context.Context) ([]*models.PricingPlan, error) {
			return []*models.PricingPlan{activePlan("plan1", "Premium")}, nil
		},
	}
	providers := &MockProviderLister{
		EnabledProvidersFunc: func(ctx context.Context, environment string, mockEnabled bool) ([]string, error) {
			assert.Equal(t, models.EnvironmentSandbox, environment)
			assert.True(t, mockEnabled)
			return []string{"stripe", "mock"}, nil
		},
	}
	h := NewPlanHandler(service, providers, models.EnvironmentSandbox, true)

	r := httptest.NewRequest(http.MethodGet, "/api/plans", nil)
	w := httptest.NewRecorder()
	h.ListPublicPlans(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var resp PublicPlansResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Plans, 1)
	assert.Equal(t, []string{"stripe", "mock"}, resp.Providers)
}

func TestPlanHandler_ListPublicPlans_ProviderLookupFailureStillServesPlans(t *testing.T) {
	service := &MockPlanService{
		ListPublicPlansFunc: func(ctx context.Context) ([]*models.PricingPlan, error) {
			return []*models.PricingPlan{activePlan("plan1", "Premium")}, nil
		},
	}
	providers := &MockProviderLister{
		EnabledProvidersFunc: func(ctx context.Context, environment string, mockEnabled bool) ([]string, error) {
			return nil, models.ErrInternalServer
		},
	}
	h := NewPlanHandler(service, providers, models.EnvironmentSandbox, false)

	r := httptest.NewRequest(http.MethodGet, "/api/plans", nil)
	w := httptest.NewRecorder()
	h.ListPublicPlans(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var resp PublicPlansResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Plans, 1)
	assert.Empty(t, resp.Providers)
}

func TestPlanHandler_CreatePlan_Validation(t *testing.T) {
	h := NewPlanHandler(&MockPlanService{}, nil, models.EnvironmentSandbox, false)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"price_cents":1999,"currency":"USD","billing_period":"monthly"}`},
		{"negative price", `{"name":"Premium","price_cents":-1,"currency":"USD","billing_period":"monthly"}`},
		{"bad billing period", `{"name":"Premium","price_cents":1999,"currency":"USD","billing_period":"weekly"}`},
		{"bad currency length", `{"name":"Premium","price_cents":1999,"currency":"DOLLARS","billing_period":"monthly"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, h.CreatePlan, "/api/admin/plans", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestPlanHandler_CreatePlan_UppercasesCurrency(t *testing.T) {
	var created *models.PricingPlan
	service := &MockPlanService{
		CreatePlanFunc: func(ctx context.Context, plan *models.PricingPlan) (*models.PricingPlan, error) {
			created = plan
			plan.ID = "plan1"
			return plan, nil
		},
	}
	h := NewPlanHandler(service, nil, models.EnvironmentSandbox, false)

	w := postJSON(t, h.CreatePlan, "/api/admin/plans",
		`{"name":"Premium","price_cents":1999,"currency":"usd","billing_period":"monthly"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "USD", created.Currency)
}
