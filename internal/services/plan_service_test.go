package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/openshelf/openshelf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryPlanCache is an in-process stand-in for the redis cache.
type memoryPlanCache struct {
	plans   []*models.PricingPlan
	warm    bool
	gets    int
	sets    int
	invalid int
	failing bool
}

func (c *memoryPlanCache) Get(ctx context.Context, key string, result any) (bool, error) {
	c.gets++
	if c.failing {
		return false, errors.New("connection refused")
	}
	if !c.warm {
		return false, nil
	}
	*(result.(*[]*models.PricingPlan)) = c.plans
	return true, nil
}

func (c *memoryPlanCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.sets++
	if c.failing {
		return errors.New("connection refused")
	}
	c.plans = value.([]*models.PricingPlan)
	c.warm = true
	return nil
}

func (c *memoryPlanCache) Invalidate(ctx context.Context, key string) error {
	c.invalid++
	c.warm = false
	c.plans = nil
	return nil
}

func newPlanService(repo PricingPlanRepository, planCache PlanCache) *PlanService {
	return NewPlanService(repo, planCache, 5*time.Minute, slog.Default())
}

func TestPlanService_ListPublicPlans_PopulatesCache(t *testing.T) {
	listCalls := 0
	repo := &MockPricingPlanRepository{
		ListActiveFunc: func(ctx context.Context) ([]*models.PricingPlan, error) {
			listCalls++
			return []*models.PricingPlan{NewTestPlan("plan1", 1999)}, nil
		},
	}
	planCache := &memoryPlanCache{}
	svc := newPlanService(repo, planCache)

	first, err := svc.ListPublicPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, listCalls)
	assert.Equal(t, 1, planCache.sets)

	second, err := svc.ListPublicPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, listCalls, "second read is served from cache")
}

func TestPlanService_ListPublicPlans_CacheFailureFallsThrough(t *testing.T) {
	repo := &MockPricingPlanRepository{
		ListActiveFunc: func(ctx context.Context) ([]*models.PricingPlan, error) {
			return []*models.PricingPlan{NewTestPlan("plan1", 1999)}, nil
		},
	}
	svc := newPlanService(repo, &memoryPlanCache{failing: true})

	plans, err := svc.ListPublicPlans(context.Background())
	require.NoError(t, err, "a broken cache never breaks the pricing page")
	assert.Len(t, plans, 1)
}

func TestPlanService_ListPublicPlans_NilCache(t *testing.T) {
	repo := &MockPricingPlanRepository{
		ListActiveFunc: func(ctx context.Context) ([]*models.PricingPlan, error) {
			return []*models.PricingPlan{NewTestPlan("plan1", 1999)}, nil
		},
	}
	svc := newPlanService(repo, nil)

	plans, err := svc.ListPublicPlans(context.Background())
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestPlanService_MutationsInvalidateCache(t *testing.T) {
	repo := &MockPricingPlanRepository{
		CreateFunc: func(ctx context.Context, plan *models.PricingPlan) (*models.PricingPlan, error) {
			plan.ID = "plan2"
			return plan, nil
		},
		UpdateFunc: func(ctx context.Context, id string, plan *models.PricingPlan) (*models.PricingPlan, error) {
			return plan, nil
		},
		DeactivateFunc: func(ctx context.Context, id string) error { return nil },
	}
	planCache := &memoryPlanCache{warm: true, plans: []*models.PricingPlan{NewTestPlan("plan1", 1999)}}
	svc := newPlanService(repo, planCache)

	_, err := svc.CreatePlan(context.Background(), NewTestPlan("", 2999))
	require.NoError(t, err)
	_, err = svc.UpdatePlan(context.Background(), "plan2", NewTestPlan("plan2", 3999))
	require.NoError(t, err)
	require.NoError(t, svc.DeletePlan(context.Background(), "plan2", false))

	assert.Equal(t, 3, planCache.invalid)
	assert.False(t, planCache.warm)
}

func TestPlanService_CreatePlan_Validation(t *testing.T) {
	svc := newPlanService(&MockPricingPlanRepository{}, nil)

	tests := []struct {
		name   string
		mutate func(*models.PricingPlan)
	}{
		{"empty name", func(p *models.PricingPlan) { p.Name = "" }},
		{"negative price", func(p *models.PricingPlan) { p.PriceCents = -1 }},
		{"bad billing period", func(p *models.PricingPlan) { p.BillingPeriod = "weekly" }},
		{"bad currency", func(p *models.PricingPlan) { p.Currency = "doubloons" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan := NewTestPlan("", 1999)
			tc.mutate(plan)
			_, err := svc.CreatePlan(context.Background(), plan)
			assert.ErrorIs(t, err, models.ErrBadRequest)
		})
	}
}

func TestPlanService_ListAdminPlans_SearchAndPaging(t *testing.T) {
	plans := []*models.PricingPlan{}
	for _, name := range []string{"Basic Monthly", "Premium Monthly", "Premium Yearly", "Lifetime"} {
		p := NewTestPlan("plan-"+name, 1999)
		p.Name = name
		plans = append(plans, p)
	}
	repo := &MockPricingPlanRepository{
		ListAllFunc: func(ctx context.Context) ([]*models.PricingPlan, error) {
			return plans, nil
		},
	}
	svc := newPlanService(repo, nil)

	matched, total, err := svc.ListAdminPlans(context.Background(), "premium", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, matched, 2)
	assert.Equal(t, "Premium Monthly", matched[0].Name)

	page2, total, err := svc.ListAdminPlans(context.Background(), "", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, page2, 1)
	assert.Equal(t, "Lifetime", page2[0].Name)

	empty, total, err := svc.ListAdminPlans(context.Background(), "", 9, 20)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, empty)
}

func TestPlanService_DeletePlan_ReferencedPlanSurvivesHardDelete(t *testing.T) {
	repo := &MockPricingPlanRepository{
		DeleteFunc: func(ctx context.Context, id string) error {
			return models.ErrPlanReferenced
		},
	}
	svc := newPlanService(repo, nil)

	err := svc.DeletePlan(context.Background(), "plan1", true)
	assert.ErrorIs(t, err, models.ErrPlanReferenced)
}
