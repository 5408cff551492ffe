package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/openshelf/openshelf/internal/cache"
	"github.com/openshelf/openshelf/internal/models"
)

// PricingPlanRepository defines the interface for plan data access
type PricingPlanRepository interface {
	GetByID(ctx context.Context, id string) (*models.PricingPlan, error)
	ListActive(ctx context.Context) ([]*models.PricingPlan, error)
	ListAll(ctx context.Context) ([]*models.PricingPlan, error)
	Create(ctx context.Context, plan *models.PricingPlan) (*models.PricingPlan, error)
	Update(ctx context.Context, id string, plan *models.PricingPlan) (*models.PricingPlan, error)
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// PlanCache is the subset of the cache the plan service uses.
type PlanCache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// PlanService handles the pricing plan catalog
type PlanService struct {
	repo    PricingPlanRepository
	cache   PlanCache
	planTTL time.Duration
	logger  *slog.Logger
}

func NewPlanService(repo PricingPlanRepository, planCache PlanCache, planTTL time.Duration, logger *slog.Logger) *PlanService {
	if planTTL <= 0 {
		planTTL = cache.DefaultTTL
	}
	return &PlanService{repo: repo, cache: planCache, planTTL: planTTL, logger: logger}
}

func (s *PlanService) GetPlanByID(ctx context.Context, id string) (*models.PricingPlan, error) {
	plan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get plan", slog.String("plan_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return plan, nil
}

// ListPublicPlans returns active plans for the pricing page, served from
// cache when warm. Cache failures fall through to the database.
func (s *PlanService) ListPublicPlans(ctx context.Context) ([]*models.PricingPlan, error) {
	if s.cache != nil {
		var cached []*models.PricingPlan
		hit, err := s.cache.Get(ctx, cache.KeyActivePlans, &cached)
		if err != nil {
			s.logger.Warn("plan cache read failed", slog.Any("error", err))
		} else if hit {
			return cached, nil
		}
	}

	plans, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list plans", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.KeyActivePlans, plans, s.planTTL); err != nil {
			s.logger.Warn("plan cache write failed", slog.Any("error", err))
		}
	}
	return plans, nil
}

// ListAdminPlans returns every plan, with optional case-insensitive
// search over name and description, paginated.
func (s *PlanService) ListAdminPlans(ctx context.Context, search string, page, limit int) ([]*models.PricingPlan, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Error("failed to list plans", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}

	if search != "" {
		needle := strings.ToLower(search)
		filtered := make([]*models.PricingPlan, 0, len(all))
		for _, p := range all {
			if strings.Contains(strings.ToLower(p.Name), needle) ||
				strings.Contains(strings.ToLower(p.Description), needle) {
				filtered = append(filtered, p)
			}
		}
		all = filtered
	}

	total := len(all)
	start := (page - 1) * limit
	if start >= total {
		return []*models.PricingPlan{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *PlanService) validate(plan *models.PricingPlan) error {
	if plan.Name == "" || plan.PriceCents < 0 {
		return models.ErrBadRequest
	}
	if !models.ValidBillingPeriod(plan.BillingPeriod) {
		return models.ErrBadRequest
	}
	if !models.ValidCurrency(plan.Currency) {
		return models.ErrBadRequest
	}
	return nil
}

func (s *PlanService) CreatePlan(ctx context.Context, plan *models.PricingPlan) (*models.PricingPlan, error) {
	if err := s.validate(plan); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, plan)
	if err != nil {
		s.logger.Error("failed to create plan", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.invalidateCache(ctx)
	s.logger.Info("plan created", slog.String("plan_id", created.ID), slog.String("name", created.Name))
	return created, nil
}

func (s *PlanService) UpdatePlan(ctx context.Context, id string, plan *models.PricingPlan) (*models.PricingPlan, error) {
	if err := s.validate(plan); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, plan)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update plan", slog.String("plan_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.invalidateCache(ctx)
	return updated, nil
}

// DeletePlan deactivates by default. Hard delete is only allowed for
// plans nothing references, so in-flight checkouts keep a valid plan row.
func (s *PlanService) DeletePlan(ctx context.Context, id string, hard bool) error {
	var err error
	if hard {
		err = s.repo.Delete(ctx, id)
	} else {
		err = s.repo.Deactivate(ctx, id)
	}
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return models.ErrNotFound
		case errors.Is(err, models.ErrPlanReferenced):
			return models.ErrPlanReferenced
		}
		s.logger.Error("failed to delete plan", slog.String("plan_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.invalidateCache(ctx)
	return nil
}

func (s *PlanService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.KeyActivePlans); err != nil {
		s.logger.Warn("plan cache invalidation failed", slog.Any("error", err))
	}
}
