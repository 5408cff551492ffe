package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/models"
)

type PricingPlanRepository struct {
	pool *pgxpool.Pool
}

func NewPricingPlanRepository(db *database.DB) *PricingPlanRepository {
	return &PricingPlanRepository{pool: db.Pool}
}

const pricingPlanColumns = `id, name, description, price_cents, currency, billing_period,
	features, is_popular, is_active, sort_order, button_text, button_link, created_at, updated_at`

func scanPricingPlanRow(scanner rowScanner) (*models.PricingPlan, error) {
	var plan models.PricingPlan
	err := scanner.Scan(
		&plan.ID, &plan.Name, &plan.Description, &plan.PriceCents, &plan.Currency,
		&plan.BillingPeriod, &plan.Features, &plan.IsPopular, &plan.IsActive,
		&plan.SortOrder, &plan.ButtonText, &plan.ButtonLink,
		&plan.CreatedAt, &plan.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &plan, nil
}

func scanPricingPlanRows(rows pgx.Rows) ([]*models.PricingPlan, error) {
	defer rows.Close()

	plans := make([]*models.PricingPlan, 0)
	for rows.Next() {
		plan, err := scanPricingPlanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pricing plan: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return plans, nil
}

func (r *PricingPlanRepository) GetByID(ctx context.Context, id string) (*models.PricingPlan, error) {
	query := `SELECT ` + pricingPlanColumns + ` FROM pricing_plans WHERE id = $1`
	return scanPricingPlanRow(r.pool.QueryRow(ctx, query, id))
}

// ListActive returns active plans ordered for public display.
func (r *PricingPlanRepository) ListActive(ctx context.Context) ([]*models.PricingPlan, error) {
	query := `SELECT ` + pricingPlanColumns + ` FROM pricing_plans WHERE is_active ORDER BY sort_order, created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pricing plans: %w", err)
	}
	return scanPricingPlanRows(rows)
}

// ListAll returns every plan including deactivated ones, for admin views.
func (r *PricingPlanRepository) ListAll(ctx context.Context) ([]*models.PricingPlan, error) {
	query := `SELECT ` + pricingPlanColumns + ` FROM pricing_plans ORDER BY sort_order, created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pricing plans: %w", err)
	}
	return scanPricingPlanRows(rows)
}

func (r *PricingPlanRepository) Create(ctx context.Context, plan *models.PricingPlan) (*models.PricingPlan, error) {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	now := time.Now()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	query := `
		INSERT INTO pricing_plans (id, name, description, price_cents, currency, billing_period,
			features, is_popular, is_active, sort_order, button_text, button_link, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + pricingPlanColumns

	return scanPricingPlanRow(r.pool.QueryRow(ctx, query,
		plan.ID, plan.Name, plan.Description, plan.PriceCents, plan.Currency,
		plan.BillingPeriod, plan.Features, plan.IsPopular, plan.IsActive,
		plan.SortOrder, plan.ButtonText, plan.ButtonLink,
		plan.CreatedAt, plan.UpdatedAt,
	))
}

func (r *PricingPlanRepository) Update(ctx context.Context, id string, plan *models.PricingPlan) (*models.PricingPlan, error) {
	query := `
		UPDATE pricing_plans
		SET name = $1, description = $2, price_cents = $3, currency = $4, billing_period = $5,
			features = $6, is_popular = $7, is_active = $8, sort_order = $9,
			button_text = $10, button_link = $11, updated_at = NOW()
		WHERE id = $12
		RETURNING ` + pricingPlanColumns

	return scanPricingPlanRow(r.pool.QueryRow(ctx, query,
		plan.Name, plan.Description, plan.PriceCents, plan.Currency, plan.BillingPeriod,
		plan.Features, plan.IsPopular, plan.IsActive, plan.SortOrder,
		plan.ButtonText, plan.ButtonLink, id,
	))
}

// Deactivate soft-deletes a plan. Existing user references stay valid.
func (r *PricingPlanRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE pricing_plans SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete removes a plan outright. Fails with ErrPlanReferenced when any
// user or payment still points at it.
func (r *PricingPlanRepository) Delete(ctx context.Context, id string) error {
	var referenced bool
	query := `
		SELECT EXISTS(SELECT 1 FROM users WHERE plan_id = $1)
			OR EXISTS(SELECT 1 FROM payments WHERE plan_id = $1)`
	if err := r.pool.QueryRow(ctx, query, id).Scan(&referenced); err != nil {
		return database.MapPostgresError(err)
	}
	if referenced {
		return models.ErrPlanReferenced
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM pricing_plans WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
