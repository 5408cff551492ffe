package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/models"
)

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{pool: db.Pool}
}

const paymentColumns = `id, provider, provider_ref, provider_event_id, transaction_id, order_id,
	plan_id, billing_period, amount_cents, currency, customer_email, status, raw_payload, created_at, updated_at`

func scanPaymentRow(scanner rowScanner) (*models.Payment, error) {
	var p models.Payment
	err := scanner.Scan(
		&p.ID, &p.Provider, &p.ProviderRef, &p.ProviderEventID, &p.TransactionID, &p.OrderID,
		&p.PlanID, &p.BillingPeriod, &p.AmountCents, &p.Currency, &p.CustomerEmail,
		&p.Status, &p.RawPayload, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &p, nil
}

func scanPaymentRows(rows pgx.Rows) ([]*models.Payment, error) {
	defer rows.Close()

	payments := make([]*models.Payment, 0)
	for rows.Next() {
		p, err := scanPaymentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return payments, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return scanPaymentRow(r.pool.QueryRow(ctx, query, id))
}

func (r *PaymentRepository) GetByProviderEvent(ctx context.Context, provider, providerEventID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider = $1 AND provider_event_id = $2`
	return scanPaymentRow(r.pool.QueryRow(ctx, query, provider, providerEventID))
}

// RecordConfirmed upserts a confirmed payment keyed on
// (provider, provider_event_id). The webhook and the success redirect may
// both report the same event; whichever lands second becomes a no-op and
// gets the already-stored row back, with inserted = false.
func (r *PaymentRepository) RecordConfirmed(ctx context.Context, p *models.Payment) (*models.Payment, bool, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Status = models.PaymentStatusConfirmed

	query := `
		INSERT INTO payments (id, provider, provider_ref, provider_event_id, transaction_id, order_id,
			plan_id, billing_period, amount_cents, currency, customer_email, status, raw_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (provider, provider_event_id) DO NOTHING
		RETURNING ` + paymentColumns

	stored, err := scanPaymentRow(r.pool.QueryRow(ctx, query,
		p.ID, p.Provider, p.ProviderRef, p.ProviderEventID, p.TransactionID, p.OrderID,
		p.PlanID, p.BillingPeriod, p.AmountCents, p.Currency, p.CustomerEmail,
		p.Status, p.RawPayload, p.CreatedAt, p.UpdatedAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}

	// The conflict path: fetch the row the earlier arrival stored.
	existing, err := r.GetByProviderEvent(ctx, p.Provider, p.ProviderEventID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// List returns a page of payments, newest first, optionally filtered by
// provider and/or status.
func (r *PaymentRepository) List(ctx context.Context, provider, status string, limit, offset int) ([]*models.Payment, int, error) {
	where := `WHERE ($1 = '' OR provider = $1) AND ($2 = '' OR status = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments `+where, provider, status).Scan(&total); err != nil {
		return nil, 0, database.MapPostgresError(err)
	}

	query := `SELECT ` + paymentColumns + ` FROM payments ` + where + ` ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, query, provider, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query payments: %w", err)
	}

	payments, err := scanPaymentRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
