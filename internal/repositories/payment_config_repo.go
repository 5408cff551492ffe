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

type PaymentConfigRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentConfigRepository(db *database.DB) *PaymentConfigRepository {
	return &PaymentConfigRepository{pool: db.Pool}
}

const paymentConfigColumns = `id, provider, environment, publishable_key, secret_key,
	client_id, client_secret, webhook_secret, webhook_id, is_active, created_at, updated_at`

func scanPaymentConfigRow(scanner rowScanner) (*models.PaymentConfig, error) {
	var cfg models.PaymentConfig
	err := scanner.Scan(
		&cfg.ID, &cfg.Provider, &cfg.Environment, &cfg.PublishableKey, &cfg.SecretKey,
		&cfg.ClientID, &cfg.ClientSecret, &cfg.WebhookSecret, &cfg.WebhookID,
		&cfg.IsActive, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &cfg, nil
}

func (r *PaymentConfigRepository) GetByID(ctx context.Context, id string) (*models.PaymentConfig, error) {
	query := `SELECT ` + paymentConfigColumns + ` FROM payment_configs WHERE id = $1`
	return scanPaymentConfigRow(r.pool.QueryRow(ctx, query, id))
}

// GetActive returns the single active configuration for a provider in
// the given environment. The partial unique index guarantees at most one.
func (r *PaymentConfigRepository) GetActive(ctx context.Context, provider, environment string) (*models.PaymentConfig, error) {
	query := `SELECT ` + paymentConfigColumns + ` FROM payment_configs WHERE provider = $1 AND environment = $2 AND is_active`
	return scanPaymentConfigRow(r.pool.QueryRow(ctx, query, provider, environment))
}

func (r *PaymentConfigRepository) List(ctx context.Context) ([]*models.PaymentConfig, error) {
	query := `SELECT ` + paymentConfigColumns + ` FROM payment_configs ORDER BY provider, environment, created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment configs: %w", err)
	}
	defer rows.Close()

	configs := make([]*models.PaymentConfig, 0)
	for rows.Next() {
		cfg, err := scanPaymentConfigRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment config: %w", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return configs, nil
}

func (r *PaymentConfigRepository) Create(ctx context.Context, cfg *models.PaymentConfig) (*models.PaymentConfig, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	now := time.Now()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	query := `
		INSERT INTO payment_configs (id, provider, environment, publishable_key, secret_key,
			client_id, client_secret, webhook_secret, webhook_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + paymentConfigColumns

	return scanPaymentConfigRow(r.pool.QueryRow(ctx, query,
		cfg.ID, cfg.Provider, cfg.Environment, cfg.PublishableKey, cfg.SecretKey,
		cfg.ClientID, cfg.ClientSecret, cfg.WebhookSecret, cfg.WebhookID,
		cfg.IsActive, cfg.CreatedAt, cfg.UpdatedAt,
	))
}

// Update applies a partial update. Empty secret fields keep the stored
// value so admins can edit settings without re-entering credentials.
func (r *PaymentConfigRepository) Update(ctx context.Context, id string, cfg *models.PaymentConfig) (*models.PaymentConfig, error) {
	query := `
		UPDATE payment_configs
		SET publishable_key = COALESCE(NULLIF($1, ''), publishable_key),
			secret_key = COALESCE(NULLIF($2, ''), secret_key),
			client_id = COALESCE(NULLIF($3, ''), client_id),
			client_secret = COALESCE(NULLIF($4, ''), client_secret),
			webhook_secret = COALESCE(NULLIF($5, ''), webhook_secret),
			webhook_id = COALESCE(NULLIF($6, ''), webhook_id),
			updated_at = NOW()
		WHERE id = $7
		RETURNING ` + paymentConfigColumns

	return scanPaymentConfigRow(r.pool.QueryRow(ctx, query,
		cfg.PublishableKey, cfg.SecretKey, cfg.ClientID, cfg.ClientSecret,
		cfg.WebhookSecret, cfg.WebhookID, id,
	))
}

// Activate makes the given config the active one for its provider and
// environment, deactivating any sibling inside a single transaction.
func (r *PaymentConfigRepository) Activate(ctx context.Context, id string) (*models.PaymentConfig, error) {
	var cfg *models.PaymentConfig
	err := database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		var provider, environment string
		err := tx.QueryRow(ctx, `SELECT provider, environment FROM payment_configs WHERE id = $1`, id).
			Scan(&provider, &environment)
		if err != nil {
			return database.MapPostgresError(err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE payment_configs SET is_active = FALSE, updated_at = NOW()
			 WHERE provider = $1 AND environment = $2 AND is_active AND id <> $3`,
			provider, environment, id)
		if err != nil {
			return database.MapPostgresError(err)
		}

		cfg, err = scanPaymentConfigRow(tx.QueryRow(ctx,
			`UPDATE payment_configs SET is_active = TRUE, updated_at = NOW() WHERE id = $1 RETURNING `+paymentConfigColumns, id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *PaymentConfigRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE payment_configs SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *PaymentConfigRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM payment_configs WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
