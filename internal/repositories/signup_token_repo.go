package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/models"
)

type SignupTokenRepository struct {
	pool *pgxpool.Pool
}

func NewSignupTokenRepository(db *database.DB) *SignupTokenRepository {
	return &SignupTokenRepository{pool: db.Pool}
}

func (r *SignupTokenRepository) Create(ctx context.Context, token *models.SignupToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO signup_tokens (id, jti, payment_id, email, plan_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		token.ID, token.JTI, token.PaymentID, token.Email, token.PlanID,
		token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

func (r *SignupTokenRepository) GetByJTI(ctx context.Context, jti string) (*models.SignupToken, error) {
	query := `
		SELECT id, jti, payment_id, email, plan_id, expires_at, used_at, created_at
		FROM signup_tokens
		WHERE jti = $1`

	var token models.SignupToken
	err := r.pool.QueryRow(ctx, query, jti).Scan(
		&token.ID, &token.JTI, &token.PaymentID, &token.Email, &token.PlanID,
		&token.ExpiresAt, &token.UsedAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &token, nil
}

// Consume marks the token used. Exactly one token per payment can ever
// be consumed: the used_at guard serializes retries on one jti, the
// subquery rejects siblings of an already-consumed payment, and the
// partial unique index on (payment_id) WHERE used_at IS NOT NULL breaks
// the tie when two different tokens for the same payment race past the
// subquery under READ COMMITTED. All three paths surface as
// ErrTokenUsed.
func (r *SignupTokenRepository) Consume(ctx context.Context, jti string) error {
	query := `
		UPDATE signup_tokens SET used_at = NOW()
		WHERE jti = $1 AND used_at IS NULL
		AND NOT EXISTS (
			SELECT 1 FROM signup_tokens used
			WHERE used.payment_id = signup_tokens.payment_id AND used.used_at IS NOT NULL
		)`

	result, err := r.pool.Exec(ctx, query, jti)
	if err != nil {
		if errors.Is(database.MapPostgresError(err), models.ErrConflict) {
			return models.ErrTokenUsed
		}
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrTokenUsed
	}
	return nil
}

func (r *SignupTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM signup_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired signup tokens: %w", err)
	}
	return result.RowsAffected(), nil
}
