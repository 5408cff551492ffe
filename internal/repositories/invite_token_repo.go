package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/models"
)

type InviteTokenRepository struct {
	pool *pgxpool.Pool
}

func NewInviteTokenRepository(db *database.DB) *InviteTokenRepository {
	return &InviteTokenRepository{pool: db.Pool}
}

func (r *InviteTokenRepository) Create(ctx context.Context, token *models.InviteToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO invite_tokens (id, user_id, token_hash, email, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		token.ID, token.UserID, token.TokenHash, token.Email, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

func (r *InviteTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.InviteToken, error) {
	query := `
		SELECT id, user_id, token_hash, email, expires_at, used_at, created_at
		FROM invite_tokens
		WHERE token_hash = $1`

	var token models.InviteToken
	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.Email,
		&token.ExpiresAt, &token.UsedAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &token, nil
}

// MarkAsUsed consumes the token. The used_at guard makes consumption
// atomic: of two concurrent attempts exactly one sees RowsAffected == 1.
func (r *InviteTokenRepository) MarkAsUsed(ctx context.Context, id string) error {
	query := `UPDATE invite_tokens SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrTokenUsed
	}
	return nil
}

// InvalidateForUser marks all outstanding tokens for a user as used so
// re-inviting leaves a single live token.
func (r *InviteTokenRepository) InvalidateForUser(ctx context.Context, userID string) error {
	query := `UPDATE invite_tokens SET used_at = NOW() WHERE user_id = $1 AND used_at IS NULL`
	_, err := r.pool.Exec(ctx, query, userID)
	return database.MapPostgresError(err)
}

func (r *InviteTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM invite_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invite tokens: %w", err)
	}
	return result.RowsAffected(), nil
}
