package postgres

import (
	"context"
	"fmt"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/storage"
)

type RefreshTokenRepository struct {
	db storage.DBTX
}

func NewRefreshTokenRepository(db storage.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) PutRefreshToken(ctx context.Context, record models.RefreshTokenRecord) error {
	query := `INSERT INTO refresh_tokens (user_id, jti, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET jti = EXCLUDED.jti, expires_at = EXCLUDED.expires_at`
	if _, err := r.db.ExecContext(ctx, query, record.UserID, record.JTI, record.ExpiresAt.UTC()); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", translateError(err))
	}
	return nil
}

func (r *RefreshTokenRepository) GetRefreshToken(ctx context.Context, userID string) (*models.RefreshTokenRecord, error) {
	var rec models.RefreshTokenRecord
	query := `SELECT user_id, jti, expires_at FROM refresh_tokens WHERE user_id = $1 AND expires_at > now()`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&rec.UserID, &rec.JTI, &rec.ExpiresAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &rec, nil
}

func (r *RefreshTokenRepository) DeleteRefreshToken(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		if translateError(err) == storage.ErrNotFound {
			return nil
		}
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}
