package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/storage"
)

type RevokedTokenRepository struct {
	db storage.DBTX
}

func NewRevokedTokenRepository(db storage.DBTX) *RevokedTokenRepository {
	return &RevokedTokenRepository{db: db}
}

// Revoke also purges expired rows. A row whose exp has passed may be replaced by the same jti.
func (r *RevokedTokenRepository) Revoke(ctx context.Context, token models.RevokedToken) error {
	if err := token.Validate(time.Now()); err != nil {
		return err
	}

	query := `WITH purged AS (DELETE FROM revoked_tokens WHERE exp <= now() AND jti <> $1)
		INSERT INTO revoked_tokens (jti, exp) VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE SET exp = EXCLUDED.exp WHERE revoked_tokens.exp <= now()`
	res, err := r.db.ExecContext(ctx, query, token.JTI, token.Exp.UTC())
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", translateError(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrDuplicateKey
	}
	return nil
}

func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	query := `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1 AND exp > now())`
	if err := r.db.QueryRowContext(ctx, query, jti).Scan(&revoked); err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}
