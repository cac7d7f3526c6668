package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/storage"
)

const revokedKeyPrefix = "revoked:"

// RevocationLedger keeps revoked jtis as keys that expire together with the token.
type RevocationLedger struct {
	client *redis.Client
	now    func() time.Time
}

func NewRevocationLedger(client *redis.Client) *RevocationLedger {
	return &RevocationLedger{client: client, now: time.Now}
}

func (l *RevocationLedger) Revoke(ctx context.Context, token models.RevokedToken) error {
	now := l.now()
	if err := token.Validate(now); err != nil {
		return err
	}

	ok, err := l.client.SetNX(ctx, revokedKeyPrefix+token.JTI, token.Exp.Unix(), token.Exp.Sub(now)).Result()
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if !ok {
		return storage.ErrDuplicateKey
	}
	return nil
}

func (l *RevocationLedger) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := l.client.Get(ctx, revokedKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return true, nil
}
