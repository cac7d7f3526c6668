package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rryowa/shopapi/internal/storage"
)

const (
	usersCollection         = "users"
	refreshTokensCollection = "refresh_tokens"
	revokedTokensCollection = "revoked_tokens"
	settingsCollection      = "settings"
)

type Storage struct {
	db *mongo.Database
	*UserRepository
	*RefreshTokenRepository
	*RevokedTokenRepository
	*SettingRepository
}

func NewStorage(db *mongo.Database) *Storage {
	return &Storage{
		db:                     db,
		UserRepository:         NewUserRepository(db.Collection(usersCollection)),
		RefreshTokenRepository: NewRefreshTokenRepository(db.Collection(refreshTokensCollection)),
		RevokedTokenRepository: NewRevokedTokenRepository(db.Collection(revokedTokensCollection)),
		SettingRepository:      NewSettingRepository(db.Collection(settingsCollection)),
	}
}

// EnsureIndexes creates the unique and TTL indexes every invariant of the stores depends on.
// Revoked tokens and refresh records are removed by the server once their expiry passes.
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		refreshTokensCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		revokedTokensCollection: {
			{Keys: bson.D{{Key: "jti", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "exp", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		settingsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return storage.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", storage.ErrDuplicateKey, err)
	default:
		return err
	}
}
