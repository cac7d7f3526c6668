package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rryowa/shopapi/internal/models"
)

type refreshTokenDocument struct {
	UserID    string    `bson:"user_id"`
	JTI       string    `bson:"jti"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type RefreshTokenRepository struct {
	coll *mongo.Collection
}

func NewRefreshTokenRepository(coll *mongo.Collection) *RefreshTokenRepository {
	return &RefreshTokenRepository{coll: coll}
}

// PutRefreshToken upserts on user_id, so a new login replaces the previous session.
func (r *RefreshTokenRepository) PutRefreshToken(ctx context.Context, record models.RefreshTokenRecord) error {
	filter := bson.D{{Key: "user_id", Value: record.UserID}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "jti", Value: record.JTI},
		{Key: "expires_at", Value: record.ExpiresAt.UTC()},
	}}}

	if _, err := r.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert refresh token: %w", translateError(err))
	}
	return nil
}

func (r *RefreshTokenRepository) GetRefreshToken(ctx context.Context, userID string) (*models.RefreshTokenRecord, error) {
	// The TTL monitor runs about once a minute, so expiry is also checked here.
	filter := bson.D{
		{Key: "user_id", Value: userID},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: time.Now().UTC()}}},
	}

	var doc refreshTokenDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	return &models.RefreshTokenRecord{UserID: doc.UserID, JTI: doc.JTI, ExpiresAt: doc.ExpiresAt}, nil
}

func (r *RefreshTokenRepository) DeleteRefreshToken(ctx context.Context, userID string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: "user_id", Value: userID}}); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}
