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

type revokedTokenDocument struct {
	JTI string    `bson:"jti"`
	Exp time.Time `bson:"exp"`
}

type RevokedTokenRepository struct {
	coll *mongo.Collection
}

func NewRevokedTokenRepository(coll *mongo.Collection) *RevokedTokenRepository {
	return &RevokedTokenRepository{coll: coll}
}

func (r *RevokedTokenRepository) Revoke(ctx context.Context, token models.RevokedToken) error {
	if err := token.Validate(time.Now()); err != nil {
		return err
	}

	doc := revokedTokenDocument{JTI: token.JTI, Exp: token.Exp.UTC()}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert revoked token: %w", translateError(err))
	}
	return nil
}

func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	filter := bson.D{
		{Key: "jti", Value: jti},
		{Key: "exp", Value: bson.D{{Key: "$gt", Value: time.Now().UTC()}}},
	}

	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count revoked tokens: %w", err)
	}
	return n > 0, nil
}
