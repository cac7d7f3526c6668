package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/storage"
)

type userDocument struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Name         string        `bson:"name"`
	Email        string        `bson:"email"`
	Password     string        `bson:"password,omitempty"`
	Role         int           `bson:"role"`
	Phone        string        `bson:"phone,omitempty"`
	Addresses    []string      `bson:"addresses,omitempty"`
	Confirmed    bool          `bson:"confirmed"`
	AuthProvider string        `bson:"auth_provider"`
	CreatedAt    time.Time     `bson:"created_at"`
}

func toUserDocument(u *models.User) userDocument {
	return userDocument{
		Name:         u.Name,
		Email:        strings.ToLower(strings.TrimSpace(u.Email)),
		Password:     u.PasswordHash,
		Role:         int(u.Role),
		Phone:        u.Phone,
		Addresses:    u.Addresses,
		Confirmed:    u.Confirmed,
		AuthProvider: u.AuthProvider,
		CreatedAt:    u.CreatedAt,
	}
}

func (d userDocument) toModel() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Role:         models.Role(d.Role),
		Phone:        d.Phone,
		Addresses:    d.Addresses,
		Confirmed:    d.Confirmed,
		AuthProvider: d.AuthProvider,
		CreatedAt:    d.CreatedAt,
	}
}

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(coll *mongo.Collection) *UserRepository {
	return &UserRepository{coll: coll}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	doc := toUserDocument(user)
	doc.ID = bson.NewObjectID()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert user: %w", translateError(err))
	}
	return doc.toModel(), nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, storage.ErrNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))}})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D) (*models.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	return doc.toModel(), nil
}

func (r *UserRepository) UpsertUserByEmail(ctx context.Context, email string, fields models.UserUpsert) (*models.User, error) {
	filter := bson.D{{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "name", Value: fields.Name},
			{Key: "auth_provider", Value: fields.AuthProvider},
			{Key: "confirmed", Value: true},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "role", Value: int(models.RoleCustomer)},
			{Key: "created_at", Value: time.Now().UTC()},
		}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc userDocument
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, fmt.Errorf("upsert user: %w", translateError(err))
	}
	return doc.toModel(), nil
}

func (r *UserRepository) ListUsers(ctx context.Context, skip, limit int) ([]models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, *d.toModel())
	}
	return users, nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	oid, err := bson.ObjectIDFromHex(user.ID)
	if err != nil {
		return nil, storage.ErrNotFound
	}

	doc := toUserDocument(user)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: doc.Name},
		{Key: "email", Value: doc.Email},
		{Key: "password", Value: doc.Password},
		{Key: "role", Value: doc.Role},
		{Key: "phone", Value: doc.Phone},
		{Key: "addresses", Value: doc.Addresses},
		{Key: "confirmed", Value: doc.Confirmed},
		{Key: "auth_provider", Value: doc.AuthProvider},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated userDocument
	if err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, opts).Decode(&updated); err != nil {
		return nil, translateError(err)
	}
	return updated.toModel(), nil
}

func (r *UserRepository) SetUserConfirmed(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return storage.ErrNotFound
	}

	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, bson.D{{Key: "$set", Value: bson.D{{Key: "confirmed", Value: true}}}})
	if err != nil {
		return fmt.Errorf("confirm user: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return storage.ErrNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
