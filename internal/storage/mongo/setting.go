package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/storage"
)

type settingDocument struct {
	ID     bson.ObjectID `bson:"_id,omitempty"`
	Name   string        `bson:"name"`
	Values []string      `bson:"values"`
}

func (d settingDocument) toModel() *models.Setting {
	return &models.Setting{ID: d.ID.Hex(), Name: d.Name, Values: d.Values}
}

type SettingRepository struct {
	coll *mongo.Collection
}

func NewSettingRepository(coll *mongo.Collection) *SettingRepository {
	return &SettingRepository{coll: coll}
}

func (r *SettingRepository) CreateSetting(ctx context.Context, setting *models.Setting) (*models.Setting, error) {
	doc := settingDocument{ID: bson.NewObjectID(), Name: setting.Name, Values: setting.Values}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert setting: %w", translateError(err))
	}
	return doc.toModel(), nil
}

func (r *SettingRepository) GetSetting(ctx context.Context, id string) (*models.Setting, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, storage.ErrNotFound
	}

	var doc settingDocument
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	return doc.toModel(), nil
}

func (r *SettingRepository) ListSettings(ctx context.Context) ([]models.Setting, error) {
	cursor, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find settings: %w", err)
	}

	var docs []settingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	settings := make([]models.Setting, 0, len(docs))
	for _, d := range docs {
		settings = append(settings, *d.toModel())
	}
	return settings, nil
}

func (r *SettingRepository) UpdateSetting(ctx context.Context, setting *models.Setting) (*models.Setting, error) {
	oid, err := bson.ObjectIDFromHex(setting.ID)
	if err != nil {
		return nil, storage.ErrNotFound
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: setting.Name},
		{Key: "values", Value: setting.Values},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc settingDocument
	if err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, opts).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	return doc.toModel(), nil
}

func (r *SettingRepository) DeleteSetting(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return storage.ErrNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
