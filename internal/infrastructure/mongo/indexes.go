package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections は各リポジトリが参照するコレクション名。
type Collections struct {
	Stores  string
	Users   string
	Reviews string
}

// EnsureIndexes は検索・地理検索・一意制約に必要なインデックスを作成する。既存インデックスは再作成されない。
func EnsureIndexes(ctx context.Context, db *mongo.Database, names Collections) error {
	for collection, models := range indexModels(names) {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}
	return nil
}

func indexModels(names Collections) map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		names.Stores: {
			{
				Keys:    bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}},
				Options: options.Index().SetName("store_text"),
			},
			{
				Keys:    bson.D{{Key: "location", Value: "2dsphere"}},
				Options: options.Index().SetName("store_location"),
			},
			{
				Keys:    bson.D{{Key: "slug", Value: 1}},
				Options: options.Index().SetName("store_slug").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "created", Value: -1}},
				Options: options.Index().SetName("store_created"),
			},
		},
		names.Users: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("user_email").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "resetPasswordToken", Value: 1}},
				Options: options.Index().SetName("user_reset_token").SetSparse(true),
			},
		},
		names.Reviews: {
			{
				Keys:    bson.D{{Key: "store", Value: 1}, {Key: "created", Value: -1}},
				Options: options.Index().SetName("review_store"),
			},
		},
	}
}
