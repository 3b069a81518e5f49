package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

// ReviewRepository implements application.ReviewRepository using MongoDB.
type ReviewRepository struct {
	collection *mongo.Collection
}

func NewReviewRepository(db *mongo.Database, collectionName string) *ReviewRepository {
	return &ReviewRepository{collection: db.Collection(collectionName)}
}

func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	storeID, err := primitive.ObjectIDFromHex(review.StoreID)
	if err != nil {
		return domain.ErrNotFound
	}
	authorID, err := primitive.ObjectIDFromHex(review.AuthorID)
	if err != nil {
		return domain.NewValidationError("A review must have an author.")
	}
	doc := ReviewDocument{
		ID:        primitive.NewObjectID(),
		Store:     storeID,
		Author:    authorID,
		Text:      review.Text,
		Rating:    review.Rating,
		CreatedAt: review.CreatedAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return err
	}
	review.ID = doc.ID.Hex()
	return nil
}

// ListByStore は店舗のレビューを新しい順に返す。
func (r *ReviewRepository) ListByStore(ctx context.Context, storeID string) ([]domain.Review, error) {
	oid, err := primitive.ObjectIDFromHex(storeID)
	if err != nil {
		return []domain.Review{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"store": oid}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reviews := make([]domain.Review, 0)
	for cursor.Next(ctx) {
		var doc ReviewDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		reviews = append(reviews, mapReviewDocument(doc))
	}
	return reviews, cursor.Err()
}
