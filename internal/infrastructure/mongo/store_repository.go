package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

// StoreRepository implements application.StoreRepository using MongoDB.
type StoreRepository struct {
	collection        *mongo.Collection
	reviewsCollection string
}

// NewStoreRepository creates a new Mongo-backed store repository. reviewCollection
// is joined by the top-stores aggregation.
func NewStoreRepository(db *mongo.Database, collectionName, reviewCollection string) *StoreRepository {
	return &StoreRepository{collection: db.Collection(collectionName), reviewsCollection: reviewCollection}
}

func (r *StoreRepository) Create(ctx context.Context, store *domain.Store) error {
	doc, err := newStoreDocument(store)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return translate(err, domain.ErrDuplicateSlug)
	}
	store.ID = doc.ID.Hex()
	return nil
}

func (r *StoreRepository) Update(ctx context.Context, store *domain.Store) error {
	doc, err := newStoreDocument(store)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		"name":        doc.Name,
		"slug":        doc.Slug,
		"description": doc.Description,
		"tags":        doc.Tags,
		"location":    doc.Location,
		"photo":       doc.Photo,
	}}
	result, err := r.collection.UpdateByID(ctx, doc.ID, update)
	if err != nil {
		return translate(err, domain.ErrDuplicateSlug)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindByID returns a single store by its identifier.
func (r *StoreRepository) FindByID(ctx context.Context, id string) (*domain.Store, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *StoreRepository) FindBySlug(ctx context.Context, slug string) (*domain.Store, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *StoreRepository) findOne(ctx context.Context, filter bson.M) (*domain.Store, error) {
	var doc StoreDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err, nil)
	}
	store := mapStoreDocument(doc)
	return &store, nil
}

func (r *StoreRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Store, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []domain.Store{}, nil
	}
	opts := options.Find().SetSort(newestFirst())
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}}, opts)
}

// SlugFamily は base そのもの、または base-<数字> に一致する slug を大文字小文字を無視して列挙する。
func (r *StoreRepository) SlugFamily(ctx context.Context, base, excludeID string) ([]string, error) {
	filter := slugFamilyFilter(base, excludeID)
	opts := options.Find().SetProjection(bson.M{"slug": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	slugs := make([]string, 0)
	for cursor.Next(ctx) {
		var doc struct {
			Slug string `bson:"slug"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		slugs = append(slugs, doc.Slug)
	}
	return slugs, cursor.Err()
}

func slugFamilyFilter(base, excludeID string) bson.M {
	filter := bson.M{"slug": primitive.Regex{Pattern: domain.SlugFamilyPattern(base), Options: "i"}}
	if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
		filter["_id"] = bson.M{"$ne": oid}
	}
	return filter
}

func (r *StoreRepository) List(ctx context.Context, skip, limit int) ([]domain.Store, int, error) {
	opts := options.Find().
		SetSort(newestFirst()).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))
	stores, err := r.find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	return stores, int(count), nil
}

// ListByTag はタグを持つ店舗を返す。tag が空の場合は tags フィールドを持つ全店舗が対象。
func (r *StoreRepository) ListByTag(ctx context.Context, tag string) ([]domain.Store, error) {
	return r.find(ctx, tagFilter(tag), options.Find().SetSort(newestFirst()))
}

func tagFilter(tag string) bson.M {
	if tag == "" {
		return bson.M{"tags": bson.M{"$exists": true}}
	}
	return bson.M{"tags": tag}
}

// Search は name/description のテキストインデックスを用い、スコア順に返す。
func (r *StoreRepository) Search(ctx context.Context, query string, limit int) ([]domain.Store, error) {
	score := bson.M{"$meta": "textScore"}
	opts := options.Find().
		SetProjection(bson.M{"score": score}).
		SetSort(bson.D{{Key: "score", Value: score}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"$text": bson.M{"$search": query}}, opts)
}

func (r *StoreRepository) Near(ctx context.Context, lng, lat, maxDistance float64, limit int) ([]domain.Store, error) {
	opts := options.Find().
		SetProjection(bson.M{"slug": 1, "name": 1, "description": 1, "location": 1, "photo": 1}).
		SetLimit(int64(limit))
	return r.find(ctx, nearFilter(lng, lat, maxDistance), opts)
}

func nearFilter(lng, lat, maxDistance float64) bson.M {
	return bson.M{"location": bson.M{"$near": bson.M{
		"$geometry": bson.M{
			"type":        domain.PointType,
			"coordinates": bson.A{lng, lat},
		},
		"$maxDistance": maxDistance,
	}}}
}

func (r *StoreRepository) TagCounts(ctx context.Context) ([]domain.TagCount, error) {
	cursor, err := r.collection.Aggregate(ctx, tagCountsPipeline())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tags := make([]domain.TagCount, 0)
	for cursor.Next(ctx) {
		var doc TagCountDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		tags = append(tags, domain.TagCount{Tag: doc.Tag, Count: doc.Count})
	}
	return tags, cursor.Err()
}

func tagCountsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$tags"}},
		{{Key: "$group", Value: bson.M{"_id": "$tags", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
}

func (r *StoreRepository) TopStores(ctx context.Context, minReviews, limit int) ([]domain.RankedStore, error) {
	cursor, err := r.collection.Aggregate(ctx, topStoresPipeline(r.reviewsCollection, minReviews, limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ranked := make([]domain.RankedStore, 0)
	for cursor.Next(ctx) {
		var doc RankedStoreDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ranked = append(ranked, domain.RankedStore{
			Store:         mapStoreDocument(doc.StoreDocument),
			AverageRating: doc.AverageRating,
			ReviewCount:   doc.ReviewCount,
		})
	}
	return ranked, cursor.Err()
}

// topStoresPipeline はレビューを結合し、minReviews 件以上ある店舗を平均評価の降順で並べる。
// 同点は作成日時の古い順、さらに _id 順。
func topStoresPipeline(reviewCollection string, minReviews, limit int) mongo.Pipeline {
	if minReviews < 1 {
		minReviews = 1
	}
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         reviewCollection,
			"localField":   "_id",
			"foreignField": "store",
			"as":           "reviews",
		}}},
		{{Key: "$match", Value: bson.M{fmt.Sprintf("reviews.%d", minReviews-1): bson.M{"$exists": true}}}},
		{{Key: "$addFields", Value: bson.M{
			"averageRating": bson.M{"$avg": "$reviews.rating"},
			"reviewCount":   bson.M{"$size": "$reviews"},
		}}},
		{{Key: "$project", Value: bson.M{"reviews": 0}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "averageRating", Value: -1},
			{Key: "created", Value: 1},
			{Key: "_id", Value: 1},
		}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	return pipeline
}

func (r *StoreRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Store, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stores := make([]domain.Store, 0)
	for cursor.Next(ctx) {
		var doc StoreDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		stores = append(stores, mapStoreDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return stores, nil
}

func newestFirst() bson.D {
	return bson.D{{Key: "created", Value: -1}, {Key: "_id", Value: -1}}
}
