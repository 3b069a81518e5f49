package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

// UserRepository implements application.UserRepository using MongoDB.
type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database, collectionName string) *UserRepository {
	return &UserRepository{collection: db.Collection(collectionName)}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	doc := UserDocument{
		ID:           primitive.NewObjectID(),
		Email:        user.Email,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		Hearts:       objectIDs(user.Hearts),
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return translate(err, domain.ErrDuplicateEmail)
	}
	user.ID = doc.ID.Hex()
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByResetToken(ctx context.Context, token string, now time.Time) (*domain.User, error) {
	return r.findOne(ctx, bson.M{
		"resetPasswordToken":   token,
		"resetPasswordExpires": bson.M{"$gt": now},
	})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc UserDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err, nil)
	}
	user := mapUserDocument(doc)
	return &user, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, name, email string) (*domain.User, error) {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"name": name, "email": email}})
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	_, err := r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"resetPasswordToken":   token,
		"resetPasswordExpires": expires,
	}})
	return err
}

// UpdatePassword はハッシュを差し替え、リセットトークンと有効期限を同時に取り除く。
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) (*domain.User, error) {
	return r.updateOne(ctx, id, bson.M{
		"$set":   bson.M{"passwordHash": passwordHash},
		"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpires": ""},
	})
}

// ToggleHeart は hearts に storeID があれば取り除き、なければ末尾に追加する。
// 判定と更新を1回のパイプライン更新で行うため、同時のトグルも取りこぼさない。
func (r *UserRepository) ToggleHeart(ctx context.Context, userID, storeID string) (*domain.User, error) {
	storeOID, err := primitive.ObjectIDFromHex(storeID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return r.updateOne(ctx, userID, heartToggle(storeOID))
}

func heartToggle(storeID primitive.ObjectID) mongo.Pipeline {
	hearts := bson.M{"$ifNull": bson.A{"$hearts", bson.A{}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"hearts": bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{storeID, hearts}},
				bson.M{"$filter": bson.M{
					"input": hearts,
					"as":    "heart",
					"cond":  bson.M{"$ne": bson.A{"$$heart", storeID}},
				}},
				bson.M{"$concatArrays": bson.A{hearts, bson.A{storeID}}},
			}},
		}}},
	}
}

func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"resetPasswordExpires": bson.M{"$lte": now}},
		bson.M{"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpires": ""}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// updateOne は update (更新ドキュメントまたはパイプライン) を適用し、更新後のユーザーを返す。
func (r *UserRepository) updateOne(ctx context.Context, id string, update any) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc UserDocument
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return nil, translate(err, domain.ErrDuplicateEmail)
	}
	user := mapUserDocument(doc)
	return &user, nil
}
