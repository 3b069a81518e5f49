package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

// LocationDocument は GeoJSON Point と住所を保持する埋め込みドキュメント。2dsphere インデックスの対象。
type LocationDocument struct {
	Type        string     `bson:"type"`
	Coordinates [2]float64 `bson:"coordinates"`
	Address     string     `bson:"address"`
}

// StoreDocument は MongoDB 上での店舗スキーマを Go 構造体として表現したもの。
type StoreDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Slug        string             `bson:"slug"`
	Description string             `bson:"description,omitempty"`
	Tags        []string           `bson:"tags"`
	CreatedAt   time.Time          `bson:"created"`
	Location    LocationDocument   `bson:"location"`
	Photo       string             `bson:"photo,omitempty"`
	Author      primitive.ObjectID `bson:"author"`
}

// RankedStoreDocument はトップ店舗集計の 1 行。
type RankedStoreDocument struct {
	StoreDocument `bson:",inline"`
	AverageRating float64 `bson:"averageRating"`
	ReviewCount   int     `bson:"reviewCount"`
}

// UserDocument はアカウントのスキーマ。hearts は店舗 ObjectID の集合。
type UserDocument struct {
	ID                   primitive.ObjectID   `bson:"_id,omitempty"`
	Email                string               `bson:"email"`
	Name                 string               `bson:"name"`
	PasswordHash         string               `bson:"passwordHash"`
	Hearts               []primitive.ObjectID `bson:"hearts"`
	ResetPasswordToken   string               `bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpires *time.Time           `bson:"resetPasswordExpires,omitempty"`
}

// ReviewDocument はレビュー 1 件分のスキーマ。
type ReviewDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Store     primitive.ObjectID `bson:"store"`
	Author    primitive.ObjectID `bson:"author"`
	Text      string             `bson:"text"`
	Rating    int                `bson:"rating"`
	CreatedAt time.Time          `bson:"created"`
}

// TagCountDocument はタグ集計の 1 行。_id にタグ名が入る。
type TagCountDocument struct {
	Tag   string `bson:"_id"`
	Count int    `bson:"count"`
}

func newStoreDocument(store *domain.Store) (StoreDocument, error) {
	doc := StoreDocument{
		Name:        store.Name,
		Slug:        store.Slug,
		Description: store.Description,
		Tags:        append([]string{}, store.Tags...),
		CreatedAt:   store.CreatedAt,
		Location: LocationDocument{
			Type:        domain.PointType,
			Coordinates: store.Location.Coordinates,
			Address:     store.Location.Address,
		},
		Photo: store.Photo,
	}
	if store.ID != "" {
		id, err := primitive.ObjectIDFromHex(store.ID)
		if err != nil {
			return StoreDocument{}, domain.ErrNotFound
		}
		doc.ID = id
	}
	author, err := primitive.ObjectIDFromHex(store.AuthorID)
	if err != nil {
		return StoreDocument{}, domain.NewValidationError("A store must have an author.")
	}
	doc.Author = author
	return doc, nil
}

func mapStoreDocument(doc StoreDocument) domain.Store {
	locType := doc.Location.Type
	if locType == "" {
		locType = domain.PointType
	}
	return domain.Store{
		ID:          doc.ID.Hex(),
		Name:        doc.Name,
		Slug:        doc.Slug,
		Description: doc.Description,
		Tags:        append([]string{}, doc.Tags...),
		CreatedAt:   doc.CreatedAt,
		Location: domain.Location{
			Type:        locType,
			Coordinates: doc.Location.Coordinates,
			Address:     doc.Location.Address,
		},
		Photo:    doc.Photo,
		AuthorID: hexOrEmpty(doc.Author),
	}
}

func mapUserDocument(doc UserDocument) domain.User {
	hearts := make([]string, 0, len(doc.Hearts))
	for _, id := range doc.Hearts {
		hearts = append(hearts, id.Hex())
	}
	return domain.User{
		ID:                   doc.ID.Hex(),
		Email:                doc.Email,
		Name:                 doc.Name,
		PasswordHash:         doc.PasswordHash,
		Hearts:               hearts,
		ResetPasswordToken:   doc.ResetPasswordToken,
		ResetPasswordExpires: doc.ResetPasswordExpires,
	}
}

func mapReviewDocument(doc ReviewDocument) domain.Review {
	return domain.Review{
		ID:        doc.ID.Hex(),
		StoreID:   doc.Store.Hex(),
		AuthorID:  doc.Author.Hex(),
		Text:      doc.Text,
		Rating:    doc.Rating,
		CreatedAt: doc.CreatedAt,
	}
}

func hexOrEmpty(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}

// objectIDs は不正な 16 進 ID を読み飛ばして ObjectID の配列に変換する。
func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		out = append(out, oid)
	}
	return out
}
