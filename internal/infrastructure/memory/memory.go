// Package memory keeps stores, users and reviews in process memory. It honours the
// same uniqueness and ordering rules as the Mongo repositories and backs tests and
// local runs without a database.
package memory

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sngm3741/delicious-stores/api/internal/directory/application"
	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

// DB is the shared backing state of the in-memory repositories.
type DB struct {
	mu      sync.RWMutex
	stores  map[string]domain.Store
	users   map[string]domain.User
	reviews map[string]domain.Review
}

func NewDB() *DB {
	return &DB{
		stores:  make(map[string]domain.Store),
		users:   make(map[string]domain.User),
		reviews: make(map[string]domain.Review),
	}
}

// Stores returns the store repository view of db.
func (db *DB) Stores() application.StoreRepository { return &StoreRepository{db: db} }

// Users returns the user repository view of db.
func (db *DB) Users() application.UserRepository { return &UserRepository{db: db} }

// Reviews returns the review repository view of db.
func (db *DB) Reviews() application.ReviewRepository { return &ReviewRepository{db: db} }

func newID() string {
	return primitive.NewObjectID().Hex()
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneStore(s domain.Store) domain.Store {
	s.Tags = cloneStrings(s.Tags)
	return s
}

func cloneUser(u domain.User) domain.User {
	u.Hearts = cloneStrings(u.Hearts)
	if u.ResetPasswordExpires != nil {
		t := *u.ResetPasswordExpires
		u.ResetPasswordExpires = &t
	}
	return u
}
