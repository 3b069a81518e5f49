package memory

import (
	"context"
	"sort"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

// ReviewRepository is the in-memory application.ReviewRepository.
type ReviewRepository struct {
	db *DB
}

func (r *ReviewRepository) Create(_ context.Context, review *domain.Review) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	review.ID = newID()
	r.db.reviews[review.ID] = *review
	return nil
}

func (r *ReviewRepository) ListByStore(_ context.Context, storeID string) ([]domain.Review, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	result := []domain.Review{}
	for _, rv := range r.db.reviews {
		if rv.StoreID == storeID {
			result = append(result, rv)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}
