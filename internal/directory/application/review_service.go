package application

import (
	"context"
	"strings"
	"time"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

// reviewService implements ReviewService.
type reviewService struct {
	reviews  ReviewRepository
	stores   StoreRepository
	validate Validator
	now      func() time.Time
}

// NewReviewService creates the review use-cases.
func NewReviewService(reviews ReviewRepository, stores StoreRepository, validate Validator) ReviewService {
	return &reviewService{reviews: reviews, stores: stores, validate: validate, now: time.Now}
}

func (s *reviewService) Add(ctx context.Context, user domain.User, storeID string, cmd AddReviewCommand) (*domain.Review, error) {
	cmd.Text = strings.TrimSpace(cmd.Text)
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}

	review := &domain.Review{
		StoreID:   store.ID,
		AuthorID:  user.ID,
		Text:      cmd.Text,
		Rating:    cmd.Rating,
		CreatedAt: s.now().UTC(),
	}
	if err := review.Validate(); err != nil {
		return nil, err
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}
