package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

const (
	defaultStoresPerPage   = 4
	defaultNearMaxDistance = 10000
	nearLimit              = 10
	searchLimit            = 5
	topStoresLimit         = 10
	topStoresMinReviews    = 2
	slugAssignAttempts     = 3
)

// StoreOptions tunes the store read models.
type StoreOptions struct {
	PerPage         int
	NearMaxDistance float64
}

// storeService implements StoreService.
type storeService struct {
	stores   StoreRepository
	reviews  ReviewRepository
	users    UserRepository
	tags     TagCache
	validate Validator
	opts     StoreOptions
	now      func() time.Time
}

func NewStoreService(stores StoreRepository, reviews ReviewRepository, users UserRepository, tags TagCache, validate Validator, opts StoreOptions) StoreService {
	if opts.PerPage <= 0 {
		opts.PerPage = defaultStoresPerPage
	}
	if opts.NearMaxDistance <= 0 {
		opts.NearMaxDistance = defaultNearMaxDistance
	}
	if tags == nil {
		tags = NopTagCache{}
	}
	return &storeService{
		stores:   stores,
		reviews:  reviews,
		users:    users,
		tags:     tags,
		validate: validate,
		opts:     opts,
		now:      time.Now,
	}
}

func (s *storeService) List(ctx context.Context, page int) (*StoreListing, error) {
	if page < 1 {
		page = 1
	}
	if maxPage := math.MaxInt / s.opts.PerPage; page > maxPage {
		page = maxPage
	}
	skip := (page - 1) * s.opts.PerPage
	stores, count, err := s.stores.List(ctx, skip, s.opts.PerPage)
	if err != nil {
		return nil, err
	}
	pages := int(math.Ceil(float64(count) / float64(s.opts.PerPage)))
	return &StoreListing{Stores: stores, Page: page, Pages: pages, Count: count}, nil
}

func (s *storeService) BySlug(ctx context.Context, slug string) (*StoreDetail, error) {
	store, err := s.stores.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListByStore(ctx, store.ID)
	if err != nil {
		return nil, err
	}
	return &StoreDetail{Store: *store, Reviews: reviews}, nil
}

func (s *storeService) Tags(ctx context.Context) ([]domain.TagCount, error) {
	cached, generation, ok := s.tags.Get(ctx)
	if ok {
		return cached, nil
	}
	tags, err := s.stores.TagCounts(ctx)
	if err != nil {
		return nil, err
	}
	s.tags.Set(ctx, generation, tags)
	return tags, nil
}

func (s *storeService) ByTag(ctx context.Context, tag string) (*TagListing, error) {
	tag = strings.TrimSpace(tag)
	tags, err := s.Tags(ctx)
	if err != nil {
		return nil, err
	}
	stores, err := s.stores.ListByTag(ctx, tag)
	if err != nil {
		return nil, err
	}
	return &TagListing{Tag: tag, Tags: tags, Stores: stores}, nil
}

func (s *storeService) Create(ctx context.Context, user domain.User, cmd UpsertStoreCommand) (*domain.Store, error) {
	store, err := s.buildStore(cmd)
	if err != nil {
		return nil, err
	}
	store.AuthorID = user.ID
	store.CreatedAt = s.now().UTC()

	err = s.withSlug(ctx, store, func() error { return s.stores.Create(ctx, store) })
	if err != nil {
		return nil, err
	}
	s.tags.Invalidate(ctx)
	return store, nil
}

func (s *storeService) EditForm(ctx context.Context, user domain.User, id string) (*domain.Store, error) {
	store, err := s.stores.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !store.OwnedBy(user.ID) {
		return nil, domain.ErrForbidden
	}
	return store, nil
}

func (s *storeService) Update(ctx context.Context, user domain.User, id string, cmd UpsertStoreCommand) (*domain.Store, error) {
	existing, err := s.EditForm(ctx, user, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.buildStore(cmd)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.AuthorID = existing.AuthorID
	updated.CreatedAt = existing.CreatedAt
	updated.Slug = existing.Slug
	if updated.Photo == "" {
		updated.Photo = existing.Photo
	}

	persist := func() error { return s.stores.Update(ctx, updated) }
	if updated.Name != existing.Name {
		err = s.withSlug(ctx, updated, persist)
	} else {
		err = persist()
	}
	if err != nil {
		return nil, err
	}
	s.tags.Invalidate(ctx)
	return updated, nil
}

// withSlug assigns a fresh slug and persists, reassigning when the unique index
// reports that a concurrent writer took the same slug first.
func (s *storeService) withSlug(ctx context.Context, store *domain.Store, persist func() error) error {
	var err error
	for attempt := 0; attempt < slugAssignAttempts; attempt++ {
		if err = s.assignSlug(ctx, store); err != nil {
			return err
		}
		err = persist()
		if !errors.Is(err, domain.ErrDuplicateSlug) {
			return err
		}
	}
	return fmt.Errorf("assign slug for %q: %w", store.Name, err)
}

func (s *storeService) assignSlug(ctx context.Context, store *domain.Store) error {
	base := domain.Slugify(store.Name)
	if base == "" {
		return domain.NewValidationError("Store name must contain letters or digits.")
	}
	siblings, err := s.stores.SlugFamily(ctx, base, store.ID)
	if err != nil {
		return err
	}
	store.Slug = domain.ResolveSlug(base, siblings)
	return nil
}

func (s *storeService) Search(ctx context.Context, query string) ([]domain.Store, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Store{}, nil
	}
	return s.stores.Search(ctx, query, searchLimit)
}

func (s *storeService) Near(ctx context.Context, lng, lat float64) ([]domain.Store, error) {
	return s.stores.Near(ctx, lng, lat, s.opts.NearMaxDistance, nearLimit)
}

func (s *storeService) Top(ctx context.Context) ([]domain.RankedStore, error) {
	return s.stores.TopStores(ctx, topStoresMinReviews, topStoresLimit)
}

func (s *storeService) Hearted(ctx context.Context, user domain.User) ([]domain.Store, error) {
	fresh, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(fresh.Hearts) == 0 {
		return []domain.Store{}, nil
	}
	return s.stores.FindByIDs(ctx, fresh.Hearts)
}

func (s *storeService) buildStore(cmd UpsertStoreCommand) (*domain.Store, error) {
	var msgs []string
	if err := s.validate.Struct(cmd); err != nil {
		v, ok := domain.AsValidation(err)
		if !ok {
			return nil, err
		}
		msgs = append(msgs, v.Messages...)
	}
	location, err := domain.NewLocation(cmd.Lng, cmd.Lat, cmd.Address)
	if err != nil {
		if v, ok := domain.AsValidation(err); ok {
			msgs = append(msgs, v.Messages...)
		} else {
			return nil, err
		}
	}
	if len(msgs) > 0 {
		return nil, domain.NewValidationError(msgs...)
	}
	return &domain.Store{
		Name:        strings.TrimSpace(cmd.Name),
		Description: strings.TrimSpace(cmd.Description),
		Tags:        domain.NormalizeTags(cmd.Tags),
		Location:    location,
		Photo:       strings.TrimSpace(cmd.Photo),
	}, nil
}

// NopTagCache disables tag caching.
type NopTagCache struct{}

func (NopTagCache) Get(context.Context) ([]domain.TagCount, int64, bool) { return nil, 0, false }
func (NopTagCache) Set(context.Context, int64, []domain.TagCount)        {}
func (NopTagCache) Invalidate(context.Context)                           {}
