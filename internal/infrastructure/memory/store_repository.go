package memory

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

const earthRadiusMeters = 6378100.0

// StoreRepository is the in-memory application.StoreRepository.
type StoreRepository struct {
	db *DB
}

func (r *StoreRepository) Create(_ context.Context, store *domain.Store) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.slugTakenLocked(store.Slug, "") {
		return domain.ErrDuplicateSlug
	}
	store.ID = newID()
	r.db.stores[store.ID] = cloneStore(*store)
	return nil
}

func (r *StoreRepository) Update(_ context.Context, store *domain.Store) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.stores[store.ID]; !ok {
		return domain.ErrNotFound
	}
	if r.slugTakenLocked(store.Slug, store.ID) {
		return domain.ErrDuplicateSlug
	}
	r.db.stores[store.ID] = cloneStore(*store)
	return nil
}

func (r *StoreRepository) slugTakenLocked(slug, excludeID string) bool {
	for id, s := range r.db.stores {
		if id != excludeID && s.Slug == slug {
			return true
		}
	}
	return false
}

func (r *StoreRepository) FindByID(_ context.Context, id string) (*domain.Store, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s, ok := r.db.stores[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneStore(s)
	return &out, nil
}

func (r *StoreRepository) FindBySlug(_ context.Context, slug string) (*domain.Store, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, s := range r.db.stores {
		if s.Slug == slug {
			out := cloneStore(s)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *StoreRepository) FindByIDs(_ context.Context, ids []string) ([]domain.Store, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	result := make([]domain.Store, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.db.stores[id]; ok {
			result = append(result, cloneStore(s))
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func (r *StoreRepository) SlugFamily(_ context.Context, base, excludeID string) ([]string, error) {
	pattern, err := regexp.Compile("(?i)" + domain.SlugFamilyPattern(base))
	if err != nil {
		return nil, err
	}

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var slugs []string
	for id, s := range r.db.stores {
		if id == excludeID {
			continue
		}
		if pattern.MatchString(s.Slug) {
			slugs = append(slugs, s.Slug)
		}
	}
	return slugs, nil
}

func (r *StoreRepository) List(_ context.Context, skip, limit int) ([]domain.Store, int, error) {
	all := r.snapshot()
	sortNewestFirst(all)
	return window(all, skip, limit), len(all), nil
}

func (r *StoreRepository) ListByTag(_ context.Context, tag string) ([]domain.Store, error) {
	var result []domain.Store
	for _, s := range r.snapshot() {
		if tag == "" {
			if s.Tags != nil {
				result = append(result, s)
			}
			continue
		}
		for _, t := range s.Tags {
			if t == tag {
				result = append(result, s)
				break
			}
		}
	}
	sortNewestFirst(result)
	return result, nil
}

// Search approximates a text index: every query word found in the name or the
// description scores one point and stores are ordered by score.
func (r *StoreRepository) Search(_ context.Context, query string, limit int) ([]domain.Store, error) {
	words := strings.Fields(strings.ToLower(query))
	type scored struct {
		store domain.Store
		score int
	}
	var hits []scored
	for _, s := range r.snapshot() {
		haystack := strings.ToLower(s.Name + " " + s.Description)
		score := 0
		for _, w := range words {
			if strings.Contains(haystack, w) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{store: s, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].store.Name < hits[j].store.Name
	})

	result := make([]domain.Store, 0, len(hits))
	for _, h := range hits {
		result = append(result, h.store)
	}
	return window(result, 0, limit), nil
}

func (r *StoreRepository) Near(_ context.Context, lng, lat, maxDistance float64, limit int) ([]domain.Store, error) {
	type placed struct {
		store    domain.Store
		distance float64
	}
	var hits []placed
	for _, s := range r.snapshot() {
		d := haversine(lng, lat, s.Location.Lng(), s.Location.Lat())
		if d <= maxDistance {
			hits = append(hits, placed{store: s, distance: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })

	result := make([]domain.Store, 0, len(hits))
	for _, h := range hits {
		result = append(result, h.store)
	}
	return window(result, 0, limit), nil
}

func (r *StoreRepository) TagCounts(_ context.Context) ([]domain.TagCount, error) {
	counts := make(map[string]int)
	for _, s := range r.snapshot() {
		for _, t := range s.Tags {
			counts[t]++
		}
	}
	result := make([]domain.TagCount, 0, len(counts))
	for tag, n := range counts {
		result = append(result, domain.TagCount{Tag: tag, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Tag < result[j].Tag
	})
	return result, nil
}

func (r *StoreRepository) TopStores(_ context.Context, minReviews, limit int) ([]domain.RankedStore, error) {
	r.db.mu.RLock()
	ratings := make(map[string][]int)
	for _, rv := range r.db.reviews {
		ratings[rv.StoreID] = append(ratings[rv.StoreID], rv.Rating)
	}
	r.db.mu.RUnlock()

	var ranked []domain.RankedStore
	for _, s := range r.snapshot() {
		rs := ratings[s.ID]
		if len(rs) < minReviews || len(rs) == 0 {
			continue
		}
		sum := 0
		for _, v := range rs {
			sum += v
		}
		ranked = append(ranked, domain.RankedStore{
			Store:         s,
			AverageRating: float64(sum) / float64(len(rs)),
			ReviewCount:   len(rs),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.AverageRating != b.AverageRating {
			return a.AverageRating > b.AverageRating
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (r *StoreRepository) snapshot() []domain.Store {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	all := make([]domain.Store, 0, len(r.db.stores))
	for _, s := range r.db.stores {
		all = append(all, cloneStore(s))
	}
	return all
}

func sortNewestFirst(stores []domain.Store) {
	sort.SliceStable(stores, func(i, j int) bool {
		if !stores[i].CreatedAt.Equal(stores[j].CreatedAt) {
			return stores[i].CreatedAt.After(stores[j].CreatedAt)
		}
		return stores[i].ID > stores[j].ID
	})
}

func window(stores []domain.Store, skip, limit int) []domain.Store {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(stores) {
		return []domain.Store{}
	}
	stores = stores[skip:]
	if limit > 0 && len(stores) > limit {
		stores = stores[:limit]
	}
	return stores
}

// haversine returns the great-circle distance in meters between two lng/lat points.
func haversine(lng1, lat1, lng2, lat2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}
