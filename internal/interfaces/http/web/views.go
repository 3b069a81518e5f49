package web

import (
	"net/http"
	"time"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
	"github.com/sngm3741/delicious-stores/api/internal/interfaces/http/common"
)

type locationView struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
	Address     string     `json:"address"`
}

type storeView struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Description string       `json:"description,omitempty"`
	Tags        []string     `json:"tags"`
	Created     *time.Time   `json:"created,omitempty"`
	Location    locationView `json:"location"`
	Photo       string       `json:"photo,omitempty"`
	Author      string       `json:"author,omitempty"`
}

type rankedStoreView struct {
	storeView
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
}

type reviewView struct {
	ID      string    `json:"id"`
	Store   string    `json:"store"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	Rating  int       `json:"rating"`
	Created time.Time `json:"created"`
}

type userView struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Gravatar string   `json:"gravatar"`
	Hearts   []string `json:"hearts"`
}

type tagView struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

func toStoreView(s domain.Store) storeView {
	view := storeView{
		ID:          s.ID,
		Name:        s.Name,
		Slug:        s.Slug,
		Description: s.Description,
		Tags:        append([]string{}, s.Tags...),
		Location: locationView{
			Type:        s.Location.Type,
			Coordinates: s.Location.Coordinates,
			Address:     s.Location.Address,
		},
		Photo:  s.Photo,
		Author: s.AuthorID,
	}
	if !s.CreatedAt.IsZero() {
		created := s.CreatedAt
		view.Created = &created
	}
	return view
}

func toStoreViews(stores []domain.Store) []storeView {
	views := make([]storeView, 0, len(stores))
	for _, s := range stores {
		views = append(views, toStoreView(s))
	}
	return views
}

func toRankedViews(stores []domain.RankedStore) []rankedStoreView {
	views := make([]rankedStoreView, 0, len(stores))
	for _, s := range stores {
		views = append(views, rankedStoreView{
			storeView:     toStoreView(s.Store),
			AverageRating: s.AverageRating,
			ReviewCount:   s.ReviewCount,
		})
	}
	return views
}

func toReviewViews(reviews []domain.Review) []reviewView {
	views := make([]reviewView, 0, len(reviews))
	for _, rv := range reviews {
		views = append(views, reviewView{
			ID:      rv.ID,
			Store:   rv.StoreID,
			Author:  rv.AuthorID,
			Text:    rv.Text,
			Rating:  rv.Rating,
			Created: rv.CreatedAt,
		})
	}
	return views
}

func toUserView(u domain.User) userView {
	return userView{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Gravatar: u.Gravatar(),
		Hearts:   append([]string{}, u.Hearts...),
	}
}

func toTagViews(tags []domain.TagCount) []tagView {
	views := make([]tagView, 0, len(tags))
	for _, t := range tags {
		views = append(views, tagView{Tag: t.Tag, Count: t.Count})
	}
	return views
}

// render writes a view model: data plus title, the current user, the request path and
// the flashes queued by the previous request merged with extra.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, title string, data map[string]any, extra common.Flashes) {
	flashes := h.flashes.Consume(w, r)
	for kind, msgs := range extra {
		flashes.Add(kind, msgs...)
	}

	payload := make(map[string]any, len(data)+4)
	for k, v := range data {
		payload[k] = v
	}
	payload["title"] = title
	payload["flashes"] = flashes
	payload["currentPath"] = r.URL.Path
	if user, ok := common.UserFromContext(r.Context()); ok {
		payload["user"] = toUserView(user)
	} else {
		payload["user"] = nil
	}
	common.WriteJSON(h.logger, w, status, payload)
}
