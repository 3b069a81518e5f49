package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/delicious-stores/api/internal/directory/application"
	"github.com/sngm3741/delicious-stores/api/internal/interfaces/http/common"
)

const requestTimeout = 5 * time.Second

type locationRequest struct {
	Address     string    `json:"address"`
	Coordinates []float64 `json:"coordinates"`
}

type storeRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	Location    locationRequest `json:"location"`
	Photo       string          `json:"photo"`
}

func (req storeRequest) command() application.UpsertStoreCommand {
	cmd := application.UpsertStoreCommand{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Address:     req.Location.Address,
		Photo:       req.Photo,
	}
	if len(req.Location.Coordinates) == 2 {
		lng, lat := req.Location.Coordinates[0], req.Location.Coordinates[1]
		cmd.Lng, cmd.Lat = &lng, &lat
	}
	return cmd
}

func (h *Handler) storeList(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	page, _ := common.ParsePositiveInt(chi.URLParam(r, "page"), 1)
	listing, err := h.stores.List(ctx, page)
	if err != nil {
		return err
	}
	if len(listing.Stores) == 0 && page > 1 && listing.Count > 0 {
		h.flashes.Set(w, common.Flashes{}.Add(common.FlashInfo,
			fmt.Sprintf("Hey! You asked for page %d. But that doesn't exist. So I put you on page %d", page, listing.Pages)))
		common.Redirect(w, r, fmt.Sprintf("/stores/page/%d", listing.Pages))
		return nil
	}

	h.render(w, r, http.StatusOK, "Stores", map[string]any{
		"stores": toStoreViews(listing.Stores),
		"page":   listing.Page,
		"pages":  listing.Pages,
		"count":  listing.Count,
	}, nil)
	return nil
}

func (h *Handler) storeBySlug(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	detail, err := h.stores.BySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		return err
	}
	h.render(w, r, http.StatusOK, detail.Store.Name, map[string]any{
		"store":   toStoreView(detail.Store),
		"reviews": toReviewViews(detail.Reviews),
	}, nil)
	return nil
}

func (h *Handler) tagList(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	listing, err := h.stores.ByTag(ctx, chi.URLParam(r, "tag"))
	if err != nil {
		return err
	}
	h.render(w, r, http.StatusOK, "Tags", map[string]any{
		"tag":    listing.Tag,
		"tags":   toTagViews(listing.Tags),
		"stores": toStoreViews(listing.Stores),
	}, nil)
	return nil
}

func (h *Handler) topStores(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stores, err := h.stores.Top(ctx)
	if err != nil {
		return err
	}
	h.render(w, r, http.StatusOK, "★ Top Stores!", map[string]any{"stores": toRankedViews(stores)}, nil)
	return nil
}

func (h *Handler) mapPage(w http.ResponseWriter, r *http.Request) error {
	h.render(w, r, http.StatusOK, "Map", nil, nil)
	return nil
}

func (h *Handler) addStoreForm(w http.ResponseWriter, r *http.Request) error {
	h.render(w, r, http.StatusOK, "Add Store", nil, nil)
	return nil
}

func (h *Handler) createStore(w http.ResponseWriter, r *http.Request) error {
	var req storeRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	store, err := h.stores.Create(ctx, currentUser(r), req.command())
	if err != nil {
		return err
	}
	h.recorder.StoreCreated()
	h.flashes.Set(w, common.Flashes{}.Add(common.FlashSuccess,
		fmt.Sprintf("Successfully Created %s. Care to leave a review?", store.Name)))
	common.Redirect(w, r, "/store/"+store.Slug)
	return nil
}

func (h *Handler) editStoreForm(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	store, err := h.stores.EditForm(ctx, currentUser(r), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	h.render(w, r, http.StatusOK, "Edit "+store.Name, map[string]any{"store": toStoreView(*store)}, nil)
	return nil
}

func (h *Handler) updateStore(w http.ResponseWriter, r *http.Request) error {
	var req storeRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	store, err := h.stores.Update(ctx, currentUser(r), id, req.command())
	if err != nil {
		return err
	}
	h.flashes.Set(w, common.Flashes{}.Add(common.FlashSuccess,
		fmt.Sprintf("Successfully updated %s. View it at /store/%s", store.Name, store.Slug)))
	common.Redirect(w, r, editPath(r))
	return nil
}

func (h *Handler) heartedStores(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stores, err := h.stores.Hearted(ctx, currentUser(r))
	if err != nil {
		return err
	}
	h.render(w, r, http.StatusOK, "Hearted Stores", map[string]any{"stores": toStoreViews(stores)}, nil)
	return nil
}

func (h *Handler) searchStores(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stores, err := h.stores.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		return err
	}
	common.WriteJSON(h.logger, w, http.StatusOK, toStoreViews(stores))
	return nil
}

func (h *Handler) nearStores(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()
	lat, latOK := common.ParseFloat(query.Get("lat"))
	lng, lngOK := common.ParseFloat(query.Get("lng"))
	if !latOK || !lngOK {
		common.WriteError(h.logger, w, http.StatusBadRequest, "lat and lng query parameters are required")
		return nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stores, err := h.stores.Near(ctx, lng, lat)
	if err != nil {
		return err
	}
	common.WriteJSON(h.logger, w, http.StatusOK, toStoreViews(stores))
	return nil
}

func (h *Handler) toggleHeart(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, hearted, err := h.accounts.ToggleHeart(ctx, currentUser(r).ID, strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		return err
	}
	h.recorder.HeartToggled(hearted)
	view := toUserView(*user)
	common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{
		"hearted": hearted,
		"hearts":  view.Hearts,
		"user":    view,
	})
	return nil
}
