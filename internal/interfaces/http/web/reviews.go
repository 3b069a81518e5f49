package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/delicious-stores/api/internal/directory/application"
	"github.com/sngm3741/delicious-stores/api/internal/interfaces/http/common"
)

func (h *Handler) addReview(w http.ResponseWriter, r *http.Request) error {
	var cmd application.AddReviewCommand
	if err := decodeJSON(r, &cmd); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if _, err := h.reviews.Add(ctx, currentUser(r), chi.URLParam(r, "id"), cmd); err != nil {
		return err
	}
	h.flashes.Set(w, common.Flashes{}.Add(common.FlashSuccess, "Review Saved!"))
	common.Redirect(w, r, backLocation(r, fixedPath("/stores")))
	return nil
}
