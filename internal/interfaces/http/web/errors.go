package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
	"github.com/sngm3741/delicious-stores/api/internal/interfaces/http/common"
)

// handlerFunc is an endpoint that reports failures instead of writing them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// backFunc names the form a failed submission returns to when the request has no Referer.
type backFunc func(r *http.Request) string

func fixedPath(path string) backFunc {
	return func(*http.Request) string { return path }
}

func editPath(r *http.Request) string {
	return "/stores/" + url.PathEscape(chi.URLParam(r, "id")) + "/edit"
}

func resetPath(r *http.Request) string {
	return "/account/reset/" + url.PathEscape(chi.URLParam(r, "token"))
}

// badRequestError marks a body that could not be decoded.
type badRequestError struct {
	err error
}

func (e badRequestError) Error() string { return fmt.Sprintf("invalid request body: %v", e.err) }

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, common.MaxRequestBody))
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return badRequestError{err: err}
	}
	return nil
}

// page adapts fn for browser-style routes: validation failures become error flashes
// and a redirect back to the form, everything else is answered with a JSON error.
func (h *Handler) page(back backFunc, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		if v, ok := domain.AsValidation(err); ok {
			h.flashBack(w, r, back, v.Messages...)
			return
		}
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			h.flashBack(w, r, back, err.Error())
		case errors.Is(err, domain.ErrInvalidCredentials):
			h.flashes.Set(w, common.Flashes{}.Add(common.FlashError, err.Error()))
			common.Redirect(w, r, "/login")
		case errors.Is(err, domain.ErrInvalidResetToken):
			h.flashes.Set(w, common.Flashes{}.Add(common.FlashError, err.Error()))
			common.Redirect(w, r, "/login")
		default:
			h.writeError(w, r, err)
		}
	}
}

// api adapts fn for /api routes, which always answer JSON.
func (h *Handler) api(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		if v, ok := domain.AsValidation(err); ok {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string][]string{"errors": v.Messages})
			return
		}
		h.writeError(w, r, err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var badReq badRequestError
	switch {
	case errors.As(err, &badReq):
		common.WriteError(h.logger, w, http.StatusBadRequest, badReq.Error())
	case errors.Is(err, domain.ErrForbidden):
		common.WriteError(h.logger, w, http.StatusForbidden, domain.ErrForbidden.Error())
	case errors.Is(err, domain.ErrNotFound):
		common.WriteError(h.logger, w, http.StatusNotFound, "Not Found")
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		common.WriteError(h.logger, w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func (h *Handler) flashBack(w http.ResponseWriter, r *http.Request, back backFunc, msgs ...string) {
	h.flashes.Set(w, common.Flashes{}.Add(common.FlashError, msgs...))
	common.Redirect(w, r, backLocation(r, back))
}

// backLocation prefers a same-origin Referer, like a browser "back".
func backLocation(r *http.Request, back backFunc) string {
	if ref := r.Referer(); ref != "" {
		if u, err := url.Parse(ref); err == nil && (u.Host == "" || u.Host == r.Host) && u.Path != "" {
			if u.RawQuery != "" {
				return u.Path + "?" + u.RawQuery
			}
			return u.Path
		}
	}
	return back(r)
}

// NotFound answers unknown routes.
func NotFound(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		common.WriteError(logger, w, http.StatusNotFound, "Not Found")
	}
}
