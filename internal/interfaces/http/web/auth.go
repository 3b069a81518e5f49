package web

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
	"github.com/sngm3741/delicious-stores/api/internal/interfaces/http/common"
)

// loadUser はセッションが有効ならユーザーをコンテキストへ詰める。無効・未ログインでも処理は続行する。
func (h *Handler) loadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.sessions.UserID(r)
		if err != nil {
			if !errors.Is(err, common.ErrNoSession) {
				h.sessions.Clear(w)
			}
			next.ServeHTTP(w, r)
			return
		}

		user, err := h.accounts.Get(r.Context(), userID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.sessions.Clear(w)
		case err != nil:
			h.logger.Warn("session user lookup failed", zap.String("user_id", userID), zap.Error(err))
		default:
			r = r.WithContext(common.ContextWithUser(r.Context(), *user))
		}
		next.ServeHTTP(w, r)
	})
}

// requireLogin はページ系ルート用。未ログインならフラッシュを付けて /login へ戻す。
func (h *Handler) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := common.UserFromContext(r.Context()); !ok {
			h.flashes.Set(w, common.Flashes{}.Add(common.FlashError, "Please log in."))
			common.Redirect(w, r, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAPIUser は /api 用。未ログインなら 401 JSON を返す。
func (h *Handler) requireAPIUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := common.UserFromContext(r.Context()); !ok {
			common.WriteError(h.logger, w, http.StatusUnauthorized, "You must be logged in to do that.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// currentUser is only called behind requireLogin or requireAPIUser.
func currentUser(r *http.Request) domain.User {
	user, _ := common.UserFromContext(r.Context())
	return user
}
