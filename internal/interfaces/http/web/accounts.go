package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/delicious-stores/api/internal/directory/application"
	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
	"github.com/sngm3741/delicious-stores/api/internal/interfaces/http/common"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password-confirm"`
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) error {
	h.render(w, r, http.StatusOK, "Login", nil, nil)
	return nil
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := h.accounts.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.logIn(w, r, user.ID, "Login Success")
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) error {
	h.sessions.Clear(w)
	h.flashes.Set(w, common.Flashes{}.Add(common.FlashSuccess, "You are now logged out"))
	common.Redirect(w, r, "/")
	return nil
}

func (h *Handler) registerForm(w http.ResponseWriter, r *http.Request) error {
	h.render(w, r, http.StatusOK, "Register", nil, nil)
	return nil
}

// register は失敗時にリダイレクトせず、入力値を添えて登録フォームを 400 で返す。
func (h *Handler) register(w http.ResponseWriter, r *http.Request) error {
	var cmd application.RegisterCommand
	if err := decodeJSON(r, &cmd); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := h.accounts.Register(ctx, cmd)
	if err != nil {
		var msgs []string
		if v, ok := domain.AsValidation(err); ok {
			msgs = v.Messages
		} else if errors.Is(err, domain.ErrDuplicateEmail) {
			msgs = []string{err.Error()}
		} else {
			return err
		}
		h.render(w, r, http.StatusBadRequest, "Register", map[string]any{
			"body": accountRequest{Name: cmd.Name, Email: cmd.Email},
		}, common.Flashes{}.Add(common.FlashError, msgs...))
		return nil
	}
	return h.logIn(w, r, user.ID, "Login Success")
}

func (h *Handler) accountForm(w http.ResponseWriter, r *http.Request) error {
	h.render(w, r, http.StatusOK, "Edit Your Account", nil, nil)
	return nil
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) error {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cmd := application.UpdateAccountCommand{Name: req.Name, Email: req.Email}
	if _, err := h.accounts.UpdateAccount(ctx, currentUser(r).ID, cmd); err != nil {
		return err
	}
	h.flashes.Set(w, common.Flashes{}.Add(common.FlashSuccess, "Updated the profile!"))
	common.Redirect(w, r, backLocation(r, fixedPath("/account")))
	return nil
}

func (h *Handler) forgot(w http.ResponseWriter, r *http.Request) error {
	var req forgotRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.resets.Forgot(ctx, req.Email, h.publicBaseURL(r)); err != nil {
		return err
	}
	h.recorder.ResetRequested()
	h.flashes.Set(w, common.Flashes{}.Add(common.FlashSuccess, "You have been emailed a password link."))
	common.Redirect(w, r, "/login")
	return nil
}

func (h *Handler) resetForm(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	token := chi.URLParam(r, "token")
	if _, err := h.resets.Validate(ctx, token); err != nil {
		return err
	}
	h.render(w, r, http.StatusOK, "Reset your password", map[string]any{"token": token}, nil)
	return nil
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) error {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := h.resets.Reset(ctx, chi.URLParam(r, "token"), req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return h.logIn(w, r, user.ID, "Your password has been reset.")
}

func (h *Handler) logIn(w http.ResponseWriter, r *http.Request, userID, message string) error {
	if _, err := h.sessions.Issue(w, userID); err != nil {
		return err
	}
	h.flashes.Set(w, common.Flashes{}.Add(common.FlashSuccess, message))
	common.Redirect(w, r, "/")
	return nil
}

// publicBaseURL は設定値を優先し、未設定ならリクエストの Host から組み立てる。
func (h *Handler) publicBaseURL(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
