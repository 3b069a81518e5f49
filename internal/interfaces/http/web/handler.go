package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sngm3741/delicious-stores/api/internal/directory/application"
	"github.com/sngm3741/delicious-stores/api/internal/interfaces/http/common"
)

// Recorder receives domain events worth counting.
type Recorder interface {
	StoreCreated()
	HeartToggled(hearted bool)
	ResetRequested()
}

// Handler wires the directory's HTTP endpoints to application services.
type Handler struct {
	logger   *zap.Logger
	stores   application.StoreService
	accounts application.AccountService
	resets   application.PasswordResetService
	reviews  application.ReviewService
	sessions *common.Sessions
	flashes  *common.FlashStore
	recorder Recorder
	baseURL  string
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger        *zap.Logger
	Stores        application.StoreService
	Accounts      application.AccountService
	Resets        application.PasswordResetService
	Reviews       application.ReviewService
	Sessions      *common.Sessions
	Flashes       *common.FlashStore
	Recorder      Recorder
	PublicBaseURL string
}

// NewHandler constructs the directory HTTP handler set.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Handler{
		logger:   logger,
		stores:   cfg.Stores,
		accounts: cfg.Accounts,
		resets:   cfg.Resets,
		reviews:  cfg.Reviews,
		sessions: cfg.Sessions,
		flashes:  cfg.Flashes,
		recorder: recorder,
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

// Register mounts every route onto r. throttle guards the credential endpoints.
func (h *Handler) Register(r chi.Router, throttle func(http.Handler) http.Handler) {
	if throttle == nil {
		throttle = func(next http.Handler) http.Handler { return next }
	}

	r.Group(func(r chi.Router) {
		r.Use(h.loadUser)

		r.Get("/", h.page(fixedPath("/"), h.storeList))
		r.Get("/stores", h.page(fixedPath("/"), h.storeList))
		r.Get("/stores/page/{page}", h.page(fixedPath("/stores"), h.storeList))
		r.Get("/store/{slug}", h.page(fixedPath("/stores"), h.storeBySlug))
		r.Get("/tags", h.page(fixedPath("/"), h.tagList))
		r.Get("/tags/{tag}", h.page(fixedPath("/tags"), h.tagList))
		r.Get("/top", h.page(fixedPath("/"), h.topStores))
		r.Get("/map", h.page(fixedPath("/"), h.mapPage))

		r.Get("/login", h.page(fixedPath("/"), h.loginForm))
		r.With(throttle).Post("/login", h.page(fixedPath("/login"), h.login))
		r.Get("/logout", h.page(fixedPath("/"), h.logout))
		r.Get("/register", h.page(fixedPath("/"), h.registerForm))
		r.With(throttle).Post("/register", h.page(fixedPath("/register"), h.register))
		r.With(throttle).Post("/account/forgot", h.page(fixedPath("/login"), h.forgot))
		r.Get("/account/reset/{token}", h.page(fixedPath("/login"), h.resetForm))
		r.Post("/account/reset/{token}", h.page(resetPath, h.reset))

		r.Group(func(r chi.Router) {
			r.Use(h.requireLogin)
			r.Get("/add", h.page(fixedPath("/"), h.addStoreForm))
			r.Post("/add", h.page(fixedPath("/add"), h.createStore))
			r.Post("/add/{id}", h.page(editPath, h.updateStore))
			r.Get("/stores/{id}/edit", h.page(fixedPath("/stores"), h.editStoreForm))
			r.Get("/account", h.page(fixedPath("/"), h.accountForm))
			r.Post("/account", h.page(fixedPath("/account"), h.updateAccount))
			r.Get("/hearts", h.page(fixedPath("/"), h.heartedStores))
			r.Post("/reviews/{id}", h.page(fixedPath("/stores"), h.addReview))
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/search", h.api(h.searchStores))
			r.Get("/stores/near", h.api(h.nearStores))
			r.With(h.requireAPIUser).Post("/stores/{id}/heart", h.api(h.toggleHeart))
		})
	})
}

type nopRecorder struct{}

func (nopRecorder) StoreCreated()     {}
func (nopRecorder) HeartToggled(bool) {}
func (nopRecorder) ResetRequested()   {}
