package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sngm3741/delicious-stores/api/internal/config"
	"github.com/sngm3741/delicious-stores/api/internal/directory/application"
	"github.com/sngm3741/delicious-stores/api/internal/infrastructure/cache"
	"github.com/sngm3741/delicious-stores/api/internal/infrastructure/mail"
	mongodoc "github.com/sngm3741/delicious-stores/api/internal/infrastructure/mongo"
	"github.com/sngm3741/delicious-stores/api/internal/interfaces/http/common"
	"github.com/sngm3741/delicious-stores/api/internal/interfaces/http/web"
	"github.com/sngm3741/delicious-stores/api/internal/jobs"
	"github.com/sngm3741/delicious-stores/api/internal/metrics"
	"github.com/sngm3741/delicious-stores/api/internal/validation"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

// Server は HTTP サーバーのライフサイクルを管理し、各ハンドラへ依存注入するコンポジションルート。
type Server struct {
	logger         *zap.Logger
	client         *mongo.Client
	tagCache       *cache.TagCache
	scheduler      *jobs.Scheduler
	metrics        *metrics.Metrics
	handler        *web.Handler
	limiter        *common.RateLimiter
	addr           string
	allowedOrigins []string
	sweepSchedule  string
	pingers        map[string]Pinger
}

// Services bundles the application services the HTTP layer depends on.
type Services struct {
	Stores   application.StoreService
	Accounts application.AccountService
	Resets   application.PasswordResetService
	Reviews  application.ReviewService
}

// New は Config と Mongo クライアントを受け取り、リポジトリ・サービス・ハンドラを組み立てた Server を返す。
func New(cfg config.Config, client *mongo.Client, logger *zap.Logger) (*Server, error) {
	database := client.Database(cfg.MongoDatabase)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := mongodoc.EnsureIndexes(ctx, database, mongodoc.Collections{
		Stores:  cfg.StoreCollection,
		Users:   cfg.UserCollection,
		Reviews: cfg.ReviewCollection,
	}); err != nil {
		return nil, err
	}

	storeRepo := mongodoc.NewStoreRepository(database, cfg.StoreCollection, cfg.ReviewCollection)
	userRepo := mongodoc.NewUserRepository(database, cfg.UserCollection)
	reviewRepo := mongodoc.NewReviewRepository(database, cfg.ReviewCollection)

	var tagCache application.TagCache = application.NopTagCache{}
	var redisCache *cache.TagCache
	if cfg.RedisURL != "" {
		c, err := cache.NewTagCache(cfg.RedisURL, cfg.TagCacheTTL, logger)
		if err != nil {
			return nil, err
		}
		redisCache, tagCache = c, c
	}

	mailer, err := newMailer(cfg.Mail, logger)
	if err != nil {
		return nil, err
	}

	services := NewServices(cfg, Repositories{
		Stores:  storeRepo,
		Users:   userRepo,
		Reviews: reviewRepo,
		Tags:    tagCache,
	}, mailer, bcrypt.DefaultCost)

	srv := build(cfg, services, logger)
	srv.client = client
	srv.tagCache = redisCache
	srv.pingers["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	if redisCache != nil {
		srv.pingers["redis"] = redisCache.Ping
	}
	return srv, nil
}

// Repositories bundles the persistence ports.
type Repositories struct {
	Stores  application.StoreRepository
	Users   application.UserRepository
	Reviews application.ReviewRepository
	Tags    application.TagCache
}

// NewServices builds the application services over repos.
func NewServices(cfg config.Config, repos Repositories, mailer application.Mailer, bcryptCost int) Services {
	validate := validation.New()
	return Services{
		Stores: application.NewStoreService(repos.Stores, repos.Reviews, repos.Users, repos.Tags, validate, application.StoreOptions{
			PerPage:         cfg.StoresPerPage,
			NearMaxDistance: cfg.NearMaxDistance,
		}),
		Accounts: application.NewAccountService(repos.Users, repos.Stores, validate, bcryptCost),
		Resets:   application.NewPasswordResetService(repos.Users, mailer, validate, cfg.ResetTokenTTL, bcryptCost),
		Reviews:  application.NewReviewService(repos.Reviews, repos.Stores, validate),
	}
}

func newMailer(cfg config.MailConfig, logger *zap.Logger) (application.Mailer, error) {
	renderer, err := mail.NewRenderer()
	if err != nil {
		return nil, err
	}
	if cfg.Host == "" {
		logger.Warn("MAIL_HOST not set, password reset mail will only be logged")
		return mail.NewLogMailer(renderer, logger), nil
	}
	return mail.New(mail.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.User,
		Password: cfg.Password,
		From:     cfg.From,
	}, renderer, logger), nil
}

func build(cfg config.Config, services Services, logger *zap.Logger) *Server {
	m := metrics.New()
	handler := web.NewHandler(web.Config{
		Logger:   logger,
		Stores:   services.Stores,
		Accounts: services.Accounts,
		Resets:   services.Resets,
		Reviews:  services.Reviews,
		Sessions: common.NewSessions(common.SessionConfig{
			Secret: cfg.SessionSecret,
			TTL:    cfg.SessionTTL,
			Issuer: cfg.SessionIssuer,
			Secure: cfg.SessionCookieSecure,
		}),
		Flashes:       common.NewFlashStore(cfg.SessionSecret, cfg.SessionCookieSecure),
		Recorder:      m,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	return &Server{
		logger:         logger,
		scheduler:      jobs.NewScheduler(services.Resets, m, logger),
		metrics:        m,
		handler:        handler,
		limiter:        common.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
		addr:           cfg.Addr,
		allowedOrigins: append([]string(nil), cfg.AllowedOrigins...),
		sweepSchedule:  cfg.ResetSweepSchedule,
		pingers:        make(map[string]Pinger),
	}
}

// Router はミドルウェアとルーティングを組み立てる。インフラ初期化に限定し、ドメインロジックは書かない。
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(common.RequestLogger(s.logger))
	router.Use(middleware.Recoverer)
	router.Use(s.metrics.Instrument)
	router.Use(withCORS(s.allowedOrigins))

	router.Get("/healthz", s.healthHandler())
	router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	s.handler.Register(router, s.limiter.Handler)
	router.NotFound(web.NotFound(s.logger))
	return router
}

// Run はHTTPサーバーと定期ジョブを起動し、シグナル受信まで待機する。
func (s *Server) Run() error {
	if err := s.scheduler.Start(s.sweepSchedule); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP サーバー起動", zap.String("addr", s.addr))
		errChan <- httpServer.ListenAndServe()
	}()

	return waitForShutdown(httpServer, errChan, s)
}

// withCORS は許可されたオリジン情報をもとに CORS ヘッダーを付与するミドルウェアを返す。
func withCORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || (!allowAll && !originAllowed(origin, allowed)) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
			w.Header().Set("Access-Control-Max-Age", "300")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed は指定された Origin が許可リストに含まれるか判定する。
func originAllowed(origin string, allowed map[string]struct{}) bool {
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[origin]
	return ok
}

// healthHandler は MongoDB(と設定されていれば Redis)への疎通確認を行う。ドメインの状態は返さない。
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		for name, ping := range s.pingers {
			if err := ping(ctx); err != nil {
				common.WriteJSON(s.logger, w, http.StatusServiceUnavailable, map[string]string{
					"status":    "degraded",
					"component": name,
					"error":     err.Error(),
				})
				return
			}
		}

		common.WriteJSON(s.logger, w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

// httpShutdowner は graceful shutdown できる HTTP サーバー。
type httpShutdowner interface {
	Shutdown(ctx context.Context) error
}

type stopStep struct {
	name string
	stop func(ctx context.Context) error
}

// stopSequence は cron → HTTP → Redis → MongoDB の順で停止手順を返す。未設定のものは含めない。
func (s *Server) stopSequence(httpServer httpShutdowner) []stopStep {
	steps := []stopStep{{name: "cron", stop: func(ctx context.Context) error {
		s.scheduler.Stop(ctx)
		return nil
	}}}
	if httpServer != nil {
		steps = append(steps, stopStep{name: "http", stop: httpServer.Shutdown})
	}
	if s.tagCache != nil {
		steps = append(steps, stopStep{name: "redis", stop: func(context.Context) error { return s.tagCache.Close() }})
	}
	if s.client != nil {
		steps = append(steps, stopStep{name: "mongo", stop: s.client.Disconnect})
	}
	return steps
}

// shutdown は stopSequence をタイムアウト付きで順に実行する。
func (s *Server) shutdown(ctx context.Context, httpServer httpShutdowner) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, step := range s.stopSequence(httpServer) {
		if err := step.stop(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("停止処理でエラー", zap.String("component", step.name), zap.Error(err))
		}
	}
}

// waitForShutdown は ListenAndServe の終了と OS シグナルを監視し、graceful shutdown を実現する。
func waitForShutdown(httpServer *http.Server, errChan <-chan error, srv *Server) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.logger.Error("サーバーが異常終了", zap.Error(err))
			runErr = err
		}
	case sig := <-sigChan:
		srv.logger.Info("シグナルを受信。サーバー停止処理を開始します。", zap.String("signal", sig.String()))
	}

	srv.shutdown(context.Background(), httpServer)
	return runErr
}
