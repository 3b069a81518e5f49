package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sngm3741/delicious-stores/api/internal/config"
	"github.com/sngm3741/delicious-stores/api/internal/directory/application"
	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
	"github.com/sngm3741/delicious-stores/api/internal/infrastructure/mail"
	mongodoc "github.com/sngm3741/delicious-stores/api/internal/infrastructure/mongo"
	"github.com/sngm3741/delicious-stores/api/internal/logging"
	"github.com/sngm3741/delicious-stores/api/internal/server"
)

type seedOptions struct {
	reviewCount     int
	dropCollections bool
	randomSeed      int64
	password        string
}

type seedUser struct {
	name  string
	email string
}

type seedStore struct {
	name        string
	description string
	tags        []string
	lng, lat    float64
	address     string
	owner       int
}

var seedUsers = []seedUser{
	{name: "Wes Bos", email: "wes@example.com"},
	{name: "Debbie Downer", email: "debbie@example.com"},
	{name: "Beau", email: "beau@example.com"},
}

var seedStores = []seedStore{
	{name: "Charcoal Grill", description: "Burgers and shawarma cooked over charcoal.", tags: []string{"Family Friendly", "Licensed"}, lng: -79.8711, lat: 43.2557, address: "123 King St W, Hamilton, ON", owner: 0},
	{name: "Cafe Nuvo", description: "Espresso, pastries and a quiet patio.", tags: []string{"Wifi", "Open Late", "Vegetarian"}, lng: -79.8680, lat: 43.2590, address: "45 James St N, Hamilton, ON", owner: 0},
	{name: "Cafe Nuvo", description: "The second location with a bigger roaster.", tags: []string{"Wifi"}, lng: -79.8900, lat: 43.2620, address: "900 Locke St S, Hamilton, ON", owner: 1},
	{name: "Mustard Seed", description: "Local produce market with a hot bar.", tags: []string{"Vegetarian", "Family Friendly"}, lng: -79.8600, lat: 43.2500, address: "10 Queen St, Hamilton, ON", owner: 1},
	{name: "The Ship", description: "Pub fare, pints and trivia nights.", tags: []string{"Licensed", "Open Late"}, lng: -79.8750, lat: 43.2570, address: "23 Augusta St, Hamilton, ON", owner: 2},
	{name: "Saint James", description: "Sandwiches, soups and excellent coffee.", tags: []string{"Wifi", "Vegetarian"}, lng: -79.8690, lat: 43.2610, address: "170 James St N, Hamilton, ON", owner: 2},
}

var reviewTexts = []string{
	"Great food, friendly staff.",
	"Would come back for the coffee alone.",
	"A little loud on weekends but worth it.",
	"Portions were huge!",
	"Not my favourite, but the patio is lovely.",
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("環境変数の読み込みに失敗しました: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗しました: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("MongoDB 接続に失敗しました", zap.Error(err))
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	db := client.Database(cfg.MongoDatabase)
	names := mongodoc.Collections{Stores: cfg.StoreCollection, Users: cfg.UserCollection, Reviews: cfg.ReviewCollection}

	if opts.dropCollections {
		for _, name := range []string{names.Stores, names.Users, names.Reviews} {
			if err := db.Collection(name).Drop(ctx); err != nil {
				logger.Warn("コレクションの削除に失敗", zap.String("collection", name), zap.Error(err))
			}
		}
		logger.Info("既存コレクションを削除しました")
	}
	if err := mongodoc.EnsureIndexes(ctx, db, names); err != nil {
		logger.Fatal("インデックス作成に失敗しました", zap.Error(err))
	}

	renderer, err := mail.NewRenderer()
	if err != nil {
		logger.Fatal("メールテンプレートの読み込みに失敗しました", zap.Error(err))
	}
	services := server.NewServices(cfg, server.Repositories{
		Stores:  mongodoc.NewStoreRepository(db, names.Stores, names.Reviews),
		Users:   mongodoc.NewUserRepository(db, names.Users),
		Reviews: mongodoc.NewReviewRepository(db, names.Reviews),
		Tags:    application.NopTagCache{},
	}, mail.NewLogMailer(renderer, logger), bcrypt.DefaultCost)

	stats, err := seed(ctx, services, opts, rand.New(rand.NewSource(opts.randomSeed)))
	if err != nil {
		logger.Fatal("Seed に失敗しました", zap.Error(err))
	}
	logger.Info("Seed 完了",
		zap.Int("users", stats.users),
		zap.Int("stores", stats.stores),
		zap.Int("reviews", stats.reviews),
		zap.String("database", cfg.MongoDatabase),
	)
}

func parseFlags() seedOptions {
	var opts seedOptions
	flag.IntVar(&opts.reviewCount, "reviews", 20, "生成するレビュー数")
	flag.BoolVar(&opts.dropCollections, "drop", true, "既存コレクションを削除してから投入する")
	flag.StringVar(&opts.password, "password", "wes", "シードユーザー共通のパスワード")
	defaultSeed := time.Now().UnixNano()
	flag.Int64Var(&opts.randomSeed, "seed", defaultSeed, "乱数シード（再現用）")
	flag.Parse()
	return opts
}

type seedStats struct {
	users   int
	stores  int
	reviews int
}

func seed(ctx context.Context, services server.Services, opts seedOptions, rng *rand.Rand) (seedStats, error) {
	var stats seedStats

	users := make([]domain.User, 0, len(seedUsers))
	for _, u := range seedUsers {
		user, err := services.Accounts.Register(ctx, application.RegisterCommand{
			Name:            u.name,
			Email:           u.email,
			Password:        opts.password,
			PasswordConfirm: opts.password,
		})
		if errors.Is(err, domain.ErrDuplicateEmail) {
			user, err = services.Accounts.Authenticate(ctx, u.email, opts.password)
		}
		if err != nil {
			return stats, fmt.Errorf("user %s: %w", u.email, err)
		}
		users = append(users, *user)
		stats.users++
	}

	stores := make([]domain.Store, 0, len(seedStores))
	for _, s := range seedStores {
		lng, lat := s.lng, s.lat
		store, err := services.Stores.Create(ctx, users[s.owner%len(users)], application.UpsertStoreCommand{
			Name:        s.name,
			Description: s.description,
			Tags:        s.tags,
			Lng:         &lng,
			Lat:         &lat,
			Address:     s.address,
		})
		if err != nil {
			return stats, fmt.Errorf("store %s: %w", s.name, err)
		}
		stores = append(stores, *store)
		stats.stores++
	}

	for i := 0; i < opts.reviewCount; i++ {
		author := users[rng.Intn(len(users))]
		store := stores[rng.Intn(len(stores))]
		_, err := services.Reviews.Add(ctx, author, store.ID, application.AddReviewCommand{
			Text:   reviewTexts[rng.Intn(len(reviewTexts))],
			Rating: domain.MinRating + rng.Intn(domain.MaxRating),
		})
		if err != nil {
			return stats, fmt.Errorf("review for %s: %w", store.Slug, err)
		}
		stats.reviews++
	}

	for _, store := range stores[:2] {
		if _, _, err := services.Accounts.ToggleHeart(ctx, users[0].ID, store.ID); err != nil {
			return stats, fmt.Errorf("heart %s: %w", store.Slug, err)
		}
	}
	return stats, nil
}
