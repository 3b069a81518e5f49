package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sngm3741/delicious-stores/api/internal/directory/application"
	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
	"github.com/sngm3741/delicious-stores/api/internal/infrastructure/memory"
	"github.com/sngm3741/delicious-stores/api/internal/validation"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, msg application.MailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type mockTagCache struct {
	mock.Mock
}

func (m *mockTagCache) Get(ctx context.Context) ([]domain.TagCount, int64, bool) {
	args := m.Called(ctx)
	generation := args.Get(1).(int64)
	if args.Get(0) == nil {
		return nil, generation, args.Bool(2)
	}
	return args.Get(0).([]domain.TagCount), generation, args.Bool(2)
}

func (m *mockTagCache) Set(ctx context.Context, generation int64, tags []domain.TagCount) {
	m.Called(ctx, generation, tags)
}

func (m *mockTagCache) Invalidate(ctx context.Context) {
	m.Called(ctx)
}

type fixture struct {
	db       *memory.DB
	stores   application.StoreService
	accounts application.AccountService
	resets   application.PasswordResetService
	reviews  application.ReviewService
	mailer   *mockMailer
}

func newFixture(t *testing.T, tags application.TagCache) *fixture {
	t.Helper()
	db := memory.NewDB()
	validate := validation.New()
	mailer := new(mockMailer)
	return &fixture{
		db:       db,
		stores:   application.NewStoreService(db.Stores(), db.Reviews(), db.Users(), tags, validate, application.StoreOptions{}),
		accounts: application.NewAccountService(db.Users(), db.Stores(), validate, bcrypt.MinCost),
		resets:   application.NewPasswordResetService(db.Users(), mailer, validate, 0, bcrypt.MinCost),
		reviews:  application.NewReviewService(db.Reviews(), db.Stores(), validate),
		mailer:   mailer,
	}
}

func (f *fixture) register(t *testing.T, name, email string) domain.User {
	t.Helper()
	user, err := f.accounts.Register(context.Background(), application.RegisterCommand{
		Name: name, Email: email, Password: "secret", PasswordConfirm: "secret",
	})
	require.NoError(t, err)
	return *user
}

func (f *fixture) createStore(t *testing.T, owner domain.User, name string, tags ...string) domain.Store {
	t.Helper()
	store, err := f.stores.Create(context.Background(), owner, storeCommand(name, tags...))
	require.NoError(t, err)
	return *store
}

func storeCommand(name string, tags ...string) application.UpsertStoreCommand {
	lng, lat := -79.8711, 43.2557
	return application.UpsertStoreCommand{
		Name:        name,
		Description: "A place called " + name,
		Tags:        tags,
		Lng:         &lng,
		Lat:         &lat,
		Address:     "123 King St W, Hamilton",
	}
}
