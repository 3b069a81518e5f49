package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sngm3741/delicious-stores/api/internal/directory/application"
	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

func TestRegisterNormalisesAndHashes(t *testing.T) {
	f := newFixture(t, nil)
	user := f.register(t, "  Wes Bos ", "  WES@Example.com ")

	assert.Equal(t, "Wes Bos", user.Name)
	assert.Equal(t, "wes@example.com", user.Email)
	assert.NotEqual(t, "secret", user.PasswordHash)
	assert.NotNil(t, user.Hearts)
	assert.NotEmpty(t, user.ID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "Wes", "wes@example.com")

	_, err := f.accounts.Register(context.Background(), application.RegisterCommand{
		Name: "Other", Email: "WES@example.com", Password: "x", PasswordConfirm: "x",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.accounts.Register(context.Background(), application.RegisterCommand{
		Name: "Wes", Email: "wes@example.com", Password: "a", PasswordConfirm: "b",
	})
	v, ok := domain.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Passwords do not match."}, v.Messages)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	registered := f.register(t, "Wes", "wes@example.com")

	user, err := f.accounts.Authenticate(ctx, " Wes@Example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	for _, tc := range []struct{ email, password string }{
		{"wes@example.com", "wrong"},
		{"nobody@example.com", "secret"},
		{"", "secret"},
		{"wes@example.com", ""},
	} {
		_, err := f.accounts.Authenticate(ctx, tc.email, tc.password)
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials, "%s/%s", tc.email, tc.password)
	}
}

func TestUpdateAccount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := f.register(t, "Wes", "wes@example.com")
	f.register(t, "Debbie", "debbie@example.com")

	updated, err := f.accounts.UpdateAccount(ctx, user.ID, application.UpdateAccountCommand{Name: " Wesley ", Email: "WESLEY@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Wesley", updated.Name)
	assert.Equal(t, "wesley@example.com", updated.Email)

	_, err = f.accounts.UpdateAccount(ctx, user.ID, application.UpdateAccountCommand{Name: "", Email: "bad"})
	v, ok := domain.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"You must provide a name.", "That email is not valid."}, v.Messages)

	_, err = f.accounts.UpdateAccount(ctx, user.ID, application.UpdateAccountCommand{Name: "Wes", Email: "debbie@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestToggleHeartTwiceRestoresMembership(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := f.register(t, "Wes", "wes@example.com")
	store := f.createStore(t, user, "Cafe")

	updated, hearted, err := f.accounts.ToggleHeart(ctx, user.ID, store.ID)
	require.NoError(t, err)
	assert.True(t, hearted)
	assert.Equal(t, []string{store.ID}, updated.Hearts)

	updated, hearted, err = f.accounts.ToggleHeart(ctx, user.ID, store.ID)
	require.NoError(t, err)
	assert.False(t, hearted)
	assert.Empty(t, updated.Hearts)

	updated, hearted, err = f.accounts.ToggleHeart(ctx, user.ID, store.ID)
	require.NoError(t, err)
	assert.True(t, hearted)
	assert.Equal(t, []string{store.ID}, updated.Hearts, "hearts never hold duplicates")
}

func TestToggleHeartUnknownStore(t *testing.T) {
	f := newFixture(t, nil)
	user := f.register(t, "Wes", "wes@example.com")

	_, _, err := f.accounts.ToggleHeart(context.Background(), user.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
