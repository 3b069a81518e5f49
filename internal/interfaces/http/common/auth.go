package common

import (
	"context"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

type contextKey string

const authUserContextKey contextKey = "authUser"

// ContextWithUser stores the authenticated user into context.
func ContextWithUser(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, authUserContextKey, user)
}

// UserFromContext extracts the authenticated user from context.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(authUserContextKey).(domain.User)
	return user, ok
}
