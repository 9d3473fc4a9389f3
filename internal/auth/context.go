package auth

import (
	"context"
	"errors"

	"analyst/internal/domain"
)

type contextKey string

const userKey contextKey = "auth.user"

var ErrUnauthenticated = errors.New("unauthenticated")

func WithUser(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (domain.User, error) {
	if ctx == nil {
		return domain.User{}, ErrUnauthenticated
	}
	if user, ok := ctx.Value(userKey).(domain.User); ok && user.ID > 0 {
		return user, nil
	}
	return domain.User{}, ErrUnauthenticated
}
