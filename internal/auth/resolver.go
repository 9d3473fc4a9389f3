package auth

import (
	"context"
	"errors"
	"fmt"

	"analyst/internal/database"
	"analyst/internal/domain"
)

// UserLookup is the part of the user store the resolver depends on.
type UserLookup interface {
	GetByToken(ctx context.Context, token string) (domain.User, error)
	GetByBasicAuth(ctx context.Context, username, password string) (domain.User, error)
}

type Resolver struct {
	users UserLookup
}

func NewResolver(users UserLookup) *Resolver {
	return &Resolver{users: users}
}

// Resolve returns the active user the header identifies.
func (r *Resolver) Resolve(ctx context.Context, header string) (domain.User, error) {
	creds, err := ParseAuthorization(header)
	if err != nil {
		return domain.User{}, err
	}

	var user domain.User
	if creds.Token != "" {
		user, err = r.users.GetByToken(ctx, creds.Token)
	} else {
		user, err = r.users.GetByBasicAuth(ctx, creds.Username, creds.Password)
	}

	switch {
	case err == nil:
	case errors.Is(err, database.ErrNotFound):
		return domain.User{}, ErrUnknownCredentials
	default:
		return domain.User{}, fmt.Errorf("resolve caller: %w", err)
	}

	if !user.IsActive {
		return domain.User{}, ErrUnknownCredentials
	}
	return user, nil
}
