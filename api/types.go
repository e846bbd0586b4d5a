package api

import (
	"context"

	"todosync/domain"
)

// Storage abstracts persistence for handlers. Both storage.Store and the
// Redis-caching storage.Cache satisfy it.
type Storage interface {
	CreateTask(ctx context.Context, t domain.Task) error
	DeleteTask(ctx context.Context, id, owner string) error
	UpdateContent(ctx context.Context, id, owner, content string) error
	UpdateDone(ctx context.Context, id, owner string, done bool) error
	ListByOwner(ctx context.Context, owner string) ([]domain.Task, error)
	AddUser(ctx context.Context, email, passwordHash string) error
	PasswordHash(ctx context.Context, email string) (string, error)
	DeleteUser(ctx context.Context, email string) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// TokenIssuer signs session credentials after a successful login.
type TokenIssuer interface {
	Issue(email string) (string, error)
}
