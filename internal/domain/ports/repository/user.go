package repository

import (
	"context"

	"subscription-commerce/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

// UserRepository stores whole User aggregates keyed by e-mail.
type UserRepository interface {
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
	// Create inserts a new aggregate with Version 1.
	Create(ctx context.Context, tx Tx, u *model.User) error
	// Update writes the aggregate only if the stored version still equals
	// u.Version and bumps it on success. It returns false when a concurrent
	// writer got there first; the caller should re-read and retry.
	Update(ctx context.Context, tx Tx, u *model.User) (bool, error)
	// ListAll returns every user, ordered by e-mail.
	ListAll(ctx context.Context, tx Tx) ([]*model.User, error)
}
