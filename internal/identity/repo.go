package identity

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence operations for User entities.
type Repository interface {
	// Create inserts a new user. A duplicate active email maps to Conflict.
	Create(ctx context.Context, user User) (User, error)

	// GetActiveByEmail returns the active, non-deleted user with the given
	// email, including the password hash for credential checks.
	GetActiveByEmail(ctx context.Context, email string) (User, error)

	// GetActiveByID returns the active, non-deleted user with the given id.
	GetActiveByID(ctx context.Context, id uuid.UUID) (User, error)

	// EmailTaken reports whether a non-deleted user holds the given email.
	EmailTaken(ctx context.Context, email string) (bool, error)
}
