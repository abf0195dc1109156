package shortener

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence operations for ShortLink entities.
// All lookups exclude soft-deleted links.
type Repository interface {
	// Create inserts a new link. A code collision with a non-deleted link
	// maps to Conflict.
	Create(ctx context.Context, link ShortLink) (ShortLink, error)

	// GetByCode returns the non-deleted link with the given code.
	GetByCode(ctx context.Context, code string) (ShortLink, error)

	// GetByID returns the non-deleted link with the given id.
	GetByID(ctx context.Context, id uuid.UUID) (ShortLink, error)

	// RecordClick atomically increments the click counter and appends one
	// click event, both in a single transaction keyed by the link's
	// immutable id. Returns NotFound if the link no longer exists.
	RecordClick(ctx context.Context, id uuid.UUID) error

	// ListByOwner returns the owner's non-deleted links, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]ShortLink, error)

	// UpdateDestination replaces the destination URL of a non-deleted link.
	UpdateDestination(ctx context.Context, id uuid.UUID, destinationURL string) (ShortLink, error)

	// SoftDelete marks a non-deleted link as deleted, freeing its code for
	// reuse. The row and its click events are retained.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}
