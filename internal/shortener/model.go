package shortener

import (
	"time"

	"github.com/google/uuid"
)

// ShortLink maps a short code to a destination URL.
// Code is immutable after creation and unique among non-deleted links.
// ClickCount is mutated only by the click-recording path.
type ShortLink struct {
	ID             uuid.UUID
	Code           string
	DestinationURL string
	OwnerID        *uuid.UUID // nil for anonymously created links
	ClickCount     int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// ClickEvent is one recorded click on a short link. Append-only; events are
// never updated or deleted, and they survive deletion of their link as an
// audit trail.
type ClickEvent struct {
	ID          uuid.UUID
	ShortLinkID uuid.UUID
	OccurredAt  time.Time
}
