package storage

import (
	"context"
	"time"

	"github.com/iudanet/drawsync/internal/models"
)

// PresenceStorage defines persistence of presence entries keyed by client id.
// Touch uses last-write-wins on LastSeenAt: an older timestamp never replaces a newer one.
type PresenceStorage interface {
	// TouchClient creates or refreshes a presence entry.
	// Returns true if the entry did not exist before.
	TouchClient(ctx context.Context, clientID string, seenAt time.Time) (bool, error)

	// RemoveClient deletes a presence entry.
	// Returns ErrClientNotFound if the client is unknown.
	RemoveClient(ctx context.Context, clientID string) error

	// CountActive returns the number of entries seen strictly after cutoff
	CountActive(ctx context.Context, cutoff time.Time) (int, error)

	// ListActive returns entries seen strictly after cutoff, ordered by client id
	ListActive(ctx context.Context, cutoff time.Time) ([]models.PresenceEntry, error)

	// DeleteExpired removes entries seen at or before cutoff and returns their ids
	DeleteExpired(ctx context.Context, cutoff time.Time) ([]string, error)
}
