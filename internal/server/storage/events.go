package storage

import (
	"context"

	"github.com/iudanet/drawsync/internal/models"
)

// EventStorage defines the backing store of the event log.
// Implementations keep events ordered by sequence number and never reorder them.
type EventStorage interface {
	// InsertEvent stores an event with an already assigned sequence number.
	// Returns ErrDuplicateSeq if the sequence number is taken.
	InsertEvent(ctx context.Context, event models.SyncEvent) error

	// ListEventsAfter returns retained events with seq > after in ascending order.
	// Returns empty slice if nothing is retained past after.
	ListEventsAfter(ctx context.Context, after int64) ([]models.SyncEvent, error)

	// DeleteEventsBefore evicts events with seq < before and returns how many were removed
	DeleteEventsBefore(ctx context.Context, before int64) (int, error)

	// FirstSeq returns the lowest retained sequence number.
	// Returns ErrEventNotFound if the log is empty.
	FirstSeq(ctx context.Context) (int64, error)

	// LastSeq returns the highest sequence number ever stored, 0 for an empty store
	LastSeq(ctx context.Context) (int64, error)

	// CountEvents returns the number of retained events
	CountEvents(ctx context.Context) (int, error)

	// LastControl returns the flag of the latest ControlChange ever stored, evicted ones included.
	// found is false if no ControlChange was stored.
	LastControl(ctx context.Context) (enabled bool, found bool, err error)
}
