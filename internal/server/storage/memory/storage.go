// Package memory provides the default in-process backing store for the event log
// and the presence tracker. Nothing survives a restart.
package memory

import (
	"sync"

	"github.com/iudanet/drawsync/internal/models"
)

// Storage keeps events in a slice ordered by seq and presence entries in a map
type Storage struct {
	presence map[string]models.PresenceEntry
	events   []models.SyncEvent
	lastSeq  int64
	eventsMu sync.RWMutex
	presMu   sync.RWMutex
	// последний ControlChange переживает вытеснение
	controlEnabled bool
	controlFound   bool
}

// New creates an empty in-memory storage
func New() *Storage {
	return &Storage{
		presence: make(map[string]models.PresenceEntry),
	}
}

// Close is a no-op kept for symmetry with persistent backends
func (s *Storage) Close() error {
	return nil
}
