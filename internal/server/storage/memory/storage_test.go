package memory

import (
	"testing"

	"github.com/iudanet/drawsync/internal/server/storage"
	"github.com/iudanet/drawsync/internal/server/storage/storagetest"
)

func TestStorage_Events(t *testing.T) {
	storagetest.RunEventStorage(t, func(t *testing.T) storage.EventStorage {
		return New()
	})
}

func TestStorage_Presence(t *testing.T) {
	storagetest.RunPresenceStorage(t, func(t *testing.T) storage.PresenceStorage {
		return New()
	})
}
