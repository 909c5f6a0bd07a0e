package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iudanet/drawsync/internal/models"
	"github.com/iudanet/drawsync/internal/server/storage"
)

// TouchClient создает или обновляет запись присутствия по правилу last-write-wins
func (s *Storage) TouchClient(_ context.Context, clientID string, seenAt time.Time) (bool, error) {
	s.presMu.Lock()
	defer s.presMu.Unlock()

	entry := models.PresenceEntry{ClientID: clientID, LastSeenAt: seenAt}

	existing, exists := s.presence[clientID]
	if !exists {
		s.presence[clientID] = entry
		return true, nil
	}

	// Более старое касание не откатывает время последнего контакта назад
	if entry.IsNewerThan(existing) {
		s.presence[clientID] = entry
	}

	return false, nil
}

// RemoveClient удаляет запись присутствия
func (s *Storage) RemoveClient(_ context.Context, clientID string) error {
	s.presMu.Lock()
	defer s.presMu.Unlock()

	if _, exists := s.presence[clientID]; !exists {
		return storage.ErrClientNotFound
	}
	delete(s.presence, clientID)

	return nil
}

// CountActive считает клиентов, замеченных позже cutoff
func (s *Storage) CountActive(_ context.Context, cutoff time.Time) (int, error) {
	s.presMu.RLock()
	defer s.presMu.RUnlock()

	count := 0
	for _, entry := range s.presence {
		if entry.LastSeenAt.After(cutoff) {
			count++
		}
	}

	return count, nil
}

// ListActive возвращает клиентов, замеченных позже cutoff
func (s *Storage) ListActive(_ context.Context, cutoff time.Time) ([]models.PresenceEntry, error) {
	s.presMu.RLock()
	defer s.presMu.RUnlock()

	result := make([]models.PresenceEntry, 0, len(s.presence))
	for _, entry := range s.presence {
		if entry.LastSeenAt.After(cutoff) {
			result = append(result, entry)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ClientID < result[j].ClientID
	})

	return result, nil
}

// DeleteExpired удаляет записи, не обновлявшиеся с момента cutoff
func (s *Storage) DeleteExpired(_ context.Context, cutoff time.Time) ([]string, error) {
	s.presMu.Lock()
	defer s.presMu.Unlock()

	var expired []string
	for id, entry := range s.presence {
		if !entry.LastSeenAt.After(cutoff) {
			expired = append(expired, id)
			delete(s.presence, id)
		}
	}
	sort.Strings(expired)

	return expired, nil
}
