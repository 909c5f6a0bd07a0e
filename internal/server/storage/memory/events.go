package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/iudanet/drawsync/internal/models"
	"github.com/iudanet/drawsync/internal/server/storage"
)

// InsertEvent добавляет событие в конец журнала.
// Номера должны строго возрастать, иначе возвращается ErrDuplicateSeq.
func (s *Storage) InsertEvent(_ context.Context, event models.SyncEvent) error {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()

	if event.Seq <= s.lastSeq {
		return fmt.Errorf("seq %d (last %d): %w", event.Seq, s.lastSeq, storage.ErrDuplicateSeq)
	}

	s.events = append(s.events, event.Clone())
	s.lastSeq = event.Seq

	if event.Kind == models.EventControl {
		s.controlEnabled = event.Enabled
		s.controlFound = true
	}

	return nil
}

// ListEventsAfter возвращает копии событий с seq > after
func (s *Storage) ListEventsAfter(_ context.Context, after int64) ([]models.SyncEvent, error) {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()

	idx := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].Seq > after
	})

	result := make([]models.SyncEvent, 0, len(s.events)-idx)
	for _, ev := range s.events[idx:] {
		result = append(result, ev.Clone())
	}

	return result, nil
}

// DeleteEventsBefore вытесняет события с seq < before
func (s *Storage) DeleteEventsBefore(_ context.Context, before int64) (int, error) {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()

	idx := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].Seq >= before
	})
	if idx == 0 {
		return 0, nil
	}

	// Копируем хвост, чтобы не удерживать вытесненные события в backing array
	rest := make([]models.SyncEvent, len(s.events)-idx)
	copy(rest, s.events[idx:])
	s.events = rest

	return idx, nil
}

// FirstSeq возвращает наименьший сохраненный номер
func (s *Storage) FirstSeq(_ context.Context) (int64, error) {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()

	if len(s.events) == 0 {
		return 0, storage.ErrEventNotFound
	}
	return s.events[0].Seq, nil
}

// LastSeq возвращает наибольший когда-либо сохраненный номер
func (s *Storage) LastSeq(_ context.Context) (int64, error) {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()

	return s.lastSeq, nil
}

// CountEvents возвращает количество сохраненных событий
func (s *Storage) CountEvents(_ context.Context) (int, error) {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()

	return len(s.events), nil
}

// LastControl возвращает флаг последнего сохраненного ControlChange
func (s *Storage) LastControl(_ context.Context) (bool, bool, error) {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()

	return s.controlEnabled, s.controlFound, nil
}
