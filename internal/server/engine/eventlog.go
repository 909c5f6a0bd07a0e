package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/drawsync/internal/models"
	"github.com/iudanet/drawsync/internal/server/storage"
)

// DefaultRetention количество событий, которое журнал хранит при отсутствии Clear
const DefaultRetention = 1000

// Window результат чтения журнала с базовой точки клиента
type Window struct {
	Events []models.SyncEvent
	// Reset выставлен, если клиент пропустил вытесненные события
	// (или его базовая точка из прошлой жизни сервера) и должен
	// пересобрать проекцию только из Events.
	Reset bool
}

// EventLog append-only журнал событий со сквозной нумерацией.
// Добавление сериализовано; после Clear все предыдущие события вытесняются.
type EventLog struct {
	store     storage.EventStorage
	seq       *Sequence
	logger    *slog.Logger
	now       func() time.Time
	retention int
	mu        sync.RWMutex
}

// NewEventLog создает журнал поверх хранилища и восстанавливает счетчик
// из последнего сохраненного номера. retention <= 0 отключает ограничение по размеру.
func NewEventLog(ctx context.Context, store storage.EventStorage, retention int, logger *slog.Logger) (*EventLog, error) {
	last, err := store.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore sequence: %w", err)
	}

	return &EventLog{
		store:     store,
		seq:       NewSequence(last),
		logger:    logger,
		now:       time.Now,
		retention: retention,
	}, nil
}

// Append назначает следующий номер и время, сохраняет событие и возвращает сохраненное значение.
// Номер фиксируется только после успешной записи, поэтому ошибка хранилища не оставляет дыр.
func (l *EventLog) Append(ctx context.Context, candidate models.SyncEvent) (models.SyncEvent, error) {
	if err := checkCandidate(candidate); err != nil {
		return models.SyncEvent{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	event := candidate.Clone()
	event.Seq = l.seq.Next()
	event.CreatedAt = l.now().UTC()

	if err := l.store.InsertEvent(ctx, event); err != nil {
		return models.SyncEvent{}, fmt.Errorf("failed to append event: %w", err)
	}
	l.seq.Tick()

	l.evict(ctx, event)

	return event, nil
}

// evict применяет политику хранения. Событие уже записано, поэтому
// ошибка вытеснения только логируется.
func (l *EventLog) evict(ctx context.Context, event models.SyncEvent) {
	var before int64
	switch {
	case event.Kind == models.EventClear:
		before = event.Seq
	case l.retention > 0 && event.Seq > int64(l.retention):
		before = event.Seq - int64(l.retention) + 1
	default:
		return
	}

	removed, err := l.store.DeleteEventsBefore(ctx, before)
	if err != nil {
		l.logger.Warn("Failed to evict events", "before", before, "error", err)
		return
	}

	if removed > 0 && event.Kind == models.EventClear {
		l.logger.Debug("Log truncated by clear", "seq", event.Seq, "evicted", removed)
	}
}

// Since возвращает события с номером строго больше lastSeen по возрастанию.
// Результат конечен, повторный вызов с тем же аргументом без новых добавлений дает тот же результат.
func (l *EventLog) Since(ctx context.Context, lastSeen int64) ([]models.SyncEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.since(ctx, lastSeen)
}

// SnapshotAll эквивалентен Since(0)
func (l *EventLog) SnapshotAll(ctx context.Context) ([]models.SyncEvent, error) {
	return l.Since(ctx, 0)
}

// Window как Since, но дополнительно сообщает, что клиенту нужно пересобрать проекцию
func (l *EventLog) Window(ctx context.Context, lastSeen int64) (Window, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if lastSeen < 0 {
		lastSeen = 0
	}

	// Базовая точка впереди журнала: клиент видел другую жизнь сервера
	if lastSeen > l.seq.Current() {
		events, err := l.since(ctx, 0)
		if err != nil {
			return Window{}, err
		}
		return Window{Events: events, Reset: true}, nil
	}

	events, err := l.since(ctx, lastSeen)
	if err != nil {
		return Window{}, err
	}

	first, err := l.store.FirstSeq(ctx)
	switch {
	case errors.Is(err, storage.ErrEventNotFound):
		return Window{Events: events}, nil
	case err != nil:
		return Window{}, fmt.Errorf("failed to read first seq: %w", err)
	}

	// Между базовой точкой и началом журнала есть вытесненные события.
	// Если журнал начинается с Clear, они клиенту не нужны.
	w := Window{Events: events}
	if first > lastSeen+1 && len(events) > 0 && events[0].Kind != models.EventClear {
		w.Reset = true
	}

	return w, nil
}

// LastSeq последний выданный номер
func (l *EventLog) LastSeq() int64 {
	return l.seq.Current()
}

// Retained количество событий, оставшихся после вытеснения
func (l *EventLog) Retained(ctx context.Context) (int, error) {
	return l.store.CountEvents(ctx)
}

func (l *EventLog) since(ctx context.Context, lastSeen int64) ([]models.SyncEvent, error) {
	events, err := l.store.ListEventsAfter(ctx, lastSeen)
	if err != nil {
		return nil, fmt.Errorf("failed to read events since %d: %w", lastSeen, err)
	}
	return events, nil
}

func checkCandidate(ev models.SyncEvent) error {
	if !ev.Kind.Valid() {
		return fmt.Errorf("%w: unknown event kind %q", ErrInvalidInput, ev.Kind)
	}
	if ev.Kind == models.EventStroke && ev.Stroke == nil {
		return fmt.Errorf("%w: stroke event without segment", ErrInvalidInput)
	}
	return nil
}

