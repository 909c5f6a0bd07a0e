package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/iudanet/drawsync/internal/models"
)

// DefaultSubscriberBuffer размер буфера подписки по умолчанию
const DefaultSubscriberBuffer = 256

// NotificationKind тип уведомления подписчику
type NotificationKind string

const (
	// NotifyEvent новое событие журнала
	NotifyEvent NotificationKind = "event"
	// NotifyPresence изменилось число активных клиентов
	NotifyPresence NotificationKind = "presence"
)

// Notification единица доставки подписчику
type Notification struct {
	Event       *models.SyncEvent
	Kind        NotificationKind
	ActiveUsers int
}

// Subscription канал подписки на хаб.
// Канал закрывается при отписке или когда хаб отключил медленного подписчика.
type Subscription struct {
	ch      chan Notification
	id      uint64
	dropped atomic.Bool
	once    sync.Once
}

// C канал уведомлений
func (s *Subscription) C() <-chan Notification {
	return s.ch
}

// ID идентификатор подписки
func (s *Subscription) ID() uint64 {
	return s.id
}

// Dropped сообщает, что хаб отключил подписку из-за переполнения буфера
func (s *Subscription) Dropped() bool {
	return s.dropped.Load()
}

func (s *Subscription) close() {
	s.once.Do(func() {
		close(s.ch)
	})
}

// Hub рассылает уведомления всем подпискам.
// Publish никогда не блокируется: подписка с полным буфером отключается.
type Hub struct {
	subs   map[uint64]*Subscription
	logger *slog.Logger
	buffer int
	nextID uint64
	mu     sync.Mutex
	closed bool
}

// NewHub создает хаб с заданным размером буфера подписки
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	return &Hub{
		subs:   make(map[uint64]*Subscription),
		logger: logger,
		buffer: buffer,
	}
}

// Subscribe открывает подписку на все уведомления, опубликованные после вызова
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id: h.nextID,
		ch: make(chan Notification, h.buffer),
	}

	if h.closed {
		sub.close()
		return sub
	}

	h.subs[sub.id] = sub

	return sub
}

// Unsubscribe освобождает подписку. Повторный вызов безопасен.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs, sub.id)
	sub.close()
}

// Publish доставляет уведомление всем живым подпискам и возвращает число доставок
func (h *Hub) Publish(n Notification) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for id, sub := range h.subs {
		select {
		case sub.ch <- n:
			delivered++
		default:
			// Медленный подписчик не должен тормозить остальных:
			// он переподключится и догонит через since()
			delete(h.subs, id)
			sub.dropped.Store(true)
			sub.close()
			h.logger.Warn("Dropped slow subscriber", "subscription", id, "buffer", h.buffer)
		}
	}

	return delivered
}

// Count число живых подписок
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs)
}

// Close закрывает все подписки, новые подписки сразу закрыты
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		sub.close()
	}
}
