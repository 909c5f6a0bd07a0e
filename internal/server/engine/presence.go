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

const (
	// DefaultPresenceTimeout клиент без контакта дольше этого считается ушедшим
	DefaultPresenceTimeout = 20 * time.Second
	// DefaultSweepInterval период фоновой очистки просроченных записей
	DefaultSweepInterval = 5 * time.Second
)

// Presence отслеживает активных клиентов по времени последнего контакта.
// При изменении числа активных клиентов вызывает onChange.
type Presence struct {
	store     storage.PresenceStorage
	logger    *slog.Logger
	now       func() time.Time
	onChange  func(active int)
	timeout   time.Duration
	lastCount int
	mu        sync.Mutex
}

// NewPresence создает трекер присутствия
func NewPresence(store storage.PresenceStorage, timeout time.Duration, logger *slog.Logger) *Presence {
	if timeout <= 0 {
		timeout = DefaultPresenceTimeout
	}

	return &Presence{
		store:   store,
		logger:  logger,
		now:     time.Now,
		timeout: timeout,
	}
}

// OnChange регистрирует получателя изменений числа активных клиентов
func (p *Presence) OnChange(fn func(active int)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.onChange = fn
}

// Touch создает или обновляет запись клиента.
// Возвращает true, если клиент появился впервые.
func (p *Presence) Touch(ctx context.Context, clientID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	created, err := p.store.TouchClient(ctx, clientID, p.now())
	if err != nil {
		return false, fmt.Errorf("failed to touch %s: %w", clientID, err)
	}

	// Клиент мог истечь, но еще не быть выметен: тогда касание тоже меняет счетчик
	p.notifyLocked(ctx)

	return created, nil
}

// Remove удаляет запись немедленно. Неизвестный клиент не ошибка: возвращается false.
func (p *Presence) Remove(ctx context.Context, clientID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.store.RemoveClient(ctx, clientID)
	if errors.Is(err, storage.ErrClientNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", clientID, err)
	}

	p.notifyLocked(ctx)

	return true, nil
}

// ActiveCount число клиентов, замеченных в пределах timeout.
// Учитывает истечение и между проходами очистки.
func (p *Presence) ActiveCount(ctx context.Context) (int, error) {
	count, err := p.store.CountActive(ctx, p.now().Add(-p.timeout))
	if err != nil {
		return 0, fmt.Errorf("failed to count active clients: %w", err)
	}
	return count, nil
}

// Active список активных клиентов
func (p *Presence) Active(ctx context.Context) ([]models.PresenceEntry, error) {
	entries, err := p.store.ListActive(ctx, p.now().Add(-p.timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to list active clients: %w", err)
	}
	return entries, nil
}

// SweepExpired удаляет записи старше timeout относительно now
func (p *Presence) SweepExpired(ctx context.Context, now time.Time) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	expired, err := p.store.DeleteExpired(ctx, now.Add(-p.timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to sweep presence: %w", err)
	}

	if len(expired) > 0 {
		p.logger.Info("Presence expired", "clients", expired)
	}

	p.notifyLocked(ctx)

	return expired, nil
}

// Run периодически очищает просроченные записи, пока ctx не отменен
func (p *Presence) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := p.SweepExpired(ctx, p.now()); err != nil {
				p.logger.Error("Presence sweep failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// notifyLocked вызывается под p.mu, поэтому уведомления идут в порядке изменений
func (p *Presence) notifyLocked(ctx context.Context) {
	count, err := p.store.CountActive(ctx, p.now().Add(-p.timeout))
	if err != nil {
		p.logger.Warn("Failed to count presence", "error", err)
		return
	}

	if count == p.lastCount {
		return
	}
	p.lastCount = count

	if p.onChange != nil {
		p.onChange(count)
	}
}
