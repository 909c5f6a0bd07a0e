package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/drawsync/internal/models"
	"github.com/iudanet/drawsync/internal/server/storage"
	"github.com/iudanet/drawsync/internal/validation"
)

// Config параметры движка синхронизации
type Config struct {
	Retention        int
	SubscriberBuffer int
	PresenceTimeout  time.Duration
	// DrawingDisabled запускает доску с приостановленным рисованием.
	// Без него флаг восстанавливается из последнего ControlChange журнала.
	DrawingDisabled bool
}

// JoinResult ответ на join: состояние, от которого клиент выбирает базовую точку since
type JoinResult struct {
	ClientID       string
	LastSeq        int64
	ActiveUsers    int
	DrawingEnabled bool
}

// PollResult pull-эквивалент подписки
type PollResult struct {
	Events         []models.SyncEvent
	LastSeq        int64
	ActiveUsers    int
	DrawingEnabled bool
	Reset          bool
}

// Attachment реплей и живая подписка, склеенные без пропусков и дублей:
// в Sub приходят только события с номером больше Replay.LastSeq.
type Attachment struct {
	Sub      *Subscription
	ClientID string
	Replay   PollResult
}

// Status сводка состояния движка
type Status struct {
	LastSeq        int64
	Retained       int
	ActiveUsers    int
	Subscribers    int
	DrawingEnabled bool
}

// Gateway единственная точка входа клиентских операций.
// Все мутации журнала и публикация выполняются в одной критической секции,
// поэтому порядок доставки совпадает с порядком номеров.
type Gateway struct {
	log      *EventLog
	presence *Presence
	control  *Control
	hub      *Hub
	logger   *slog.Logger
	newID    func() string
	// attached число открытых подписок на клиента; leave только при закрытии последней
	attached map[string]int
	mu       sync.RWMutex
	attachMu sync.Mutex
}

// NewGateway собирает движок поверх хранилищ событий и присутствия
func NewGateway(ctx context.Context, events storage.EventStorage, presence storage.PresenceStorage, cfg Config, logger *slog.Logger) (*Gateway, error) {
	retention := cfg.Retention
	if retention == 0 {
		retention = DefaultRetention
	}

	eventLog, err := NewEventLog(ctx, events, retention, logger)
	if err != nil {
		return nil, err
	}

	enabled, err := restoreControl(ctx, eventLog, events, cfg.DrawingDisabled, logger)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		log:      eventLog,
		presence: NewPresence(presence, cfg.PresenceTimeout, logger),
		control:  NewControl(enabled),
		hub:      NewHub(cfg.SubscriberBuffer, logger),
		logger:   logger,
		newID:    uuid.NewString,
		attached: make(map[string]int),
	}

	g.presence.OnChange(func(active int) {
		g.hub.Publish(Notification{Kind: NotifyPresence, ActiveUsers: active})
	})

	return g, nil
}

// restoreControl вычисляет начальный флаг рисования так, чтобы он совпадал
// с последним ControlChange журнала. Если флаг нужно закрыть при старте,
// в журнал добавляется ControlChange{false}.
func restoreControl(ctx context.Context, eventLog *EventLog, events storage.EventStorage, startDisabled bool, logger *slog.Logger) (bool, error) {
	enabled, found, err := events.LastControl(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to restore drawing state: %w", err)
	}
	if !found {
		enabled = true
	}

	if startDisabled && enabled {
		event, err := eventLog.Append(ctx, models.NewControlEvent(false))
		if err != nil {
			return false, fmt.Errorf("failed to log initial drawing state: %w", err)
		}
		logger.Info("Drawing paused at startup", "seq", event.Seq)
		return false, nil
	}

	if found {
		logger.Info("Drawing state restored", "enabled", enabled, "last_seq", eventLog.LastSeq())
	}
	return enabled, nil
}

// Run запускает фоновую очистку присутствия и блокируется до отмены ctx
func (g *Gateway) Run(ctx context.Context, sweepInterval time.Duration) {
	g.presence.Run(ctx, sweepInterval)
}

// Close закрывает все подписки
func (g *Gateway) Close() {
	g.hub.Close()
}

// Join регистрирует клиента. Пустой clientID заменяется новым UUID.
func (g *Gateway) Join(ctx context.Context, clientID string) (JoinResult, error) {
	if clientID == "" {
		clientID = g.newID()
	}
	if err := checkClientID(clientID); err != nil {
		return JoinResult{}, err
	}

	created, err := g.presence.Touch(ctx, clientID)
	if err != nil {
		return JoinResult{}, err
	}

	active, err := g.presence.ActiveCount(ctx)
	if err != nil {
		return JoinResult{}, err
	}

	g.mu.RLock()
	result := JoinResult{
		ClientID:       clientID,
		LastSeq:        g.log.LastSeq(),
		ActiveUsers:    active,
		DrawingEnabled: g.control.Enabled(),
	}
	g.mu.RUnlock()

	if created {
		g.logger.Info("Client joined", "client_id", clientID, "active_users", active)
	}

	return result, nil
}

// Heartbeat обновляет присутствие; heartbeat до join допустим и создает запись
func (g *Gateway) Heartbeat(ctx context.Context, clientID string) error {
	if err := checkClientID(clientID); err != nil {
		return err
	}

	_, err := g.presence.Touch(ctx, clientID)
	return err
}

// Leave удаляет присутствие немедленно; неизвестный клиент игнорируется
func (g *Gateway) Leave(ctx context.Context, clientID string) error {
	if err := checkClientID(clientID); err != nil {
		return err
	}

	removed, err := g.presence.Remove(ctx, clientID)
	if err != nil {
		return err
	}

	if removed {
		g.logger.Info("Client left", "client_id", clientID)
	}

	return nil
}

// SubmitStroke добавляет отрезок. Если рисование запрещено, возвращает
// ErrDrawingDisabled и ничего не добавляет.
func (g *Gateway) SubmitStroke(ctx context.Context, clientID string, seg models.StrokeSegment) (models.SyncEvent, error) {
	if err := checkClientID(clientID); err != nil {
		return models.SyncEvent{}, err
	}
	if err := validation.ValidateSegment(seg); err != nil {
		return models.SyncEvent{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	seg.AuthorID = clientID

	defer g.seen(ctx, clientID)

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.control.Enabled() {
		g.logger.Debug("Stroke dropped, drawing disabled", "client_id", clientID)
		return models.SyncEvent{}, ErrDrawingDisabled
	}

	return g.appendAndPublish(ctx, models.NewStrokeEvent(seg))
}

// SubmitClear добавляет Clear и вытесняет предыдущие события.
// Право модератора проверяет вызывающая сторона.
func (g *Gateway) SubmitClear(ctx context.Context, clientID string) (models.SyncEvent, error) {
	if clientID != "" {
		if err := checkClientID(clientID); err != nil {
			return models.SyncEvent{}, err
		}
		defer g.seen(ctx, clientID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	event, err := g.appendAndPublish(ctx, models.NewClearEvent(clientID))
	if err != nil {
		return models.SyncEvent{}, err
	}

	g.logger.Info("Canvas cleared", "seq", event.Seq, "author_id", clientID)

	return event, nil
}

// SetControl меняет флаг рисования и журналирует ControlChange.
// Событие добавляется и при неизменном значении, чтобы каждый вызов был наблюдаем.
func (g *Gateway) SetControl(ctx context.Context, clientID string, enabled bool) (models.SyncEvent, error) {
	if clientID != "" {
		if err := checkClientID(clientID); err != nil {
			return models.SyncEvent{}, err
		}
		defer g.seen(ctx, clientID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	event, err := g.appendAndPublish(ctx, models.NewControlEvent(enabled))
	if err != nil {
		return models.SyncEvent{}, err
	}

	// Флаг меняется только после успешной записи события
	changed := g.control.Set(enabled)

	g.logger.Info("Drawing control set", "seq", event.Seq, "enabled", enabled, "changed", changed, "author_id", clientID)

	return event, nil
}

// PollSince возвращает события после lastSeen вместе с текущим состоянием.
// Единственный побочный эффект: обновление присутствия, если clientID задан.
func (g *Gateway) PollSince(ctx context.Context, clientID string, lastSeen int64) (PollResult, error) {
	if clientID != "" {
		if err := checkClientID(clientID); err != nil {
			return PollResult{}, err
		}
		g.seen(ctx, clientID)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.snapshot(ctx, lastSeen)
}

// Attach регистрирует клиента, читает реплей и открывает подписку атомарно
// относительно добавлений: ни одно событие не попадет и в реплей, и в подписку.
func (g *Gateway) Attach(ctx context.Context, clientID string, lastSeen int64) (*Attachment, error) {
	if clientID == "" {
		clientID = g.newID()
	}
	if err := checkClientID(clientID); err != nil {
		return nil, err
	}

	// Счетчик растет до join: параллельный Detach старого соединения
	// не удалит присутствие нового
	g.retain(clientID)

	att, err := g.attach(ctx, clientID, lastSeen)
	if err != nil {
		g.release(ctx, clientID)
		return nil, err
	}
	return att, nil
}

func (g *Gateway) attach(ctx context.Context, clientID string, lastSeen int64) (*Attachment, error) {
	if _, err := g.Join(ctx, clientID); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	replay, err := g.snapshot(ctx, lastSeen)
	if err != nil {
		return nil, err
	}

	return &Attachment{
		ClientID: clientID,
		Replay:   replay,
		Sub:      g.hub.Subscribe(),
	}, nil
}

// Detach закрывает подписку. Закрытие последнего соединения клиента
// равносильно leave; другие открытые соединения сохраняют присутствие.
func (g *Gateway) Detach(ctx context.Context, att *Attachment) {
	if att == nil {
		return
	}

	g.hub.Unsubscribe(att.Sub)

	if att.ClientID == "" {
		return
	}
	g.release(ctx, att.ClientID)
}

func (g *Gateway) retain(clientID string) {
	g.attachMu.Lock()
	defer g.attachMu.Unlock()

	g.attached[clientID]++
}

// release под attachMu, чтобы leave не обогнал retain нового соединения
func (g *Gateway) release(ctx context.Context, clientID string) {
	g.attachMu.Lock()
	defer g.attachMu.Unlock()

	if n := g.attached[clientID]; n > 1 {
		g.attached[clientID] = n - 1
		return
	}
	delete(g.attached, clientID)

	if err := g.Leave(ctx, clientID); err != nil {
		g.logger.Warn("Failed to leave on detach", "client_id", clientID, "error", err)
	}
}

// ActiveClients список активных клиентов для модератора
func (g *Gateway) ActiveClients(ctx context.Context) ([]models.PresenceEntry, error) {
	return g.presence.Active(ctx)
}

// Status сводка для health и модератора
func (g *Gateway) Status(ctx context.Context) (Status, error) {
	retained, err := g.log.Retained(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to count retained events: %w", err)
	}

	active, err := g.presence.ActiveCount(ctx)
	if err != nil {
		return Status{}, err
	}

	return Status{
		LastSeq:        g.log.LastSeq(),
		Retained:       retained,
		ActiveUsers:    active,
		Subscribers:    g.hub.Count(),
		DrawingEnabled: g.control.Enabled(),
	}, nil
}

// appendAndPublish вызывается под g.mu
func (g *Gateway) appendAndPublish(ctx context.Context, candidate models.SyncEvent) (models.SyncEvent, error) {
	event, err := g.log.Append(ctx, candidate)
	if err != nil {
		return models.SyncEvent{}, err
	}

	published := event.Clone()
	g.hub.Publish(Notification{Kind: NotifyEvent, Event: &published})

	return event, nil
}

// snapshot вызывается под g.mu (чтение)
func (g *Gateway) snapshot(ctx context.Context, lastSeen int64) (PollResult, error) {
	window, err := g.log.Window(ctx, lastSeen)
	if err != nil {
		return PollResult{}, err
	}

	active, err := g.presence.ActiveCount(ctx)
	if err != nil {
		return PollResult{}, err
	}

	return PollResult{
		Events:         window.Events,
		Reset:          window.Reset,
		LastSeq:        g.log.LastSeq(),
		ActiveUsers:    active,
		DrawingEnabled: g.control.Enabled(),
	}, nil
}

// seen обновляет присутствие как побочный эффект операции; ошибка не фатальна
func (g *Gateway) seen(ctx context.Context, clientID string) {
	if _, err := g.presence.Touch(ctx, clientID); err != nil {
		g.logger.Warn("Failed to refresh presence", "client_id", clientID, "error", err)
	}
}

func checkClientID(clientID string) error {
	if err := validation.ValidateClientID(clientID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
