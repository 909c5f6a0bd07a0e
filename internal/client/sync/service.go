// Package sync держит локальную проекцию доски в согласии с журналом сервера
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	httpClient "github.com/iudanet/drawsync/internal/client/api"
	"github.com/iudanet/drawsync/internal/client/canvas"
	"github.com/iudanet/drawsync/internal/client/storage"
	"github.com/iudanet/drawsync/pkg/api"
)

// ErrNotJoined клиент еще не выполнил join
var ErrNotJoined = errors.New("not joined, run 'drawsync join' first")

const (
	// DefaultPollInterval период опроса в режиме poll
	DefaultPollInterval = 2 * time.Second
	// DefaultHeartbeatInterval если сервер не сообщил свой
	DefaultHeartbeatInterval = 5 * time.Second

	maxReconnectDelay = 30 * time.Second
)

// Result итог синхронизации проекции
type Result struct {
	Applied        int
	Strokes        int
	LastSeq        int64
	ActiveUsers    int
	DrawingEnabled bool
	Reset          bool
}

// Service синхронизация клиента с сервером
type Service struct {
	apiClient httpClient.ClientAPI
	store     storage.Storage
	logger    *slog.Logger
	heartbeat time.Duration
}

// NewService creates a new sync service
func NewService(apiClient httpClient.ClientAPI, store storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		apiClient: apiClient,
		store:     store,
		logger:    logger,
		heartbeat: DefaultHeartbeatInterval,
	}
}

// ClientID сохраненный id; ErrNotJoined, если join не выполнялся
func (s *Service) ClientID(ctx context.Context) (string, error) {
	id, err := s.store.GetClientID(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrNotJoined
	}
	if err != nil {
		return "", fmt.Errorf("failed to load client id: %w", err)
	}
	return id, nil
}

// Join присоединяется к доске. requested задает id явно, иначе берется
// сохраненный, а при его отсутствии сервер выдает новый.
func (s *Service) Join(ctx context.Context, requested string) (*api.JoinResponse, error) {
	clientID := requested
	if clientID == "" {
		id, err := s.ClientID(ctx)
		if err != nil && !errors.Is(err, ErrNotJoined) {
			return nil, err
		}
		clientID = id
	}

	resp, err := s.apiClient.Join(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveClientID(ctx, resp.ClientID); err != nil {
		return nil, fmt.Errorf("failed to save client id: %w", err)
	}

	if resp.HeartbeatIntervalMs > 0 {
		s.heartbeat = time.Duration(resp.HeartbeatIntervalMs) * time.Millisecond
	}

	s.logger.Info("Joined board", "client_id", resp.ClientID, "last_seq", resp.LastSeq, "active_users", resp.ActiveUsers)

	return resp, nil
}

// Leave сообщает серверу об уходе
func (s *Service) Leave(ctx context.Context) error {
	clientID, err := s.ClientID(ctx)
	if err != nil {
		return err
	}
	return s.apiClient.Leave(ctx, clientID)
}

// Draw отправляет отрезок от имени сохраненного клиента
func (s *Service) Draw(ctx context.Context, seg api.StrokeSegment) (*api.StrokeResponse, error) {
	clientID, err := s.ClientID(ctx)
	if err != nil {
		return nil, err
	}
	return s.apiClient.SubmitStroke(ctx, clientID, seg)
}

// Sync выполняет один poll и сохраняет проекцию
func (s *Service) Sync(ctx context.Context) (*Result, error) {
	proj, err := s.loadProjection(ctx)
	if err != nil {
		return nil, err
	}
	return s.syncOnce(ctx, proj)
}

func (s *Service) syncOnce(ctx context.Context, proj *canvas.Projection) (*Result, error) {
	// client_id в poll продлевает присутствие, отдельный heartbeat не нужен
	clientID, err := s.ClientID(ctx)
	if err != nil && !errors.Is(err, ErrNotJoined) {
		return nil, err
	}

	since := proj.LastSeq()
	resp, err := s.apiClient.Poll(ctx, clientID, since)
	if err != nil {
		return nil, err
	}

	events := fromAPIEvents(resp.Events)
	applied := len(events)
	if resp.Reset {
		s.logger.Info("Server requested rebuild", "local_seq", since, "server_seq", resp.LastSeq)
		proj.Rebuild(events)
	} else {
		applied = proj.ApplyAll(events)
	}
	proj.SetStatus(resp.ActiveUsers, resp.DrawingEnabled)

	if err := s.save(ctx, proj); err != nil {
		return nil, err
	}

	res := s.result(proj, applied)
	res.Reset = resp.Reset
	return res, nil
}

// Watch опрашивает сервер с периодом interval до отмены ctx.
// Ошибки сети не прерывают цикл.
func (s *Service) Watch(ctx context.Context, interval time.Duration, onUpdate func(Result)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	proj, err := s.loadProjection(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := s.syncOnce(ctx, proj)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			s.logger.Warn("Poll failed", "error", err)
		case res.Applied > 0 || res.Reset:
			onUpdate(*res)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Stream держит WebSocket подключение и переподключается с backoff.
// После разрыва продолжает с последнего примененного seq.
// Отрезки из strokes отправляются по тому же соединению; strokes может быть nil.
func (s *Service) Stream(ctx context.Context, onUpdate func(Result), strokes <-chan api.StrokeSegment) error {
	clientID, err := s.ClientID(ctx)
	if err != nil {
		return err
	}

	proj, err := s.loadProjection(ctx)
	if err != nil {
		return err
	}

	delay := time.Second
	for {
		stream, err := s.apiClient.DialStream(ctx, clientID, proj.LastSeq())
		if err == nil {
			delay = time.Second
			err = s.consume(ctx, stream, proj, onUpdate, strokes)
		}
		if ctx.Err() != nil {
			return nil
		}

		if httpClient.IsClosed(err) {
			s.logger.Debug("Stream closed by server, reconnecting", "error", err, "delay", delay)
		} else {
			s.logger.Warn("Stream disconnected, reconnecting", "error", err, "delay", delay)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, maxReconnectDelay)
	}
}

// consume читает поток до ошибки или отмены ctx
func (s *Service) consume(ctx context.Context, stream *httpClient.Stream, proj *canvas.Projection, onUpdate func(Result), strokes <-chan api.StrokeSegment) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				// Разблокирует Recv
				_ = stream.Close()
				return
			case <-ticker.C:
				if err := stream.SendHeartbeat(); err != nil {
					s.logger.Debug("Heartbeat failed", "error", err)
				}
			case seg, ok := <-strokes:
				if !ok {
					strokes = nil
					continue
				}
				if err := stream.SendStroke(seg); err != nil {
					s.logger.Warn("Failed to send stroke", "error", err)
				}
			}
		}
	}()
	defer func() { _ = stream.Close() }()

	for {
		in, err := stream.Recv()
		if err != nil {
			return err
		}

		if in.Ack != nil {
			if in.Ack.Accepted {
				s.logger.Debug("Stroke accepted", "seq", in.Ack.Seq)
			} else {
				s.logger.Warn("Stroke not accepted", "error", in.Ack.Error)
			}
			continue
		}

		msg := in.Message
		switch msg.Type {
		case api.StreamHello:
			enabled := msg.DrawingEnabled != nil && *msg.DrawingEnabled
			if msg.Reset {
				// Реплей после hello содержит весь журнал
				proj.Rebuild(nil)
			}
			proj.SetStatus(msg.ActiveUsers, enabled)
			if err := s.save(ctx, proj); err != nil {
				return err
			}
			res := s.result(proj, 0)
			res.Reset = msg.Reset
			onUpdate(*res)

		case api.StreamEvent:
			if msg.Event == nil || !proj.Apply(fromAPIEvent(*msg.Event)) {
				continue
			}
			if err := s.save(ctx, proj); err != nil {
				return err
			}
			onUpdate(*s.result(proj, 1))

		case api.StreamPresence:
			proj.SetActiveUsers(msg.ActiveUsers)
			onUpdate(*s.result(proj, 0))
		}
	}
}

func (s *Service) loadProjection(ctx context.Context) (*canvas.Projection, error) {
	state, err := s.store.LoadProjection(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load projection: %w", err)
	}
	return canvas.New(state), nil
}

func (s *Service) save(ctx context.Context, proj *canvas.Projection) error {
	if err := s.store.SaveProjection(context.WithoutCancel(ctx), proj.State()); err != nil {
		return fmt.Errorf("failed to save projection: %w", err)
	}
	return nil
}

func (s *Service) result(proj *canvas.Projection, applied int) *Result {
	state := proj.State()
	return &Result{
		Applied:        applied,
		Strokes:        len(state.Strokes),
		LastSeq:        state.LastSeq,
		ActiveUsers:    state.ActiveUsers,
		DrawingEnabled: state.DrawingEnabled,
	}
}
