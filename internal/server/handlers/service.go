package handlers

import (
	"context"

	"github.com/iudanet/drawsync/internal/models"
	"github.com/iudanet/drawsync/internal/server/engine"
)

// SessionService операции клиента над движком синхронизации
type SessionService interface {
	Join(ctx context.Context, clientID string) (engine.JoinResult, error)
	Heartbeat(ctx context.Context, clientID string) error
	Leave(ctx context.Context, clientID string) error
	SubmitStroke(ctx context.Context, clientID string, seg models.StrokeSegment) (models.SyncEvent, error)
	PollSince(ctx context.Context, clientID string, lastSeen int64) (engine.PollResult, error)
}

// StreamService подписка транспорта на хаб
type StreamService interface {
	Attach(ctx context.Context, clientID string, lastSeen int64) (*engine.Attachment, error)
	Detach(ctx context.Context, att *engine.Attachment)
	Heartbeat(ctx context.Context, clientID string) error
	SubmitStroke(ctx context.Context, clientID string, seg models.StrokeSegment) (models.SyncEvent, error)
}

// ModeratorService привилегированные операции
type ModeratorService interface {
	SubmitClear(ctx context.Context, clientID string) (models.SyncEvent, error)
	SetControl(ctx context.Context, clientID string, enabled bool) (models.SyncEvent, error)
	ActiveClients(ctx context.Context) ([]models.PresenceEntry, error)
}

// StatusService сводка состояния для health check
type StatusService interface {
	Status(ctx context.Context) (engine.Status, error)
}

// SecretChecker проверка общего секрета модератора
type SecretChecker interface {
	Verify(secret string) error
}
