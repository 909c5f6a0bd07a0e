// Package storage описывает локальное хранилище клиента доски
package storage

import (
	"context"

	"github.com/iudanet/drawsync/internal/models"
)

// SessionStorage идентичность клиента между запусками
type SessionStorage interface {
	// SaveClientID сохраняет id, выданный сервером или заданный пользователем
	SaveClientID(ctx context.Context, clientID string) error

	// GetClientID возвращает ErrNotFound, если клиент еще не присоединялся
	GetClientID(ctx context.Context) (string, error)
}

// ProjectionStorage проекция доски
type ProjectionStorage interface {
	// SaveProjection заменяет сохраненную проекцию целиком
	SaveProjection(ctx context.Context, state models.CanvasState) error

	// LoadProjection возвращает пустое состояние с DrawingEnabled=true, если ничего не сохранено
	LoadProjection(ctx context.Context) (models.CanvasState, error)
}

// TokenStorage токен модератора
type TokenStorage interface {
	SaveToken(ctx context.Context, token models.ModeratorToken) error

	// GetToken возвращает ErrNotFound, если вход не выполнялся
	GetToken(ctx context.Context) (models.ModeratorToken, error)

	// DeleteToken удаляет токен; отсутствие токена не ошибка
	DeleteToken(ctx context.Context) error
}

// Storage все хранилища клиента
type Storage interface {
	SessionStorage
	ProjectionStorage
	TokenStorage
}
