package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	httpClient "github.com/iudanet/drawsync/internal/client/api"
	"github.com/iudanet/drawsync/internal/client/storage"
	"github.com/iudanet/drawsync/internal/models"
	"github.com/iudanet/drawsync/pkg/api"
)

// ErrLoginRequired нет действующего токена модератора
var ErrLoginRequired = errors.New("moderator login required, run 'drawsync login' first")

// Login обменивает общий секрет на токен модератора и сохраняет его
func (s *Service) Login(ctx context.Context, secret string) (*models.ModeratorToken, error) {
	// Без join модератор действует анонимно
	clientID, err := s.ClientID(ctx)
	if err != nil && !errors.Is(err, ErrNotJoined) {
		return nil, err
	}

	resp, err := s.apiClient.ModeratorLogin(ctx, api.ModeratorLoginRequest{Secret: secret, ClientID: clientID})
	if err != nil {
		return nil, err
	}

	token := models.ModeratorToken{AccessToken: resp.AccessToken}
	if resp.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Unix() + resp.ExpiresIn
	}

	if err := s.store.SaveToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	s.logger.Info("Moderator logged in", "client_id", clientID)
	return &token, nil
}

// Logout удаляет сохраненный токен
func (s *Service) Logout(ctx context.Context) error {
	return s.store.DeleteToken(ctx)
}

// Clear очищает доску
func (s *Service) Clear(ctx context.Context) (*api.EventResponse, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return checkAuth(s.apiClient.Clear(ctx, token))
}

// SetDrawing включает или выключает рисование для всех
func (s *Service) SetDrawing(ctx context.Context, enabled bool) (*api.EventResponse, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return checkAuth(s.apiClient.SetControl(ctx, token, enabled))
}

// Presence список активных клиентов
func (s *Service) Presence(ctx context.Context) (*api.PresenceResponse, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return checkAuth(s.apiClient.Presence(ctx, token))
}

func (s *Service) token(ctx context.Context) (string, error) {
	token, err := s.store.GetToken(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrLoginRequired
	}
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	if token.Expired(time.Now().Unix()) {
		return "", ErrLoginRequired
	}
	return token.AccessToken, nil
}

// checkAuth превращает 401 в ErrLoginRequired: токен отозван сменой секрета сервера
func checkAuth[T any](resp T, err error) (T, error) {
	if errors.Is(err, httpClient.ErrUnauthorized) {
		return resp, fmt.Errorf("%w: %w", ErrLoginRequired, err)
	}
	return resp, err
}
