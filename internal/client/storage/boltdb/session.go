package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/drawsync/internal/client/storage"
	"github.com/iudanet/drawsync/internal/models"
)

// Второй процесс клиента (например, draw при запущенном watch) ждет блокировку файла
const fileLockTimeout = 5 * time.Second

var (
	keyClientID = []byte("client_id")
	keyToken    = []byte("moderator_token")
)

// SaveClientID сохраняет id клиента
func (s *Storage) SaveClientID(ctx context.Context, clientID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketSession)
		if err != nil {
			return err
		}
		if err := b.Put(keyClientID, []byte(clientID)); err != nil {
			return fmt.Errorf("failed to save client id: %w", err)
		}
		return nil
	})
}

// GetClientID возвращает сохраненный id клиента
func (s *Storage) GetClientID(ctx context.Context) (string, error) {
	var clientID string

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketSession)
		if err != nil {
			return err
		}
		data := b.Get(keyClientID)
		if data == nil {
			return storage.ErrNotFound
		}
		clientID = string(data)
		return nil
	})

	return clientID, err
}

// SaveToken сохраняет токен модератора
func (s *Storage) SaveToken(ctx context.Context, token models.ModeratorToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketSession)
		if err != nil {
			return err
		}
		if err := b.Put(keyToken, data); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		return nil
	})
}

// GetToken возвращает токен модератора
func (s *Storage) GetToken(ctx context.Context) (models.ModeratorToken, error) {
	var token models.ModeratorToken

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketSession)
		if err != nil {
			return err
		}
		data := b.Get(keyToken)
		if data == nil {
			return storage.ErrNotFound
		}
		if err := json.Unmarshal(data, &token); err != nil {
			return fmt.Errorf("failed to unmarshal token: %w", err)
		}
		return nil
	})

	return token, err
}

// DeleteToken удаляет токен модератора
func (s *Storage) DeleteToken(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketSession)
		if err != nil {
			return err
		}
		return b.Delete(keyToken)
	})
}
