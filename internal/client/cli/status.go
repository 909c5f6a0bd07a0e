package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/drawsync/internal/client/storage"
	"github.com/iudanet/drawsync/internal/client/sync"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Board Status ===")
	c.io.Println()

	clientID, err := c.syncService.ClientID(ctx)
	switch {
	case errors.Is(err, sync.ErrNotJoined):
		c.io.Println("Client: not joined")
	case err != nil:
		return err
	default:
		c.io.Printf("Client ID: %s\n", clientID)
	}

	state, err := c.store.LoadProjection(ctx)
	if err != nil {
		return fmt.Errorf("failed to load projection: %w", err)
	}
	c.io.Printf("Local seq: %d\n", state.LastSeq)
	c.io.Printf("Local strokes: %d\n", len(state.Strokes))

	token, err := c.store.GetToken(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to load token: %w", err)
	case token.Expired(time.Now().Unix()):
		c.io.Println("Moderator: token expired")
	default:
		c.io.Printf("Moderator: logged in until %s\n", time.Unix(token.ExpiresAt, 0).Format(time.RFC3339))
	}

	c.io.Println()

	health, err := c.apiClient.Health(ctx)
	if err != nil {
		// Локальная часть уже выведена
		c.io.Printf("Server: unreachable (%v)\n", err)
		return nil
	}

	c.io.Printf("Server: %s (version %s)\n", health.Status, health.Version)
	c.io.Printf("Server seq: %d\n", health.LastSeq)
	c.io.Printf("Active users: %d\n", health.ActiveUsers)
	c.io.Printf("Drawing enabled: %t\n", health.DrawingEnabled)

	if behind := health.LastSeq - state.LastSeq; behind > 0 {
		c.io.Printf("⚠️  %d event(s) behind, run 'drawsync sync'\n", behind)
	}
	return nil
}
