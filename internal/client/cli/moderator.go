package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runLogin(ctx context.Context) error {
	secret := c.getenv(SecretEnv)
	if secret == "" {
		var err error
		secret, err = c.io.ReadPassword("Moderator secret: ")
		if err != nil {
			return fmt.Errorf("failed to read secret: %w", err)
		}
	}
	if secret == "" {
		return fmt.Errorf("secret cannot be empty")
	}

	token, err := c.syncService.Login(ctx, secret)
	if err != nil {
		return err
	}

	c.io.Println("✓ Moderator login successful")
	if token.ExpiresAt > 0 {
		c.io.Printf("Token expires: %s\n", time.Unix(token.ExpiresAt, 0).Format(time.RFC3339))
	}
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	if err := c.syncService.Logout(ctx); err != nil {
		return err
	}
	c.io.Println("✓ Logged out")
	return nil
}

func (c *Cli) runClear(ctx context.Context) error {
	resp, err := c.syncService.Clear(ctx)
	if err != nil {
		return err
	}
	c.io.Printf("✓ Board cleared (seq %d)\n", resp.Event.Seq)
	return nil
}

func (c *Cli) runControl(ctx context.Context, enabled bool) error {
	resp, err := c.syncService.SetDrawing(ctx, enabled)
	if err != nil {
		return err
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	c.io.Printf("✓ Drawing %s (seq %d)\n", state, resp.Event.Seq)
	return nil
}

func (c *Cli) runWho(ctx context.Context) error {
	resp, err := c.syncService.Presence(ctx)
	if err != nil {
		return err
	}

	c.io.Printf("Active users: %d\n", resp.ActiveUsers)
	for _, client := range resp.Clients {
		c.io.Printf("  %-36s last seen %s\n", client.ClientID, client.LastSeenAt.Local().Format(time.TimeOnly))
	}
	return nil
}
