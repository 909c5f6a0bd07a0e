package sqlite

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iudanet/drawsync/internal/models"
	"github.com/iudanet/drawsync/internal/server/storage"
)

// TouchClient creates or refreshes a presence entry.
// MAX() keeps the newest last_seen_at (last-write-wins).
func (s *Storage) TouchClient(ctx context.Context, clientID string, seenAt time.Time) (created bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM presence WHERE client_id = ?`, clientID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check presence: %w", err)
	}

	query := `
		INSERT INTO presence (client_id, last_seen_at) VALUES (?, ?)
		ON CONFLICT(client_id) DO UPDATE
		SET last_seen_at = MAX(last_seen_at, excluded.last_seen_at)
	`
	if _, err = tx.ExecContext(ctx, query, clientID, seenAt.UnixMilli()); err != nil {
		return false, fmt.Errorf("failed to touch presence: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit presence: %w", err)
	}

	return exists == 0, nil
}

// RemoveClient deletes a presence entry
func (s *Storage) RemoveClient(ctx context.Context, clientID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presence WHERE client_id = ?`, clientID)
	if err != nil {
		return fmt.Errorf("failed to remove presence: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrClientNotFound
	}

	return nil
}

// CountActive returns the number of entries seen after cutoff
func (s *Storage) CountActive(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM presence WHERE last_seen_at > ?`, cutoff.UnixMilli(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count presence: %w", err)
	}

	return count, nil
}

// ListActive returns entries seen after cutoff ordered by client id
func (s *Storage) ListActive(ctx context.Context, cutoff time.Time) (entries []models.PresenceEntry, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT client_id, last_seen_at FROM presence WHERE last_seen_at > ? ORDER BY client_id ASC`,
		cutoff.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query presence: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	entries = make([]models.PresenceEntry, 0)
	for rows.Next() {
		var entry models.PresenceEntry
		var lastSeen int64
		if err := rows.Scan(&entry.ClientID, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan presence: %w", err)
		}
		entry.LastSeenAt = time.UnixMilli(lastSeen).UTC()
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating presence: %w", err)
	}

	return entries, nil
}

// DeleteExpired removes entries seen at or before cutoff and returns their ids
func (s *Storage) DeleteExpired(ctx context.Context, cutoff time.Time) (ids []string, err error) {
	rows, err := s.db.QueryContext(ctx,
		`DELETE FROM presence WHERE last_seen_at <= ? RETURNING client_id`, cutoff.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired presence: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expired client: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired clients: %w", err)
	}

	sort.Strings(ids)

	return ids, nil
}
