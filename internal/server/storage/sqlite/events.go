package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/drawsync/internal/models"
	"github.com/iudanet/drawsync/internal/server/storage"
)

// InsertEvent stores an event with an assigned sequence number.
// The sequence must be above every seq ever stored, evicted ones included.
func (s *Storage) InsertEvent(ctx context.Context, event models.SyncEvent) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lastSeq int64
	if err = tx.QueryRowContext(ctx, `SELECT last_seq FROM log_state WHERE id = 1`).Scan(&lastSeq); err != nil {
		return fmt.Errorf("failed to read last seq: %w", err)
	}

	if event.Seq <= lastSeq {
		err = fmt.Errorf("seq %d (last %d): %w", event.Seq, lastSeq, storage.ErrDuplicateSeq)
		return err
	}

	// Для не-stroke событий координаты хранятся как NULL
	var prevX, prevY, x, y sql.NullFloat64
	var color sql.NullString
	var width sql.NullInt64
	authorID := event.AuthorID

	if event.Stroke != nil {
		prevX = sql.NullFloat64{Float64: event.Stroke.PrevX, Valid: true}
		prevY = sql.NullFloat64{Float64: event.Stroke.PrevY, Valid: true}
		x = sql.NullFloat64{Float64: event.Stroke.X, Valid: true}
		y = sql.NullFloat64{Float64: event.Stroke.Y, Valid: true}
		color = sql.NullString{String: event.Stroke.Color, Valid: true}
		width = sql.NullInt64{Int64: int64(event.Stroke.StrokeWidth), Valid: true}
		authorID = event.Stroke.AuthorID
	}

	query := `
		INSERT INTO events (
			seq, kind, author_id, prev_x, prev_y, x, y,
			color, stroke_width, enabled, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		event.Seq,
		string(event.Kind),
		authorID,
		prevX, prevY, x, y,
		color,
		width,
		boolToInt(event.Enabled),
		event.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if event.Kind == models.EventControl {
		_, err = tx.ExecContext(ctx, `UPDATE log_state SET last_seq = ?, drawing_enabled = ? WHERE id = 1`,
			event.Seq, boolToInt(event.Enabled))
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE log_state SET last_seq = ? WHERE id = 1`, event.Seq)
	}
	if err != nil {
		return fmt.Errorf("failed to update log state: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event: %w", err)
	}

	return nil
}

// ListEventsAfter returns retained events with seq > after in ascending order
func (s *Storage) ListEventsAfter(ctx context.Context, after int64) (events []models.SyncEvent, err error) {
	query := `
		SELECT seq, kind, author_id, prev_x, prev_y, x, y,
		       color, stroke_width, enabled, created_at
		FROM events
		WHERE seq > ?
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, after)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	events = make([]models.SyncEvent, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// DeleteEventsBefore evicts events with seq < before
func (s *Storage) DeleteEventsBefore(ctx context.Context, before int64) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE seq < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(n), nil
}

// FirstSeq returns the lowest retained sequence number
func (s *Storage) FirstSeq(ctx context.Context) (int64, error) {
	var first sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(seq) FROM events`).Scan(&first); err != nil {
		return 0, fmt.Errorf("failed to get first seq: %w", err)
	}

	if !first.Valid {
		return 0, storage.ErrEventNotFound
	}

	return first.Int64, nil
}

// LastSeq returns the highest sequence number ever stored
func (s *Storage) LastSeq(ctx context.Context) (int64, error) {
	var last int64
	err := s.db.QueryRowContext(ctx, `SELECT last_seq FROM log_state WHERE id = 1`).Scan(&last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get last seq: %w", err)
	}

	return last, nil
}

// LastControl returns the flag of the latest ControlChange, kept in log_state across evictions
func (s *Storage) LastControl(ctx context.Context) (bool, bool, error) {
	var enabled sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT drawing_enabled FROM log_state WHERE id = 1`).Scan(&enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("failed to get drawing state: %w", err)
	}

	if !enabled.Valid {
		return false, false, nil
	}

	return intToBool(int(enabled.Int64)), true, nil
}

// CountEvents returns the number of retained events
func (s *Storage) CountEvents(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}

	return count, nil
}

func scanEvent(rows *sql.Rows) (models.SyncEvent, error) {
	var (
		ev             models.SyncEvent
		kind, authorID string
		prevX, prevY   sql.NullFloat64
		x, y           sql.NullFloat64
		color          sql.NullString
		width          sql.NullInt64
		enabled        int
		createdAt      int64
	)

	err := rows.Scan(
		&ev.Seq,
		&kind,
		&authorID,
		&prevX, &prevY, &x, &y,
		&color,
		&width,
		&enabled,
		&createdAt,
	)
	if err != nil {
		return models.SyncEvent{}, fmt.Errorf("failed to scan event: %w", err)
	}

	ev.Kind = models.EventKind(kind)
	ev.CreatedAt = time.Unix(0, createdAt).UTC()

	switch ev.Kind {
	case models.EventStroke:
		ev.Stroke = &models.StrokeSegment{
			PrevX:       prevX.Float64,
			PrevY:       prevY.Float64,
			X:           x.Float64,
			Y:           y.Float64,
			Color:       color.String,
			StrokeWidth: int(width.Int64),
			AuthorID:    authorID,
		}
	case models.EventClear:
		ev.AuthorID = authorID
	case models.EventControl:
		ev.Enabled = intToBool(enabled)
	default:
		return models.SyncEvent{}, fmt.Errorf("unknown event kind %q at seq %d", kind, ev.Seq)
	}

	return ev, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}
