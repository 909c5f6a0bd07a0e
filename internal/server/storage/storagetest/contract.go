// Package storagetest holds behavioural checks shared by every backing store
// of the event log and the presence tracker.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/drawsync/internal/models"
	"github.com/iudanet/drawsync/internal/server/storage"
)

var baseTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func stroke(seq int64, author string) models.SyncEvent {
	ev := models.NewStrokeEvent(models.StrokeSegment{
		PrevX: 0, PrevY: 0, X: float64(seq), Y: float64(seq),
		Color: "#000000", StrokeWidth: 3, AuthorID: author,
	})
	ev.Seq = seq
	ev.CreatedAt = baseTime.Add(time.Duration(seq) * time.Millisecond)
	return ev
}

// RunEventStorage checks an EventStorage implementation.
// newStore must return an empty store for every call.
func RunEventStorage(t *testing.T, newStore func(t *testing.T) storage.EventStorage) {
	t.Helper()

	t.Run("empty store", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		last, err := s.LastSeq(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), last)

		_, err = s.FirstSeq(ctx)
		assert.ErrorIs(t, err, storage.ErrEventNotFound)

		events, err := s.ListEventsAfter(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("insert and list in order", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		for seq := int64(1); seq <= 5; seq++ {
			require.NoError(t, s.InsertEvent(ctx, stroke(seq, "alice")))
		}

		events, err := s.ListEventsAfter(ctx, 2)
		require.NoError(t, err)
		require.Len(t, events, 3)
		for i, ev := range events {
			assert.Equal(t, int64(i+3), ev.Seq)
			assert.Equal(t, models.EventStroke, ev.Kind)
			require.NotNil(t, ev.Stroke)
			assert.Equal(t, float64(ev.Seq), ev.Stroke.X)
			assert.Equal(t, "alice", ev.Stroke.AuthorID)
			assert.True(t, ev.CreatedAt.Equal(baseTime.Add(time.Duration(ev.Seq)*time.Millisecond)))
		}

		// Повторный вызов с тем же аргументом дает тот же результат
		again, err := s.ListEventsAfter(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, events, again)

		count, err := s.CountEvents(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, count)
	})

	t.Run("all variants round trip", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		clr := models.NewClearEvent("moderator")
		clr.Seq = 1
		clr.CreatedAt = baseTime
		ctrl := models.NewControlEvent(false)
		ctrl.Seq = 2
		ctrl.CreatedAt = baseTime
		enable := models.NewControlEvent(true)
		enable.Seq = 3
		enable.CreatedAt = baseTime

		require.NoError(t, s.InsertEvent(ctx, clr))
		require.NoError(t, s.InsertEvent(ctx, ctrl))
		require.NoError(t, s.InsertEvent(ctx, enable))

		events, err := s.ListEventsAfter(ctx, 0)
		require.NoError(t, err)
		require.Len(t, events, 3)

		assert.Equal(t, models.EventClear, events[0].Kind)
		assert.Equal(t, "moderator", events[0].AuthorID)
		assert.Nil(t, events[0].Stroke)
		assert.Equal(t, models.EventControl, events[1].Kind)
		assert.False(t, events[1].Enabled)
		assert.True(t, events[2].Enabled)
	})

	t.Run("duplicate seq rejected", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.InsertEvent(ctx, stroke(1, "alice")))
		err := s.InsertEvent(ctx, stroke(1, "bob"))
		assert.ErrorIs(t, err, storage.ErrDuplicateSeq)
	})

	t.Run("delete before keeps last seq", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		for seq := int64(1); seq <= 5; seq++ {
			require.NoError(t, s.InsertEvent(ctx, stroke(seq, "alice")))
		}

		removed, err := s.DeleteEventsBefore(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, 3, removed)

		first, err := s.FirstSeq(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), first)

		removed, err = s.DeleteEventsBefore(ctx, 6)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		count, err := s.CountEvents(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		// Номер последнего события не сбрасывается после вытеснения
		last, err := s.LastSeq(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), last)

		err = s.InsertEvent(ctx, stroke(5, "alice"))
		assert.ErrorIs(t, err, storage.ErrDuplicateSeq)
		require.NoError(t, s.InsertEvent(ctx, stroke(6, "alice")))
	})

	t.Run("last control survives eviction", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, found, err := s.LastControl(ctx)
		require.NoError(t, err)
		assert.False(t, found)

		pause := models.NewControlEvent(false)
		pause.Seq = 1
		pause.CreatedAt = baseTime
		require.NoError(t, s.InsertEvent(ctx, pause))
		require.NoError(t, s.InsertEvent(ctx, stroke(2, "alice")))

		enabled, found, err := s.LastControl(ctx)
		require.NoError(t, err)
		assert.True(t, found)
		assert.False(t, enabled)

		// Clear вытесняет ControlChange, но флаг остается известен
		clear := models.NewClearEvent("mod")
		clear.Seq = 3
		clear.CreatedAt = baseTime
		require.NoError(t, s.InsertEvent(ctx, clear))
		_, err = s.DeleteEventsBefore(ctx, 3)
		require.NoError(t, err)

		enabled, found, err = s.LastControl(ctx)
		require.NoError(t, err)
		assert.True(t, found)
		assert.False(t, enabled)

		resume := models.NewControlEvent(true)
		resume.Seq = 4
		resume.CreatedAt = baseTime
		require.NoError(t, s.InsertEvent(ctx, resume))

		enabled, found, err = s.LastControl(ctx)
		require.NoError(t, err)
		assert.True(t, found)
		assert.True(t, enabled)
	})

	t.Run("returned events are copies", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.InsertEvent(ctx, stroke(1, "alice")))

		events, err := s.ListEventsAfter(ctx, 0)
		require.NoError(t, err)
		events[0].Stroke.X = 1000

		again, err := s.ListEventsAfter(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, float64(1), again[0].Stroke.X)
	})
}

// RunPresenceStorage checks a PresenceStorage implementation
func RunPresenceStorage(t *testing.T, newStore func(t *testing.T) storage.PresenceStorage) {
	t.Helper()

	t.Run("touch creates once", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		created, err := s.TouchClient(ctx, "alice", baseTime)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = s.TouchClient(ctx, "alice", baseTime.Add(time.Second))
		require.NoError(t, err)
		assert.False(t, created)

		count, err := s.CountActive(ctx, baseTime.Add(-time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, count, "повторные касания не создают дубликатов")
	})

	t.Run("last write wins", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.TouchClient(ctx, "alice", baseTime.Add(10*time.Second))
		require.NoError(t, err)
		_, err = s.TouchClient(ctx, "alice", baseTime)
		require.NoError(t, err)

		entries, err := s.ListActive(ctx, baseTime.Add(-time.Minute))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, entries[0].LastSeenAt.Equal(baseTime.Add(10*time.Second)))
	})

	t.Run("active window", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.TouchClient(ctx, "old", baseTime)
		require.NoError(t, err)
		_, err = s.TouchClient(ctx, "fresh", baseTime.Add(30*time.Second))
		require.NoError(t, err)

		// cutoff равен времени "old": клиент уже не активен
		count, err := s.CountActive(ctx, baseTime)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		entries, err := s.ListActive(ctx, baseTime.Add(-time.Second))
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "fresh", entries[0].ClientID)
		assert.Equal(t, "old", entries[1].ClientID)
	})

	t.Run("remove", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.TouchClient(ctx, "alice", baseTime)
		require.NoError(t, err)

		require.NoError(t, s.RemoveClient(ctx, "alice"))
		assert.ErrorIs(t, s.RemoveClient(ctx, "alice"), storage.ErrClientNotFound)

		count, err := s.CountActive(ctx, baseTime.Add(-time.Minute))
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("delete expired", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.TouchClient(ctx, "a", baseTime)
		require.NoError(t, err)
		_, err = s.TouchClient(ctx, "b", baseTime.Add(5*time.Second))
		require.NoError(t, err)
		_, err = s.TouchClient(ctx, "c", baseTime.Add(20*time.Second))
		require.NoError(t, err)

		expired, err := s.DeleteExpired(ctx, baseTime.Add(5*time.Second))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, expired)

		entries, err := s.ListActive(ctx, time.Time{})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "c", entries[0].ClientID)

		expired, err = s.DeleteExpired(ctx, baseTime)
		require.NoError(t, err)
		assert.Empty(t, expired)
	})
}
