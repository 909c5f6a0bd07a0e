package engine

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/drawsync/internal/models"
	"github.com/iudanet/drawsync/internal/server/storage/memory"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError,
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

// fakeClock управляемое время для presence и журнала
type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGateway(t *testing.T, cfg Config) (*Gateway, *fakeClock) {
	t.Helper()

	store := memory.New()
	g, err := NewGateway(context.Background(), store, store, cfg, setupTestLogger())
	require.NoError(t, err)

	clock := newFakeClock()
	g.presence.now = clock.Now
	g.log.now = clock.Now

	t.Cleanup(g.Close)

	return g, clock
}

func segment(x1, y1, x2, y2 float64) models.StrokeSegment {
	return models.StrokeSegment{PrevX: x1, PrevY: y1, X: x2, Y: y2, Color: "#000000", StrokeWidth: 3}
}

func seqs(events []models.SyncEvent) []int64 {
	out := make([]int64, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Seq)
	}
	return out
}
