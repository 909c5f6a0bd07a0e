package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpClient "github.com/iudanet/drawsync/internal/client/api"
	"github.com/iudanet/drawsync/internal/client/storage/boltdb"
	"github.com/iudanet/drawsync/internal/models"
	"github.com/iudanet/drawsync/internal/server"
	"github.com/iudanet/drawsync/internal/server/config"
	"github.com/iudanet/drawsync/pkg/api"
)

const testSecret = "test-moderator-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startServer поднимает настоящий сервер доски на httptest
func startServer(t *testing.T) string {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ModeratorSecret = testSecret
	cfg.TokenSecret = "test-token-secret"
	cfg.HeartbeatInterval = 50 * time.Millisecond

	s, err := server.New(context.Background(), cfg, "test", discardLogger())
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		_ = s.Close()
		srv.Close()
	})

	return srv.URL
}

// newTestService клиент с собственным bbolt файлом
func newTestService(t *testing.T, baseURL string) (*Service, *boltdb.Storage) {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return NewService(httpClient.NewClient(baseURL), store, discardLogger()), store
}

func testSegment() api.StrokeSegment {
	return api.StrokeSegment{PrevX: 0, PrevY: 0, X: 10, Y: 10, Color: "#ff0000", StrokeWidth: 3}
}

func TestService_Join(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, startServer(t))

	_, err := svc.ClientID(ctx)
	assert.ErrorIs(t, err, ErrNotJoined)

	first, err := svc.Join(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ClientID)
	assert.Equal(t, 1, first.ActiveUsers)
	assert.True(t, first.DrawingEnabled)

	saved, err := store.GetClientID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ClientID, saved)

	// Повторный join сохраняет идентичность
	second, err := svc.Join(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, first.ClientID, second.ClientID)
	assert.Equal(t, 1, second.ActiveUsers)

	explicit, err := svc.Join(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", explicit.ClientID)

	require.NoError(t, svc.Leave(ctx))
}

func TestService_RequiresJoin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, startServer(t))

	_, err := svc.Draw(ctx, testSegment())
	assert.ErrorIs(t, err, ErrNotJoined)
	assert.ErrorIs(t, svc.Leave(ctx), ErrNotJoined)
	assert.ErrorIs(t, svc.Stream(ctx, func(Result) {}, nil), ErrNotJoined)
}

func TestService_DrawAndSync(t *testing.T) {
	ctx := context.Background()
	baseURL := startServer(t)

	alice, _ := newTestService(t, baseURL)
	bob, bobStore := newTestService(t, baseURL)

	_, err := alice.Join(ctx, "alice")
	require.NoError(t, err)
	_, err = bob.Join(ctx, "bob")
	require.NoError(t, err)

	for range 3 {
		resp, err := alice.Draw(ctx, testSegment())
		require.NoError(t, err)
		assert.True(t, resp.Accepted)
	}

	res, err := bob.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Applied)
	assert.Equal(t, 3, res.Strokes)
	assert.Equal(t, int64(3), res.LastSeq)
	assert.Equal(t, 2, res.ActiveUsers)
	assert.False(t, res.Reset)

	state, err := bobStore.LoadProjection(ctx)
	require.NoError(t, err)
	require.Len(t, state.Strokes, 3)
	assert.Equal(t, "alice", state.Strokes[0].Stroke.AuthorID)

	// Ничего нового
	res, err = bob.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Applied)
	assert.Equal(t, 3, res.Strokes)
}

func TestService_Moderation(t *testing.T) {
	ctx := context.Background()
	baseURL := startServer(t)

	mod, modStore := newTestService(t, baseURL)
	viewer, _ := newTestService(t, baseURL)

	_, err := mod.Join(ctx, "mod")
	require.NoError(t, err)
	_, err = viewer.Join(ctx, "viewer")
	require.NoError(t, err)

	_, err = mod.Clear(ctx)
	assert.ErrorIs(t, err, ErrLoginRequired)

	_, err = mod.Login(ctx, "wrong")
	assert.ErrorIs(t, err, httpClient.ErrUnauthorized)

	token, err := mod.Login(ctx, testSecret)
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Positive(t, token.ExpiresAt)

	_, err = viewer.Draw(ctx, testSegment())
	require.NoError(t, err)

	cleared, err := mod.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, api.EventTypeClear, cleared.Event.Type)
	assert.Equal(t, "mod", cleared.Event.AuthorID)

	_, err = mod.SetDrawing(ctx, false)
	require.NoError(t, err)

	resp, err := viewer.Draw(ctx, testSegment())
	require.NoError(t, err)
	assert.False(t, resp.Accepted)

	res, err := viewer.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Strokes)
	assert.False(t, res.DrawingEnabled)
	assert.Equal(t, int64(3), res.LastSeq)

	presence, err := mod.Presence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, presence.ActiveUsers)

	require.NoError(t, mod.Logout(ctx))
	_, err = modStore.GetToken(ctx)
	require.Error(t, err)

	_, err = mod.SetDrawing(ctx, true)
	assert.ErrorIs(t, err, ErrLoginRequired)
}

func TestService_ExpiredToken(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, startServer(t))

	require.NoError(t, store.SaveToken(ctx, models.ModeratorToken{AccessToken: "stale", ExpiresAt: 1}))

	_, err := svc.Presence(ctx)
	assert.ErrorIs(t, err, ErrLoginRequired)

	// Токен не подписан сервером
	require.NoError(t, store.SaveToken(ctx, models.ModeratorToken{AccessToken: "forged"}))
	_, err = svc.Presence(ctx)
	assert.ErrorIs(t, err, ErrLoginRequired)
}

func TestService_SyncResetsStaleProjection(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, startServer(t))

	_, err := svc.Join(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.Draw(ctx, testSegment())
	require.NoError(t, err)

	// Проекция от другого запуска сервера, ушедшая вперед журнала
	stale := models.NewStrokeEvent(models.StrokeSegment{X: 1, Y: 1, Color: "#000000", StrokeWidth: 1})
	stale.Seq = 100
	require.NoError(t, store.SaveProjection(ctx, models.CanvasState{Strokes: []models.SyncEvent{stale}, LastSeq: 100}))

	res, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, res.Reset)
	assert.Equal(t, int64(1), res.LastSeq)
	assert.Equal(t, 1, res.Strokes)

	state, err := store.LoadProjection(ctx)
	require.NoError(t, err)
	require.Len(t, state.Strokes, 1)
	assert.Equal(t, int64(1), state.Strokes[0].Seq)
}

func TestService_Watch(t *testing.T) {
	baseURL := startServer(t)

	watcher, _ := newTestService(t, baseURL)
	drawer, _ := newTestService(t, baseURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := watcher.Join(ctx, "watcher")
	require.NoError(t, err)
	_, err = drawer.Join(ctx, "drawer")
	require.NoError(t, err)

	updates := make(chan Result, 16)
	done := make(chan error, 1)
	go func() {
		done <- watcher.Watch(ctx, 20*time.Millisecond, func(r Result) { updates <- r })
	}()

	_, err = drawer.Draw(ctx, testSegment())
	require.NoError(t, err)

	select {
	case r := <-updates:
		assert.Equal(t, 1, r.Strokes)
		assert.Equal(t, int64(1), r.LastSeq)
	case <-time.After(2 * time.Second):
		t.Fatal("no update from poll loop")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestService_Stream(t *testing.T) {
	baseURL := startServer(t)

	watcher, store := newTestService(t, baseURL)
	drawer, _ := newTestService(t, baseURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := watcher.Join(ctx, "watcher")
	require.NoError(t, err)
	_, err = drawer.Join(ctx, "drawer")
	require.NoError(t, err)

	// Событие до подключения придет реплеем
	_, err = drawer.Draw(ctx, testSegment())
	require.NoError(t, err)

	updates := make(chan Result, 64)
	done := make(chan error, 1)
	go func() {
		done <- watcher.Stream(ctx, func(r Result) { updates <- r }, nil)
	}()

	waitFor := func(cond func(Result) bool) Result {
		t.Helper()
		deadline := time.After(3 * time.Second)
		for {
			select {
			case r := <-updates:
				if cond(r) {
					return r
				}
			case <-deadline:
				t.Fatal("condition not reached on stream")
				return Result{}
			}
		}
	}

	waitFor(func(r Result) bool { return r.LastSeq == 1 && r.Strokes == 1 })

	_, err = drawer.Draw(ctx, testSegment())
	require.NoError(t, err)
	r := waitFor(func(r Result) bool { return r.LastSeq == 2 })
	assert.Equal(t, 2, r.Strokes)

	require.NoError(t, drawer.Leave(ctx))
	waitFor(func(r Result) bool { return r.ActiveUsers == 1 })

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not stop")
	}

	state, err := store.LoadProjection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), state.LastSeq)
	assert.Len(t, state.Strokes, 2)
}

func TestCheckAuth(t *testing.T) {
	other := errors.New("boom")

	_, err := checkAuth(1, &httpClient.StatusError{StatusCode: 401, Message: "bad token"})
	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.ErrorIs(t, err, httpClient.ErrUnauthorized)

	_, err = checkAuth(1, other)
	assert.Equal(t, other, err)

	v, err := checkAuth(7, nil)
	assert.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFromAPIEvent(t *testing.T) {
	enabled := false
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		want models.SyncEvent
		name string
		in   api.Event
	}{
		{
			name: "stroke",
			in:   api.Event{Seq: 1, Type: api.EventTypeStroke, CreatedAt: created, Segment: &api.StrokeSegment{X: 1, Y: 2, Color: "#fff000", StrokeWidth: 2, AuthorID: "a"}},
			want: models.SyncEvent{Seq: 1, Kind: models.EventStroke, CreatedAt: created, Stroke: &models.StrokeSegment{X: 1, Y: 2, Color: "#fff000", StrokeWidth: 2, AuthorID: "a"}},
		},
		{
			name: "clear",
			in:   api.Event{Seq: 2, Type: api.EventTypeClear, AuthorID: "mod"},
			want: models.SyncEvent{Seq: 2, Kind: models.EventClear, AuthorID: "mod"},
		},
		{
			name: "control",
			in:   api.Event{Seq: 3, Type: api.EventTypeControl, Enabled: &enabled},
			want: models.SyncEvent{Seq: 3, Kind: models.EventControl},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fromAPIEvent(tt.in))
		})
	}
}

func TestService_StreamSendsStrokes(t *testing.T) {
	baseURL := startServer(t)

	artist, store := newTestService(t, baseURL)
	viewer, _ := newTestService(t, baseURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := artist.Join(ctx, "artist")
	require.NoError(t, err)
	_, err = viewer.Join(ctx, "viewer")
	require.NoError(t, err)

	strokes := make(chan api.StrokeSegment, 2)
	strokes <- testSegment()
	strokes <- testSegment()
	close(strokes)

	updates := make(chan Result, 64)
	done := make(chan error, 1)
	go func() {
		done <- artist.Stream(ctx, func(r Result) { updates <- r }, strokes)
	}()

	// Свои отрезки возвращаются через общий поток событий
	deadline := time.After(3 * time.Second)
	for got := false; !got; {
		select {
		case r := <-updates:
			got = r.LastSeq == 2 && r.Strokes == 2
		case <-deadline:
			t.Fatal("strokes sent over the socket did not come back")
		}
	}

	res, err := viewer.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Strokes)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not stop")
	}

	state, err := store.LoadProjection(context.Background())
	require.NoError(t, err)
	require.Len(t, state.Strokes, 2)
	assert.Equal(t, "artist", state.Strokes[0].Stroke.AuthorID)
}
