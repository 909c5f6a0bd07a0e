package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/drawsync/internal/server/config"
	"github.com/iudanet/drawsync/pkg/api"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Addr = "127.0.0.1:0"
	cfg.TokenSecret = "test-token-secret"
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(context.Background(), cfg, "test", logger)
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		assert.NoError(t, s.Close())
	})

	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func TestServer_Scenario(t *testing.T) {
	srv := newTestServer(t, testConfig())

	var joinA, joinB api.JoinResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/session/join", "", api.JoinRequest{ClientID: "alice"}, &joinA))
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/session/join", "", api.JoinRequest{ClientID: "bob"}, &joinB))
	assert.Equal(t, 2, joinB.ActiveUsers)

	seg := api.StrokeSegment{X: 10, Y: 10, PrevX: 0, PrevY: 0, Color: "#123456", StrokeWidth: 4}
	for range 2 {
		var resp api.StrokeResponse
		require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/v1/strokes", "", api.StrokeRequest{ClientID: "alice", Segment: seg}, &resp))
		assert.True(t, resp.Accepted)
	}

	// модераторские маршруты закрыты без токена
	assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodPost, "/api/v1/moderator/clear", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodPost, "/api/v1/moderator/login", "", api.ModeratorLoginRequest{Secret: "wrong"}, nil))

	var token api.TokenResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/moderator/login", "", api.ModeratorLoginRequest{Secret: config.DefaultModeratorSecret, ClientID: "mod"}, &token))
	require.NotEmpty(t, token.AccessToken)

	var clr api.EventResponse
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/v1/moderator/clear", token.AccessToken, nil, &clr))
	assert.Equal(t, int64(3), clr.Event.Seq)

	var poll api.PollResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/events?since=0&client_id=bob", "", nil, &poll))
	require.Len(t, poll.Events, 1)
	assert.Equal(t, api.EventTypeClear, poll.Events[0].Type)
	assert.Equal(t, int64(3), poll.LastSeq)
	// mod стал активен, когда выполнил clear
	assert.Equal(t, 3, poll.ActiveUsers)

	var presence api.PresenceResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/moderator/presence", token.AccessToken, nil, &presence))
	assert.Equal(t, 3, presence.ActiveUsers)

	assert.Equal(t, http.StatusNoContent, call(t, srv, http.MethodPost, "/api/v1/session/leave", "", api.ClientRequest{ClientID: "alice"}, nil))

	var health api.HealthResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/health", "", nil, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, 1, health.Retained)
	assert.Equal(t, 2, health.ActiveUsers)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, testConfig())

	assert.Equal(t, http.StatusMethodNotAllowed, call(t, srv, http.MethodGet, "/api/v1/strokes", "", nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, "/api/v1/unknown", "", nil, nil))
}

func TestServer_LoginRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.LoginRateLimit = 2
	srv := newTestServer(t, cfg)

	for range 2 {
		assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodPost, "/api/v1/moderator/login", "", api.ModeratorLoginRequest{Secret: "guess"}, nil))
	}
	assert.Equal(t, http.StatusTooManyRequests, call(t, srv, http.MethodPost, "/api/v1/moderator/login", "", api.ModeratorLoginRequest{Secret: "guess"}, nil))
}

func TestServer_SQLiteKeepsLog(t *testing.T) {
	cfg := testConfig()
	cfg.StorageDriver = config.StorageSQLite
	cfg.DatabasePath = filepath.Join(t.TempDir(), "board.db")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	first, err := New(context.Background(), cfg, "test", logger)
	require.NoError(t, err)
	srv := httptest.NewServer(first.Handler())

	seg := api.StrokeSegment{X: 1, Y: 1, Color: "#000", StrokeWidth: 1}
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/v1/strokes", "", api.StrokeRequest{ClientID: "alice", Segment: seg}, nil))
	srv.Close()
	require.NoError(t, first.Close())

	second, err := New(context.Background(), cfg, "test", logger)
	require.NoError(t, err)
	srv = httptest.NewServer(second.Handler())
	defer func() {
		srv.Close()
		assert.NoError(t, second.Close())
	}()

	var resp api.StrokeResponse
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/v1/strokes", "", api.StrokeRequest{ClientID: "alice", Segment: seg}, &resp))
	assert.Equal(t, int64(2), resp.Seq)
}

func TestServer_SQLiteKeepsDrawingState(t *testing.T) {
	cfg := testConfig()
	cfg.StorageDriver = config.StorageSQLite
	cfg.DatabasePath = filepath.Join(t.TempDir(), "board.db")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	first, err := New(context.Background(), cfg, "test", logger)
	require.NoError(t, err)
	srv := httptest.NewServer(first.Handler())

	var token api.TokenResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/moderator/login", "", api.ModeratorLoginRequest{Secret: cfg.ModeratorSecret}, &token))
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/v1/moderator/control", token.AccessToken, api.ControlRequest{Enabled: false}, nil))
	srv.Close()
	require.NoError(t, first.Close())

	second, err := New(context.Background(), cfg, "test", logger)
	require.NoError(t, err)
	srv = httptest.NewServer(second.Handler())
	defer func() {
		srv.Close()
		assert.NoError(t, second.Close())
	}()

	var poll api.PollResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/events?since=0", "", nil, &poll))
	assert.False(t, poll.DrawingEnabled)
	require.Len(t, poll.Events, 1)
	assert.Equal(t, api.EventTypeControl, poll.Events[0].Type)
	require.NotNil(t, poll.Events[0].Enabled)
	assert.False(t, *poll.Events[0].Enabled)

	seg := api.StrokeSegment{X: 1, Y: 1, Color: "#000", StrokeWidth: 1}
	var resp api.StrokeResponse
	require.Equal(t, http.StatusAccepted, call(t, srv, http.MethodPost, "/api/v1/strokes", "", api.StrokeRequest{ClientID: "alice", Segment: seg}, &resp))
	assert.False(t, resp.Accepted)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.ShutdownTimeout = time.Second

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(context.Background(), cfg, "test", logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestOpenStorage_UnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.StorageDriver = "redis"

	_, err := openStorage(context.Background(), cfg)
	assert.Error(t, err)
}
