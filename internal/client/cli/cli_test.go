package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpClient "github.com/iudanet/drawsync/internal/client/api"
	"github.com/iudanet/drawsync/internal/client/iocli"
	"github.com/iudanet/drawsync/internal/client/storage/boltdb"
	"github.com/iudanet/drawsync/internal/client/sync"
	"github.com/iudanet/drawsync/internal/server"
	"github.com/iudanet/drawsync/internal/server/config"
)

const testSecret = "cli-test-secret"

type testEnv struct {
	cli *Cli
	out *bytes.Buffer
}

func startServer(t *testing.T) string {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ModeratorSecret = testSecret
	cfg.TokenSecret = "cli-token-secret"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := server.New(context.Background(), cfg, "test", logger)
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		_ = s.Close()
		srv.Close()
	})
	return srv.URL
}

// newTestCli клиент с отдельной базой; input подается на "терминал"
func newTestCli(t *testing.T, baseURL, input string, env map[string]string) *testEnv {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	out := &bytes.Buffer{}
	stdio := iocli.NewStreams(strings.NewReader(input), out)
	apiClient := httpClient.NewClient(baseURL)
	svc := sync.NewService(apiClient, store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	getenv := func(key string) string { return env[key] }
	return &testEnv{cli: New(stdio, apiClient, store, svc, getenv), out: out}
}

func (e *testEnv) run(t *testing.T, command string, args ...string) string {
	t.Helper()
	e.out.Reset()
	require.NoError(t, e.cli.Run(context.Background(), command, args))
	return e.out.String()
}

func TestCli_SessionFlow(t *testing.T) {
	baseURL := startServer(t)
	alice := newTestCli(t, baseURL, "", nil)

	out := alice.run(t, "join", "-id", "alice")
	assert.Contains(t, out, "Client ID: alice")
	assert.Contains(t, out, "Active users: 1")

	out = alice.run(t, "draw", "-color", "#ff0000", "-width", "4", "10", "10", "120", "80")
	assert.Contains(t, out, "seq 1")

	out = alice.run(t, "sync")
	assert.Contains(t, out, "1 new event(s)")
	assert.Contains(t, out, "Strokes on board: 1")

	out = alice.run(t, "status")
	assert.Contains(t, out, "Client ID: alice")
	assert.Contains(t, out, "Local seq: 1")
	assert.Contains(t, out, "Server: ok")
	assert.NotContains(t, out, "behind")

	out = alice.run(t, "leave")
	assert.Contains(t, out, "Left the board")
}

func TestCli_DrawErrors(t *testing.T) {
	baseURL := startServer(t)
	c := newTestCli(t, baseURL, "", nil)
	ctx := context.Background()

	err := c.cli.Run(ctx, "draw", []string{"1", "2", "3", "4"})
	assert.ErrorIs(t, err, sync.ErrNotJoined)

	c.run(t, "join")

	tests := []struct {
		name string
		args []string
	}{
		{name: "too few coordinates", args: []string{"1", "2", "3"}},
		{name: "not a number", args: []string{"1", "2", "3", "x"}},
		{name: "unknown flag", args: []string{"-size", "3", "1", "2", "3", "4"}},
		{name: "invalid color", args: []string{"-color", "red", "1", "2", "3", "4"}},
		{name: "invalid width", args: []string{"-width", "0", "1", "2", "3", "4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, c.cli.Run(ctx, "draw", tt.args))
		})
	}
}

func TestCli_Moderator(t *testing.T) {
	baseURL := startServer(t)
	mod := newTestCli(t, baseURL, "", map[string]string{SecretEnv: testSecret})
	artist := newTestCli(t, baseURL, "", nil)

	mod.run(t, "join", "-id", "mod")
	artist.run(t, "join", "-id", "artist")
	artist.run(t, "draw", "1", "1", "2", "2")

	out := mod.run(t, "login")
	assert.Contains(t, out, "Moderator login successful")

	out = mod.run(t, "who")
	assert.Contains(t, out, "Active users: 2")
	assert.Contains(t, out, "artist")

	out = mod.run(t, "clear")
	assert.Contains(t, out, "Board cleared (seq 2)")

	out = mod.run(t, "pause")
	assert.Contains(t, out, "Drawing disabled (seq 3)")

	out = artist.run(t, "draw", "1", "1", "2", "2")
	assert.Contains(t, out, "Drawing is disabled")

	out = mod.run(t, "resume")
	assert.Contains(t, out, "Drawing enabled (seq 4)")

	out = artist.run(t, "sync")
	assert.Contains(t, out, "Strokes on board: 0")
	assert.Contains(t, out, "Drawing enabled: true")

	mod.run(t, "logout")
	err := mod.cli.Run(context.Background(), "clear", nil)
	assert.ErrorIs(t, err, sync.ErrLoginRequired)
}

func TestCli_LoginPrompt(t *testing.T) {
	baseURL := startServer(t)

	c := newTestCli(t, baseURL, testSecret+"\n", nil)
	out := c.run(t, "login")
	assert.Contains(t, out, "Moderator secret: ")
	assert.Contains(t, out, "login successful")

	wrong := newTestCli(t, baseURL, "nope\n", nil)
	err := wrong.cli.Run(context.Background(), "login", nil)
	assert.ErrorIs(t, err, httpClient.ErrUnauthorized)

	empty := newTestCli(t, baseURL, "\n", nil)
	assert.Error(t, empty.cli.Run(context.Background(), "login", nil))
}

func TestCli_WatchStopsOnCancel(t *testing.T) {
	baseURL := startServer(t)

	for _, mode := range []string{modePoll, modeWS} {
		t.Run(mode, func(t *testing.T) {
			c := newTestCli(t, baseURL, "", nil)
			c.run(t, "join")

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			err := c.cli.Run(ctx, "watch", []string{"-mode", mode, "-interval", "20ms"})
			require.NoError(t, err)
			assert.Contains(t, c.out.String(), "Watching board ("+mode+")")
		})
	}
}

func TestCli_WatchDrawsFromInput(t *testing.T) {
	baseURL := startServer(t)

	c := newTestCli(t, baseURL, "1 1 5 5\n", nil)
	c.run(t, "join", "-id", "artist")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := c.cli.Run(ctx, "watch", []string{"-mode", modeWS, "-draw", "-color", "#00ff00"})
	require.NoError(t, err)
	assert.Contains(t, c.out.String(), "strokes=1")

	out := c.run(t, "sync")
	assert.Contains(t, out, "Strokes on board: 1")
}

func TestCli_WatchDrawNeedsSocket(t *testing.T) {
	c := newTestCli(t, "http://127.0.0.1:1", "", nil)

	err := c.cli.Run(context.Background(), "watch", []string{"-mode", modePoll, "-draw"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-draw requires")
}

func TestCli_UnknownCommand(t *testing.T) {
	c := newTestCli(t, "http://127.0.0.1:1", "", nil)

	err := c.cli.Run(context.Background(), "paint", nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)

	err = c.cli.Run(context.Background(), "watch", []string{"-mode", "carrier-pigeon"})
	assert.Error(t, err)
}

func TestCli_StatusOffline(t *testing.T) {
	c := newTestCli(t, "http://127.0.0.1:1", "", nil)

	out := c.run(t, "status")
	assert.Contains(t, out, "Client: not joined")
	assert.Contains(t, out, "Server: unreachable")
}

func TestPrintUsage(t *testing.T) {
	var out bytes.Buffer
	PrintUsage(iocli.NewStreams(strings.NewReader(""), &out))

	for _, cmd := range []string{"join", "leave", "draw", "sync", "watch", "status", "login", "logout", "clear", "pause", "resume", "who"} {
		assert.Contains(t, out.String(), "  "+cmd)
	}
}
