package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/drawsync/internal/server/engine"
	"github.com/iudanet/drawsync/internal/server/storage/memory"
	"github.com/iudanet/drawsync/pkg/api"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError,
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

func newTestGateway(t *testing.T) *engine.Gateway {
	t.Helper()

	store := memory.New()
	g, err := engine.NewGateway(context.Background(), store, store, engine.Config{
		PresenceTimeout: 20 * time.Second,
	}, setupTestLogger())
	require.NoError(t, err)
	t.Cleanup(g.Close)

	return g
}

func testJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:         []byte("test-secret-key-for-jwt-signing"),
		AccessTokenTTL: 15 * time.Minute,
	}
}

// staticSecret SecretChecker без Argon2 для быстрых тестов
type staticSecret string

func (s staticSecret) Verify(secret string) error {
	if secret != string(s) {
		return errors.New("secret mismatch")
	}
	return nil
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func testSegment() api.StrokeSegment {
	return api.StrokeSegment{PrevX: 1, PrevY: 2, X: 3, Y: 4, Color: "#ff0000", StrokeWidth: 3}
}
