package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/drawsync/internal/models"
	"github.com/iudanet/drawsync/internal/server/engine"
	"github.com/iudanet/drawsync/pkg/api"
)

type failingStatus struct{}

func (failingStatus) Status(context.Context) (engine.Status, error) {
	return engine.Status{}, errors.New("storage is gone")
}

func TestHealthHandler_Health(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t)

	_, err := g.Join(ctx, "alice")
	require.NoError(t, err)
	_, err = g.SubmitStroke(ctx, "alice", models.StrokeSegment{X: 1, Y: 1, Color: "#000", StrokeWidth: 2})
	require.NoError(t, err)

	handler := NewHealthHandler(setupTestLogger(), g, "1.2.3")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()

	handler.Health(w, req)

	resp := w.Result()
	defer func() {
		err := resp.Body.Close()
		assert.NoError(t, err)
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var healthResp api.HealthResponse
	err = json.NewDecoder(resp.Body).Decode(&healthResp)
	require.NoError(t, err)

	assert.Equal(t, "ok", healthResp.Status)
	assert.Equal(t, "1.2.3", healthResp.Version)
	assert.Equal(t, int64(1), healthResp.LastSeq)
	assert.Equal(t, 1, healthResp.Retained)
	assert.Equal(t, 1, healthResp.ActiveUsers)
	assert.True(t, healthResp.DrawingEnabled)
}

func TestHealthHandler_Unavailable(t *testing.T) {
	handler := NewHealthHandler(setupTestLogger(), failingStatus{}, "dev")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()

	handler.Health(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeBody[api.HealthResponse](t, w)
	assert.Equal(t, "unavailable", resp.Status)
}
