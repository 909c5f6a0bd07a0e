package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/drawsync/internal/server/engine"
	"github.com/iudanet/drawsync/pkg/api"
)

// SessionHandler обрабатывает join/heartbeat/leave, отправку отрезков и poll
type SessionHandler struct {
	logger            *slog.Logger
	service           SessionService
	heartbeatInterval time.Duration
}

// NewSessionHandler создает handler сессий.
// heartbeatInterval сообщается клиенту в ответе на join.
func NewSessionHandler(logger *slog.Logger, service SessionService, heartbeatInterval time.Duration) *SessionHandler {
	return &SessionHandler{
		logger:            logger,
		service:           service,
		heartbeatInterval: heartbeatInterval,
	}
}

// Join обрабатывает POST /api/v1/session/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req api.JoinRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.service.Join(r.Context(), req.ClientID)
	if err != nil {
		sendEngineError(w, r, h.logger, "join", err)
		return
	}

	sendJSON(w, h.logger, api.JoinResponse{
		ClientID:            res.ClientID,
		LastSeq:             res.LastSeq,
		ActiveUsers:         res.ActiveUsers,
		DrawingEnabled:      res.DrawingEnabled,
		HeartbeatIntervalMs: h.heartbeatInterval.Milliseconds(),
	}, http.StatusOK)
}

// Heartbeat обрабатывает POST /api/v1/session/heartbeat
func (h *SessionHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req api.ClientRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.Heartbeat(r.Context(), req.ClientID); err != nil {
		sendEngineError(w, r, h.logger, "heartbeat", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Leave обрабатывает POST /api/v1/session/leave
func (h *SessionHandler) Leave(w http.ResponseWriter, r *http.Request) {
	var req api.ClientRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.Leave(r.Context(), req.ClientID); err != nil {
		sendEngineError(w, r, h.logger, "leave", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SubmitStroke обрабатывает POST /api/v1/strokes.
// Отрезок при запрещенном рисовании подтверждается с accepted=false и статусом 202.
func (h *SessionHandler) SubmitStroke(w http.ResponseWriter, r *http.Request) {
	var req api.StrokeRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	ev, err := h.service.SubmitStroke(r.Context(), req.ClientID, fromAPISegment(req.Segment))
	switch {
	case errors.Is(err, engine.ErrDrawingDisabled):
		sendJSON(w, h.logger, api.StrokeResponse{Accepted: false}, http.StatusAccepted)
	case err != nil:
		sendEngineError(w, r, h.logger, "submit stroke", err)
	default:
		sendJSON(w, h.logger, api.StrokeResponse{Accepted: true, Seq: ev.Seq}, http.StatusCreated)
	}
}

// Poll обрабатывает GET /api/v1/events?since=N&client_id=X.
// Pull-эквивалент подписки: повторный вызов с тем же since безопасен.
func (h *SessionHandler) Poll(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r)
	if err != nil {
		h.logger.Warn("Invalid since parameter", "error", err)
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	clientID := r.URL.Query().Get("client_id")

	res, err := h.service.PollSince(r.Context(), clientID, since)
	if err != nil {
		sendEngineError(w, r, h.logger, "poll events", err)
		return
	}

	h.logger.Debug("Poll request", "client_id", clientID, "since", since, "events", len(res.Events), "reset", res.Reset)

	sendJSON(w, h.logger, toPollResponse(res), http.StatusOK)
}
