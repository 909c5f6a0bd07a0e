package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/iudanet/drawsync/internal/server/engine"
	"github.com/iudanet/drawsync/pkg/api"
)

// StreamHandler push-транспорты: SSE и WebSocket.
// Оба открывают подписку через Attach и закрывают ее через Detach.
type StreamHandler struct {
	logger    *slog.Logger
	service   StreamService
	upgrader  websocket.Upgrader
	keepalive time.Duration
}

// NewStreamHandler создает handler потоков. keepalive задает период, с которым
// открытое соединение продлевает присутствие клиента.
func NewStreamHandler(logger *slog.Logger, service StreamService, keepalive time.Duration, allowedOrigins []string) *StreamHandler {
	if keepalive <= 0 {
		keepalive = 5 * time.Second
	}

	return &StreamHandler{
		logger:    logger,
		service:   service,
		keepalive: keepalive,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// SSE обрабатывает GET /api/v1/events/stream.
// Порядок: hello, реплей после since (или Last-Event-ID), затем живые уведомления.
func (h *StreamHandler) SSE(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r)
	if err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		sendError(w, h.logger, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()

	att, err := h.service.Attach(ctx, r.URL.Query().Get("client_id"), since)
	if err != nil {
		sendEngineError(w, r, h.logger, "attach stream", err)
		return
	}
	defer h.service.Detach(context.WithoutCancel(ctx), att)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	log := h.connLogger(att.ClientID)
	log.Info("SSE client connected", "since", since, "replay", len(att.Replay.Events))

	if err := h.writeSSE(w, flusher, helloMessage(att)); err != nil {
		return
	}
	for _, msg := range replayMessages(att) {
		if err := h.writeSSE(w, flusher, msg); err != nil {
			return
		}
	}

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-att.Sub.C():
			if !ok {
				log.Info("SSE stream closed by hub", "dropped", att.Sub.Dropped())
				return
			}
			if err := h.writeSSE(w, flusher, toStreamMessage(n)); err != nil {
				return
			}

		case <-ticker.C:
			if err := h.service.Heartbeat(ctx, att.ClientID); err != nil {
				log.Warn("Failed to refresh stream presence", "error", err)
			}
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-ctx.Done():
			log.Info("SSE client disconnected")
			return
		}
	}
}

// writeSSE пишет одно сообщение; id выставляется только у событий журнала,
// чтобы Last-Event-ID при переподключении указывал на последний seq.
func (h *StreamHandler) writeSSE(w http.ResponseWriter, flusher http.Flusher, msg api.StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal SSE message", "error", err)
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", msg.Type); err != nil {
		return err
	}
	if msg.Type == api.StreamEvent && msg.Event != nil {
		if _, err := fmt.Fprintf(w, "id: %s\n", strconv.FormatInt(msg.Event.Seq, 10)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}

	flusher.Flush()
	return nil
}

// originAllowed "*" разрешает все; запросы без Origin (не из браузера) пропускаются
func originAllowed(allowed []string, origin string) bool {
	if origin == "" || slices.Contains(allowed, "*") {
		return true
	}
	return slices.Contains(allowed, origin)
}

// ackFor переводит результат SubmitStroke в AckFrame
func ackFor(seq int64, err error) api.AckFrame {
	ack := api.AckFrame{Type: api.StreamAck}
	switch {
	case err == nil:
		ack.Accepted = true
		ack.Seq = seq
	case isDrawingDisabled(err):
		ack.Error = engine.ErrDrawingDisabled.Error()
	case isInvalidInput(err):
		ack.Error = err.Error()
	default:
		ack.Error = "internal server error"
	}
	return ack
}

// connLogger логгер одного подключения; conn_id различает повторные подключения клиента
func (h *StreamHandler) connLogger(clientID string) *slog.Logger {
	return h.logger.With("conn_id", uuid.NewString(), "client_id", clientID)
}
