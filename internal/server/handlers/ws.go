package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/drawsync/internal/server/engine"
	"github.com/iudanet/drawsync/pkg/api"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Отрезок в JSON занимает около двухсот байт
	maxFrameSize = 4096
)

// WebSocket обрабатывает GET /api/v1/ws.
// Сервер шлет то же, что и SSE; клиент может слать stroke и heartbeat кадры,
// на каждый stroke приходит ack.
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r)
	if err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	att, err := h.service.Attach(ctx, r.URL.Query().Get("client_id"), since)
	if err != nil {
		h.logger.Warn("WebSocket attach failed", "error", err)
		reason := "internal server error"
		if isInvalidInput(err) {
			reason = err.Error()
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
			time.Now().Add(writeWait))
		return
	}
	defer h.service.Detach(context.WithoutCancel(ctx), att)

	log := h.connLogger(att.ClientID)
	log.Info("WebSocket client connected", "since", since, "replay", len(att.Replay.Events))

	acks := make(chan api.AckFrame, 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		h.writePump(ctx, log, conn, att, acks)
	}()

	h.readPump(ctx, log, conn, att.ClientID, acks, writerDone)

	cancel()
	<-writerDone

	log.Info("WebSocket client disconnected")
}

// readPump читает кадры клиента до ошибки чтения или завершения writePump
func (h *StreamHandler) readPump(ctx context.Context, log *slog.Logger, conn *websocket.Conn, clientID string, acks chan<- api.AckFrame, writerDone <-chan struct{}) {
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var frame api.ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Debug("Malformed WebSocket frame", "error", err)
			if !h.queueAck(acks, writerDone, api.AckFrame{Type: api.StreamAck, Error: "malformed frame"}) {
				return
			}
			continue
		}

		switch frame.Type {
		case api.ClientFrameHeartbeat:
			if err := h.service.Heartbeat(ctx, clientID); err != nil {
				log.Warn("Failed to refresh presence", "error", err)
			}

		case api.ClientFrameStroke:
			if frame.Segment == nil {
				if !h.queueAck(acks, writerDone, api.AckFrame{Type: api.StreamAck, Error: "segment is required"}) {
					return
				}
				continue
			}
			ev, err := h.service.SubmitStroke(ctx, clientID, fromAPISegment(*frame.Segment))
			if err != nil && !isDrawingDisabled(err) && !isInvalidInput(err) {
				log.Error("Failed to submit stroke", "error", err)
			}
			if !h.queueAck(acks, writerDone, ackFor(ev.Seq, err)) {
				return
			}

		default:
			if !h.queueAck(acks, writerDone, api.AckFrame{Type: api.StreamAck, Error: "unknown frame type"}) {
				return
			}
		}
	}
}

func (h *StreamHandler) queueAck(acks chan<- api.AckFrame, writerDone <-chan struct{}, ack api.AckFrame) bool {
	select {
	case acks <- ack:
		return true
	case <-writerDone:
		return false
	}
}

// writePump единственный писатель в соединение
func (h *StreamHandler) writePump(ctx context.Context, log *slog.Logger, conn *websocket.Conn, att *engine.Attachment, acks <-chan api.AckFrame) {
	ticker := time.NewTicker(pingPeriod)
	keepalive := time.NewTicker(h.keepalive)
	defer func() {
		ticker.Stop()
		keepalive.Stop()
		// Разблокирует ReadMessage в readPump
		_ = conn.Close()
	}()

	write := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			log.Debug("WebSocket write failed", "error", err)
			return false
		}
		return true
	}

	if !write(helloMessage(att)) {
		return
	}
	for _, msg := range replayMessages(att) {
		if !write(msg) {
			return
		}
	}

	for {
		select {
		case n, ok := <-att.Sub.C():
			if !ok {
				log.Info("WebSocket stream closed by hub", "dropped", att.Sub.Dropped())
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscription closed"),
					time.Now().Add(writeWait))
				return
			}
			if !write(toStreamMessage(n)) {
				return
			}

		case ack := <-acks:
			if !write(ack) {
				return
			}

		case <-keepalive.C:
			if err := h.service.Heartbeat(ctx, att.ClientID); err != nil {
				log.Warn("Failed to refresh stream presence", "error", err)
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}

		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func isDrawingDisabled(err error) bool {
	return errors.Is(err, engine.ErrDrawingDisabled)
}

func isInvalidInput(err error) bool {
	return errors.Is(err, engine.ErrInvalidInput)
}
