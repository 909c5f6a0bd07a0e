package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/drawsync/pkg/api"
)

const streamWriteWait = 10 * time.Second

// Inbound одно сообщение от сервера по WebSocket: либо сообщение потока, либо ack
type Inbound struct {
	Message *api.StreamMessage
	Ack     *api.AckFrame
}

// Stream WebSocket соединение с /api/v1/ws
type Stream struct {
	conn *websocket.Conn
	mu   sync.Mutex // gorilla допускает одного писателя
}

// DialStream подключается к потоку событий после since
func (c *Client) DialStream(ctx context.Context, clientID string, since int64) (*Stream, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/ws")
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	q := url.Values{}
	q.Set("since", strconv.FormatInt(since, 10))
	if clientID != "" {
		q.Set("client_id", clientID)
	}
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial stream: %w", err)
	}

	return &Stream{conn: conn}, nil
}

// Recv читает следующее сообщение. Блокируется до прихода данных или закрытия.
func (s *Stream) Recv() (Inbound, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return Inbound{}, err
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Inbound{}, fmt.Errorf("malformed stream message: %w", err)
	}

	if head.Type == api.StreamAck {
		var ack api.AckFrame
		if err := json.Unmarshal(data, &ack); err != nil {
			return Inbound{}, fmt.Errorf("malformed ack: %w", err)
		}
		return Inbound{Ack: &ack}, nil
	}

	var msg api.StreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Inbound{}, fmt.Errorf("malformed stream message: %w", err)
	}
	return Inbound{Message: &msg}, nil
}

// SendStroke отправляет отрезок; ответ придет как Inbound.Ack
func (s *Stream) SendStroke(seg api.StrokeSegment) error {
	return s.write(api.ClientFrame{Type: api.ClientFrameStroke, Segment: &seg})
}

// SendHeartbeat продлевает присутствие
func (s *Stream) SendHeartbeat() error {
	return s.write(api.ClientFrame{Type: api.ClientFrameHeartbeat})
}

func (s *Stream) write(frame api.ClientFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return s.conn.WriteJSON(frame)
}

// Close закрывает соединение с нормальным кодом
func (s *Stream) Close() error {
	s.mu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(streamWriteWait))
	s.mu.Unlock()

	return s.conn.Close()
}

// IsClosed сообщает, что ошибка Recv означает штатное закрытие соединения,
// включая просьбу сервера переподключиться (1013)
func IsClosed(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseTryAgainLater) ||
		errors.Is(err, net.ErrClosed)
}
