package api

// Типы сообщений потока (SSE и WebSocket)
const (
	StreamHello    = "hello"
	StreamEvent    = "event"
	StreamPresence = "presence"
)

// StreamMessage сообщение от сервера в push и pub/sub каналах.
// hello приходит первым и несет состояние на момент подключения,
// затем реплей как event, затем живые event и presence.
type StreamMessage struct {
	Event          *Event `json:"event,omitempty"`
	DrawingEnabled *bool  `json:"drawing_enabled,omitempty"`
	Type           string `json:"type"`
	ClientID       string `json:"client_id,omitempty"`
	LastSeq        int64  `json:"last_seq,omitempty"`
	ActiveUsers    int    `json:"active_users"`
	Reset          bool   `json:"reset,omitempty"`
}

// Типы сообщений от клиента по WebSocket
const (
	ClientFrameStroke    = "stroke"
	ClientFrameHeartbeat = "heartbeat"
)

// ClientFrame сообщение от клиента по WebSocket
type ClientFrame struct {
	Segment *StrokeSegment `json:"segment,omitempty"`
	Type    string         `json:"type"`
}

// AckFrame ответ сервера на stroke, отправленный по WebSocket
type AckFrame struct {
	Error    string `json:"error,omitempty"`
	Type     string `json:"type"` // всегда "ack"
	Seq      int64  `json:"seq,omitempty"`
	Accepted bool   `json:"accepted"`
}

// StreamAck тип AckFrame
const StreamAck = "ack"
