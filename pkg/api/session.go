package api

// JoinRequest запрос POST /api/v1/session/join.
// Пустой client_id: сервер выдаст новый.
type JoinRequest struct {
	ClientID string `json:"client_id,omitempty"`
}

// JoinResponse состояние, от которого клиент выбирает базовую точку since
type JoinResponse struct {
	ClientID            string `json:"client_id"`
	LastSeq             int64  `json:"last_seq"`
	ActiveUsers         int    `json:"active_users"`
	HeartbeatIntervalMs int64  `json:"heartbeat_interval_ms"`
	DrawingEnabled      bool   `json:"drawing_enabled"`
}

// ClientRequest запрос heartbeat/leave
type ClientRequest struct {
	ClientID string `json:"client_id"`
}

// HealthResponse ответ health check
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version,omitempty"`
	LastSeq        int64  `json:"last_seq"`
	Retained       int    `json:"retained"`
	ActiveUsers    int    `json:"active_users"`
	Subscribers    int    `json:"subscribers"`
	DrawingEnabled bool   `json:"drawing_enabled"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
