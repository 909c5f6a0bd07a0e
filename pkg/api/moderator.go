package api

import "time"

// ModeratorLoginRequest обмен общего секрета на токен модератора
type ModeratorLoginRequest struct {
	Secret   string `json:"secret"`
	ClientID string `json:"client_id,omitempty"` // клиент, от имени которого действует модератор
}

// TokenResponse токен модератора
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"` // секунды
}

// ControlRequest запрос POST /api/v1/moderator/control
type ControlRequest struct {
	Enabled bool `json:"enabled"`
}

// PresenceClient активный клиент
type PresenceClient struct {
	LastSeenAt time.Time `json:"last_seen_at"`
	ClientID   string    `json:"client_id"`
}

// PresenceResponse ответ GET /api/v1/moderator/presence
type PresenceResponse struct {
	Clients     []PresenceClient `json:"clients"`
	ActiveUsers int              `json:"active_users"`
}
