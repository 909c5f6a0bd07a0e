package models

// CanvasState локальная проекция доски на клиенте.
// Strokes содержит только события stroke после последнего clear, по возрастанию Seq.
type CanvasState struct {
	Strokes        []SyncEvent `json:"strokes"`
	LastSeq        int64       `json:"last_seq"`
	ActiveUsers    int         `json:"active_users"`
	DrawingEnabled bool        `json:"drawing_enabled"`
}

// ModeratorToken сохраненный токен модератора
type ModeratorToken struct {
	ExpiresAt   int64  `json:"expires_at"` // unix seconds
	AccessToken string `json:"access_token"`
}

// Expired сообщает, истек ли токен к моменту now (unix seconds)
func (t ModeratorToken) Expired(now int64) bool {
	return t.ExpiresAt > 0 && now >= t.ExpiresAt
}
