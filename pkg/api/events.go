package api

import "time"

// Типы событий журнала
const (
	EventTypeStroke  = "stroke"
	EventTypeClear   = "clear"
	EventTypeControl = "control"
)

// StrokeSegment отрезок линии в wire-формате
type StrokeSegment struct {
	Color       string  `json:"color"`
	AuthorID    string  `json:"author_id,omitempty"` // заполняется сервером
	PrevX       float64 `json:"prev_x"`
	PrevY       float64 `json:"prev_y"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	StrokeWidth int     `json:"stroke_width"`
}

// Event событие журнала в wire-формате
type Event struct {
	CreatedAt time.Time      `json:"created_at"`
	Segment   *StrokeSegment `json:"segment,omitempty"`   // для stroke
	Enabled   *bool          `json:"enabled,omitempty"`   // для control
	Type      string         `json:"type"`                // stroke, clear, control
	AuthorID  string         `json:"author_id,omitempty"` // для clear
	Seq       int64          `json:"seq"`
}

// PollResponse ответ на GET /api/v1/events?since=N
type PollResponse struct {
	Events         []Event `json:"events"`
	LastSeq        int64   `json:"last_seq"`
	ActiveUsers    int     `json:"active_users"`
	DrawingEnabled bool    `json:"drawing_enabled"`
	Reset          bool    `json:"reset"` // клиент должен пересобрать проекцию из events
}

// StrokeRequest запрос POST /api/v1/strokes
type StrokeRequest struct {
	ClientID string        `json:"client_id"`
	Segment  StrokeSegment `json:"segment"`
}

// StrokeResponse подтверждение отрезка.
// Accepted=false означает, что рисование сейчас запрещено и отрезок отброшен.
type StrokeResponse struct {
	Seq      int64 `json:"seq,omitempty"`
	Accepted bool  `json:"accepted"`
}

// EventResponse ответ с одним добавленным событием
type EventResponse struct {
	Event Event `json:"event"`
}
