package models

import "time"

// EventKind тип события синхронизации
type EventKind string

const (
	// EventStroke отрезок линии, нарисованный клиентом
	EventStroke EventKind = "stroke"
	// EventClear очистка холста модератором
	EventClear EventKind = "clear"
	// EventControl изменение глобального флага "рисование разрешено"
	EventControl EventKind = "control"
)

// Valid проверяет, что тип события известен
func (k EventKind) Valid() bool {
	switch k {
	case EventStroke, EventClear, EventControl:
		return true
	}
	return false
}

// StrokeSegment один непрерывный отрезок, нарисованный клиентом за одно движение.
// Неизменяем после создания.
type StrokeSegment struct {
	Color       string  `json:"color"`        // Color цвет в hex формате (#rrggbb)
	AuthorID    string  `json:"author_id"`    // AuthorID идентификатор клиента-автора
	PrevX       float64 `json:"prev_x"`       // PrevX начальная точка
	PrevY       float64 `json:"prev_y"`       // PrevY начальная точка
	X           float64 `json:"x"`            // X конечная точка
	Y           float64 `json:"y"`            // Y конечная точка
	StrokeWidth int     `json:"stroke_width"` // StrokeWidth толщина линии (> 0)
}

// SyncEvent единица хранения в журнале событий.
// Размеченное объединение: заполнено ровно одно из полей Stroke / AuthorID / Enabled
// в зависимости от Kind.
type SyncEvent struct {
	CreatedAt time.Time      `json:"created_at"`
	Stroke    *StrokeSegment `json:"stroke,omitempty"`    // Stroke для EventStroke
	Kind      EventKind      `json:"kind"`                // Kind вариант события
	AuthorID  string         `json:"author_id,omitempty"` // AuthorID для EventClear
	Seq       int64          `json:"seq"`                 // Seq порядковый номер, назначается при добавлении
	Enabled   bool           `json:"enabled,omitempty"`   // Enabled для EventControl
}

// NewStrokeEvent создает кандидата на добавление для отрезка
func NewStrokeEvent(seg StrokeSegment) SyncEvent {
	return SyncEvent{Kind: EventStroke, Stroke: &seg}
}

// NewClearEvent создает кандидата на очистку холста
func NewClearEvent(authorID string) SyncEvent {
	return SyncEvent{Kind: EventClear, AuthorID: authorID}
}

// NewControlEvent создает кандидата на изменение флага рисования
func NewControlEvent(enabled bool) SyncEvent {
	return SyncEvent{Kind: EventControl, Enabled: enabled}
}

// Clone возвращает копию события, не разделяющую сегмент с оригиналом
func (e SyncEvent) Clone() SyncEvent {
	if e.Stroke != nil {
		seg := *e.Stroke
		e.Stroke = &seg
	}
	return e
}
