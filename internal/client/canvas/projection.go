// Package canvas хранит проекцию доски, собранную из журнала событий сервера
package canvas

import (
	"sync"

	"github.com/iudanet/drawsync/internal/models"
)

// Projection результат применения событий журнала по порядку.
// Событие с номером не больше уже примененного игнорируется, поэтому
// перекрытие реплея и живого потока безопасно.
type Projection struct {
	state models.CanvasState
	mu    sync.RWMutex
}

// New создает проекцию из сохраненного состояния
func New(state models.CanvasState) *Projection {
	state.Strokes = append([]models.SyncEvent(nil), state.Strokes...)
	return &Projection{state: state}
}

// Apply применяет одно событие и сообщает, изменило ли оно проекцию
func (p *Projection) Apply(ev models.SyncEvent) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.applyLocked(ev)
}

// Rebuild заменяет проекцию реплеем полного журнала (ответ с reset)
func (p *Projection) Rebuild(events []models.SyncEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state.Strokes = nil
	p.state.LastSeq = 0
	for _, ev := range events {
		p.applyLocked(ev)
	}
}

// ApplyAll применяет пачку событий и возвращает число примененных
func (p *Projection) ApplyAll(events []models.SyncEvent) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	applied := 0
	for _, ev := range events {
		if p.applyLocked(ev) {
			applied++
		}
	}
	return applied
}

func (p *Projection) applyLocked(ev models.SyncEvent) bool {
	if ev.Seq <= p.state.LastSeq {
		return false
	}
	p.state.LastSeq = ev.Seq

	switch ev.Kind {
	case models.EventStroke:
		if ev.Stroke != nil {
			p.state.Strokes = append(p.state.Strokes, ev.Clone())
		}
	case models.EventClear:
		p.state.Strokes = nil
	case models.EventControl:
		p.state.DrawingEnabled = ev.Enabled
	}

	return true
}

// SetStatus обновляет поля, которые приходят вне журнала
func (p *Projection) SetStatus(activeUsers int, drawingEnabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state.ActiveUsers = activeUsers
	p.state.DrawingEnabled = drawingEnabled
}

// SetActiveUsers обновляет число активных клиентов
func (p *Projection) SetActiveUsers(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state.ActiveUsers = n
}

// LastSeq номер последнего примененного события
func (p *Projection) LastSeq() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.state.LastSeq
}

// State копия текущего состояния
func (p *Projection) State() models.CanvasState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := p.state
	out.Strokes = make([]models.SyncEvent, len(p.state.Strokes))
	for i, ev := range p.state.Strokes {
		out.Strokes[i] = ev.Clone()
	}
	return out
}
