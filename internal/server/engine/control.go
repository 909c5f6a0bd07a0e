package engine

import "sync/atomic"

// Control глобальный флаг "рисование разрешено"
type Control struct {
	enabled atomic.Bool
}

// NewControl создает флаг с начальным значением
func NewControl(enabled bool) *Control {
	c := &Control{}
	c.enabled.Store(enabled)
	return c
}

// Enabled текущее значение
func (c *Control) Enabled() bool {
	return c.enabled.Load()
}

// Set устанавливает значение и сообщает, изменилось ли оно
func (c *Control) Set(enabled bool) bool {
	return c.enabled.Swap(enabled) != enabled
}
