package engine

import "sync"

// Sequence монотонный счетчик номеров событий журнала.
// В отличие от часов Лампорта значения не перескакивают: каждый Tick
// выдает ровно предыдущее значение + 1.
type Sequence struct {
	counter int64
	mu      sync.Mutex
}

// NewSequence создает счетчик, последний выданный номер которого равен last
func NewSequence(last int64) *Sequence {
	return &Sequence{counter: last}
}

// Tick увеличивает счетчик и возвращает новое значение
func (s *Sequence) Tick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	return s.counter
}

// Next возвращает значение, которое выдаст следующий Tick, не изменяя счетчик
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counter + 1
}

// Current возвращает последний выданный номер
func (s *Sequence) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counter
}
