package models

import "time"

// PresenceEntry запись присутствия клиента.
// Клиент активен, пока now - LastSeenAt < presence timeout.
type PresenceEntry struct {
	LastSeenAt time.Time `json:"last_seen_at"`
	ClientID   string    `json:"client_id"`
}

// IsNewerThan реализует last-write-wins по времени последнего контакта:
// при равном времени выигрывает лексикографически больший ClientID.
func (p PresenceEntry) IsNewerThan(other PresenceEntry) bool {
	if p.LastSeenAt.After(other.LastSeenAt) {
		return true
	}
	if p.LastSeenAt.Before(other.LastSeenAt) {
		return false
	}
	return p.ClientID > other.ClientID
}

// ActiveAt сообщает, активен ли клиент в момент now при заданном timeout
func (p PresenceEntry) ActiveAt(now time.Time, timeout time.Duration) bool {
	return now.Sub(p.LastSeenAt) < timeout
}
