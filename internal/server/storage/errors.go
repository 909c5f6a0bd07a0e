package storage

import "errors"

// Common storage errors
var (
	// ErrEventNotFound indicates that no event with the requested sequence number is retained
	ErrEventNotFound = errors.New("event not found")

	// ErrDuplicateSeq indicates an attempt to store a sequence number that is already taken
	ErrDuplicateSeq = errors.New("duplicate sequence number")

	// ErrClientNotFound indicates that presence entry was not found
	ErrClientNotFound = errors.New("client not found")
)
