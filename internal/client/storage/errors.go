package storage

import "errors"

// Common client storage errors
var (
	// ErrNotFound запись еще не сохранялась
	ErrNotFound = errors.New("not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
