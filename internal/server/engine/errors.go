package engine

import "errors"

var (
	// ErrInvalidInput malformed client input; nothing was appended
	ErrInvalidInput = errors.New("invalid input")

	// ErrDrawingDisabled stroke dropped because drawing is paused.
	// Not a hard failure: transports acknowledge it as accepted=false.
	ErrDrawingDisabled = errors.New("drawing is disabled")
)
