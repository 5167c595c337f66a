package domain

import "errors"

var (
	// ErrInvalidUpdate rejects a state update with a missing user identity.
	ErrInvalidUpdate = errors.New("invalid update: user is required")

	// ErrCapacityExceeded signals that a snapshot holds more present users
	// than the display assignment has slots. The caller decides whether to
	// grow the assignment; nothing is dropped silently.
	ErrCapacityExceeded = errors.New("capacity exceeded: more users than display slots")
)
