package domain

import "errors"

var (
	// ErrAccountNotFound is returned when the feed provider has no such account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrCorruptCheckpoint marks a stored checkpoint with a cursor but no time.
	ErrCorruptCheckpoint = errors.New("checkpoint has cursor without time")
)
