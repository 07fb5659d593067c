package models

import "errors"

var (
	// ErrNotInitialized marks reads issued before the first aggregation cycle.
	ErrNotInitialized = errors.New("intelligence core not initialized")
	// ErrInvalidQuery marks malformed query arguments.
	ErrInvalidQuery = errors.New("invalid query")
)
