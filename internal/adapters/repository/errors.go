package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrUnavailable    = errors.New("item store unavailable")
	ErrUnknownBackend = errors.New("unknown store backend")
)
