package storage

import "errors"

// Sentinel errors returned by every store implementation. Adapters wrap driver
// errors with context; callers match with errors.Is.
var (
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey rejects a second insert of the same trade_id or run_id.
	// Records are never updated in place.
	ErrDuplicateKey = errors.New("duplicate key: records are append-only")

	// ErrInvalidInput rejects records or keys that fail validation before I/O.
	ErrInvalidInput = errors.New("invalid input")
)
