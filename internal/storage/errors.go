package storage

import "errors"

// Storage errors shared by every backend.
var (
	// ErrConnection is returned when a backend cannot be reached or rejects the credentials.
	ErrConnection = errors.New("store connection failed")

	// ErrNotSupported is returned when an operation is invalid for the active backend,
	// e.g. Get on a file-backed store.
	ErrNotSupported = errors.New("operation not supported by store backend")

	// ErrIO is returned when a read, write or pipeline execution fails in transport.
	// Pipeline batches failing with ErrIO are all-or-nothing from the caller's view.
	ErrIO = errors.New("store i/o failed")

	// ErrUnknownKind is returned for an unrecognised backend selection.
	ErrUnknownKind = errors.New("unknown store kind")

	// ErrDuplicateKey is returned when a telemetry row with the same key already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
