package storage

import "errors"

// Sentinel errors for the storage layer.
// HTTP handlers should use errors.Is() to map these to appropriate HTTP status codes.
var (
	// ErrValidation indicates the input failed validation
	// (e.g., a nil settings record).
	ErrValidation = errors.New("validation error")

	// ErrClosed indicates the backend has already been closed.
	ErrClosed = errors.New("settings backend closed")
)
