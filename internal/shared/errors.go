package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition indicates an order status change that is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict indicates lock contention or a stale concurrent update.
	// Callers should retry the whole operation from a fresh read.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrPersistence indicates an underlying store failure. The enclosing
	// transaction guarantees no partial rows were committed.
	ErrPersistence = errors.New("storage failure")
)
