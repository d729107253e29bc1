package checkpoint

import "errors"

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates no checkpoint exists for the thread id.
	ErrNotFound = errors.New("checkpoint not found")
	// ErrDuplicate indicates a revision collision for a thread id.
	ErrDuplicate = errors.New("checkpoint revision already exists")
)
