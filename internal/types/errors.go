package types

import "errors"

// Sentinel errors shared across the dispatch engine. Callers wrap these with
// fmt.Errorf("...: %w", err) and branch with errors.Is.
var (
	// ErrInvalidArgument covers zero/negative round-robin moduli, empty user
	// ids, and illegal state transitions requested by callers
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a session or agent id is unknown
	ErrNotFound = errors.New("not found")

	// ErrCapacityConflict is returned when a session transition races with
	// another writer: an assignment or overflow move finds the session no
	// longer Queued
	ErrCapacityConflict = errors.New("capacity conflict")
)
