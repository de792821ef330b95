package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (wrapped with
// fmt.Errorf("...: %w")) so services can translate them into domain errors.
//
//   - ErrNotFound: the record does not exist
//   - ErrConflict: a uniqueness backstop or a concurrent writer rejected the write
//   - ErrInvalidState: stored data violates a structural invariant
//   - ErrUnavailable: the backing service cannot be reached
//
// For validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
