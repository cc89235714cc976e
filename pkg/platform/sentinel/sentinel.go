package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into coded domain errors:
//   - ErrNotFound: the actor, grid area or delegation does not exist
//   - ErrAlreadyUsed: a unique value (actor number, grid area code) is taken
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrUnavailable: the backing store cannot be reached
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
