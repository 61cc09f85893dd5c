package shared

import "errors"

var (
	// ErrOutOfRange signals an out of range request.
	ErrOutOfRange = errors.New("out of range")

	// ErrInvalidConfiguration signals that a constructor precondition
	// was violated, e.g. a segment count that is not a power of two.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrCapacityExhausted signals that an insert could not be placed
	// and the table was not allowed to grow any further.
	ErrCapacityExhausted = errors.New("capacity exhausted")

	// ErrOutOfMemory signals an allocation failure reported by a growth
	// collaborator. The go runtime aborts when it cannot allocate, so
	// the core never produces this error itself.
	ErrOutOfMemory = errors.New("out of memory")
)
