package blocktree

import "errors"

// Error kinds per spec.md §7: validation errors fail the call, invariant
// errors are programming bugs (the writer aborts with no recovery), I/O
// errors fail the whole segment.
var (
	ErrInvalidConfig   = errors.New("blocktree: invalid configuration")
	ErrOutOfOrderTerm  = errors.New("blocktree: term out of order")
	ErrInvalidDocFreq  = errors.New("blocktree: docFreq must be > 0")
	ErrInvalidTermFreq = errors.New("blocktree: totalTermFreq must be >= docFreq")
	ErrEmptyField      = errors.New("blocktree: finish called with no terms pushed")
	ErrInvariant       = errors.New("blocktree: internal invariant violated")
)
