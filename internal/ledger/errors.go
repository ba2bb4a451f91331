package ledger

import "errors"

// Error taxonomy for ledger operations. Validation and permission errors are
// raised before any storage write; storage errors propagate wrapped after a
// rollback.
var (
	ErrValidation             = errors.New("validation failed")
	ErrForbidden              = errors.New("forbidden")
	ErrLocked                 = errors.New("complaint is locked")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrTargetNotFound         = errors.New("assignment target not found")
	ErrConcurrentModification = errors.New("chain tip moved")
	ErrNotFound               = errors.New("complaint not found")
	ErrStorage                = errors.New("storage failure")
)
