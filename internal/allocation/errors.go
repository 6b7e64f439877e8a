package allocation

import (
	"errors"
	"fmt"
)

var (
	// Validation
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrInvalidDelay     = errors.New("delay minutes must be non-negative")

	// Lookup
	ErrSlotNotFound  = errors.New("slot not found")
	ErrTokenNotFound = errors.New("token not found")

	// State / availability
	ErrSlotInactive    = errors.New("slot is not active")
	ErrNoAvailableSlot = errors.New("no available slots found")
	ErrCapacityFull    = errors.New("slot capacity full")

	// Token lifecycle
	ErrAlreadyCancelled      = errors.New("token already cancelled")
	ErrCannotCancelCompleted = errors.New("cannot cancel completed consultation")
	ErrInvalidTransition     = errors.New("invalid token state transition")

	// Slot invariant; only reachable if a caller skips the capacity check.
	ErrSlotOverCapacity = errors.New("slot capacity exceeded")
)

// ErrReallocationImpossible covers both failure modes of emergency
// displacement. The two wrapped variants below carry the specific cause;
// errors.Is against either the parent or the variant works.
var (
	ErrReallocationImpossible = errors.New("reallocation impossible")

	ErrNoDisplacementCandidate = fmt.Errorf(
		"%w: all tokens are checked in or higher priority", ErrReallocationImpossible)
	ErrNoAlternativeSlot = fmt.Errorf(
		"%w: no alternative slot available", ErrReallocationImpossible)
)

// TransitionError reports an operation applied to a token in a state that
// does not permit it.
type TransitionError struct {
	State TokenState
	Op    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s token in state %s", e.Op, e.State)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
