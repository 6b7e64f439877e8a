package allocation

// TokenType classifies how a patient entered the queue. The type fixes the
// token's priority for its whole lifetime.
type TokenType string

const (
	TypeOnlineBooking TokenType = "ONLINE_BOOKING"
	TypeWalkIn        TokenType = "WALK_IN"
	TypePaidPriority  TokenType = "PAID_PRIORITY"
	TypeFollowUp      TokenType = "FOLLOW_UP"
	TypeEmergency     TokenType = "EMERGENCY"
)

// TokenState is the lifecycle state of a token. CONSULTED, CANCELLED and
// NO_SHOW are terminal.
type TokenState string

const (
	StateAllocated TokenState = "ALLOCATED"
	StateCheckedIn TokenState = "CHECKED_IN"
	StateConsulted TokenState = "CONSULTED"
	StateCancelled TokenState = "CANCELLED"
	StateNoShow    TokenState = "NO_SHOW"
)

// priorityByType ranks token types; higher means more urgent. EMERGENCY is
// the unique highest tier.
var priorityByType = map[TokenType]int{
	TypeEmergency:     5,
	TypePaidPriority:  4,
	TypeFollowUp:      3,
	TypeOnlineBooking: 2,
	TypeWalkIn:        1,
}

// TokenTypes lists all valid types in priority order, highest first.
var TokenTypes = []TokenType{
	TypeEmergency,
	TypePaidPriority,
	TypeFollowUp,
	TypeOnlineBooking,
	TypeWalkIn,
}

// TokenStates lists all lifecycle states.
var TokenStates = []TokenState{
	StateAllocated,
	StateCheckedIn,
	StateConsulted,
	StateCancelled,
	StateNoShow,
}

const (
	// AvgConsultationMinutes is the assumed per-patient service duration
	// used for wait estimates.
	AvgConsultationMinutes = 15

	// emergencyBufferFraction is the share of a slot's capacity reserved as
	// emergency headroom, rounded up.
	emergencyBufferFraction = 0.2

	// DefaultSlotMinutes is the standard slot length used by schedule
	// seeding.
	DefaultSlotMinutes = 60
)

// ValidTokenType reports whether t is one of the closed set of types.
func ValidTokenType(t TokenType) bool {
	_, ok := priorityByType[t]
	return ok
}

// PriorityFor returns the fixed priority for a token type, or 0 for an
// unknown type.
func PriorityFor(t TokenType) int {
	return priorityByType[t]
}

func (s TokenState) terminal() bool {
	return s == StateConsulted || s == StateCancelled || s == StateNoShow
}

// Active reports whether the state still occupies slot capacity.
func (s TokenState) Active() bool {
	return s != StateCancelled && s != StateNoShow
}

// Waiting reports whether the token is still in the queue (allocated or
// checked in). Waiting tokens are the ones renumbering touches.
func (s TokenState) Waiting() bool {
	return s == StateAllocated || s == StateCheckedIn
}
