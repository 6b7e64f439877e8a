package allocation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Token is a single patient's claim on a slot. Priority is derived from the
// type at creation and never recomputed; position and estimated time are
// recomputed by the engine as the slot's queue changes.
type Token struct {
	ID          uuid.UUID
	DoctorID    string
	SlotID      uuid.UUID
	PatientID   string
	PatientName string
	PhoneNumber string
	Type        TokenType
	Priority    int

	TokenNumber   int
	EstimatedTime string // HH:MM
	State         TokenState
	Notes         string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CheckedInAt *time.Time
	ConsultedAt *time.Time
	CancelledAt *time.Time
}

func newToken(slot *Slot, patientID, patientName, phoneNumber string, tokenType TokenType, tokenNumber int, notes string) *Token {
	now := time.Now()
	return &Token{
		ID:            uuid.New(),
		DoctorID:      slot.DoctorID,
		SlotID:        slot.ID,
		PatientID:     patientID,
		PatientName:   patientName,
		PhoneNumber:   phoneNumber,
		Type:          tokenType,
		Priority:      PriorityFor(tokenType),
		TokenNumber:   tokenNumber,
		EstimatedTime: slot.EstimatedTimeFor(tokenNumber),
		State:         StateAllocated,
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CheckIn marks the patient as arrived.
func (t *Token) CheckIn() error {
	if t.State != StateAllocated {
		return &TransitionError{State: t.State, Op: "check in"}
	}
	now := time.Now()
	t.State = StateCheckedIn
	t.CheckedInAt = &now
	t.UpdatedAt = now
	return nil
}

// Complete marks the consultation as done. CONSULTED is terminal.
func (t *Token) Complete() error {
	if t.State != StateCheckedIn {
		return &TransitionError{State: t.State, Op: "complete"}
	}
	now := time.Now()
	t.State = StateConsulted
	t.ConsultedAt = &now
	t.UpdatedAt = now
	return nil
}

// Cancel is allowed only while the token is still waiting; terminal states
// admit no further transitions.
func (t *Token) Cancel() error {
	if t.State.terminal() {
		return &TransitionError{State: t.State, Op: "cancel"}
	}
	now := time.Now()
	t.State = StateCancelled
	t.CancelledAt = &now
	t.UpdatedAt = now
	return nil
}

// MarkNoShow records that the patient never turned up.
func (t *Token) MarkNoShow() error {
	if t.State != StateAllocated && t.State != StateCheckedIn {
		return &TransitionError{State: t.State, Op: "mark no-show"}
	}
	t.State = StateNoShow
	t.UpdatedAt = time.Now()
	return nil
}

// AppendNote adds an audit line to the token's free-text notes.
func (t *Token) AppendNote(format string, args ...any) {
	t.Notes += "\n[" + fmt.Sprintf(format, args...) + "]"
	t.UpdatedAt = time.Now()
}

// Clone returns an independent copy for handing across the repository
// boundary.
func (t *Token) Clone() *Token {
	c := *t
	if t.CheckedInAt != nil {
		at := *t.CheckedInAt
		c.CheckedInAt = &at
	}
	if t.ConsultedAt != nil {
		at := *t.ConsultedAt
		c.ConsultedAt = &at
	}
	if t.CancelledAt != nil {
		at := *t.CancelledAt
		c.CancelledAt = &at
	}
	return &c
}
