package allocation

import (
	"context"

	"github.com/google/uuid"
)

// SlotRepository owns Slot instances keyed by id. Implementations return
// copies; every mutation flows through Update.
type SlotRepository interface {
	Add(ctx context.Context, slot *Slot) error
	Get(ctx context.Context, id uuid.UUID) (*Slot, error)
	Update(ctx context.Context, slot *Slot) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ByProviderAndDate lists a doctor's slots sorted by start time
	// ascending. An empty date matches all dates.
	ByProviderAndDate(ctx context.Context, doctorID, date string) ([]*Slot, error)
	ByDate(ctx context.Context, date string) ([]*Slot, error)
	Active(ctx context.Context) ([]*Slot, error)
	All(ctx context.Context) ([]*Slot, error)
}

// TokenRepository owns Token instances keyed by id.
type TokenRepository interface {
	Add(ctx context.Context, token *Token) error
	Get(ctx context.Context, id uuid.UUID) (*Token, error)
	Update(ctx context.Context, token *Token) error

	BySlot(ctx context.Context, slotID uuid.UUID) ([]*Token, error)
	ByProvider(ctx context.Context, doctorID string) ([]*Token, error)
	ByPatient(ctx context.Context, patientID string) ([]*Token, error)
	ByState(ctx context.Context, state TokenState) ([]*Token, error)
	ByType(ctx context.Context, tokenType TokenType) ([]*Token, error)
	All(ctx context.Context) ([]*Token, error)
}
