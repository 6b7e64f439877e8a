package allocation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/medoc-health/opd-token-allocation/internal/lock"
)

// Engine orchestrates token allocation against the two repositories. It
// holds no entity state of its own: every operation fetches fresh entities,
// mutates them inside the slot's critical section, and writes them back.
type Engine struct {
	slots  SlotRepository
	tokens TokenRepository
	locker lock.SlotLocker
}

func NewEngine(slots SlotRepository, tokens TokenRepository, locker lock.SlotLocker) *Engine {
	return &Engine{
		slots:  slots,
		tokens: tokens,
		locker: locker,
	}
}

// AllocationRequest is a single patient's ask for a token. PreferredSlotID
// of uuid.Nil lets the engine pick the best slot for the doctor and date.
type AllocationRequest struct {
	DoctorID        string
	PatientID       string
	PatientName     string
	PhoneNumber     string
	Type            TokenType
	Date            string
	PreferredSlotID uuid.UUID
	Notes           string
}

// AllocationResult pairs the created token with the slot it landed in.
type AllocationResult struct {
	Token *Token
	Slot  *Slot
}

// errSlotFull signals that the locked capacity re-check failed; for
// emergencies it routes into the displacement path.
var errSlotFull = errors.New("slot full under lock")

// Allocate admits a patient into a slot. Non-emergency requests fail with
// ErrCapacityFull when the chosen slot is at MaxCapacity; emergencies may
// use the buffer and, failing that, displace exactly one lower-priority
// allocated token to another slot.
func (e *Engine) Allocate(ctx context.Context, req AllocationRequest) (*AllocationResult, error) {
	if !ValidTokenType(req.Type) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTokenType, req.Type)
	}
	emergency := req.Type == TypeEmergency

	target, err := e.resolveSlot(ctx, req, emergency)
	if err != nil {
		return nil, err
	}
	preferred := req.PreferredSlotID != uuid.Nil

	res, err := e.admit(ctx, target.ID, req, emergency, preferred)
	if err == nil || !errors.Is(err, errSlotFull) {
		return res, err
	}
	if !emergency {
		return nil, ErrCapacityFull
	}
	return e.admitWithDisplacement(ctx, target, req)
}

// resolveSlot picks the target: the caller's preferred slot when named
// (which must exist and be active), otherwise the best available candidate.
func (e *Engine) resolveSlot(ctx context.Context, req AllocationRequest, emergency bool) (*Slot, error) {
	if req.PreferredSlotID != uuid.Nil {
		slot, err := e.slots.Get(ctx, req.PreferredSlotID)
		if err != nil {
			return nil, err
		}
		if !slot.IsActive {
			return nil, ErrSlotInactive
		}
		return slot, nil
	}
	return e.bestAvailableSlot(ctx, req.DoctorID, req.Date, emergency, uuid.Nil)
}

// bestAvailableSlot returns the active slot for (doctor, date) with spare
// capacity for the urgency class and the lowest utilization. Candidates
// arrive sorted by start time, and the sort is stable, so utilization ties
// go to the earliest slot.
func (e *Engine) bestAvailableSlot(ctx context.Context, doctorID, date string, emergency bool, exclude uuid.UUID) (*Slot, error) {
	slots, err := e.slots.ByProviderAndDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	var candidates []*Slot
	for _, s := range slots {
		if s.ID != exclude && s.IsActive && s.HasCapacity(emergency) {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoAvailableSlot
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Utilization() < candidates[j].Utilization()
	})
	return candidates[0], nil
}

// admit performs the plain admission path under the slot's lock, re-checking
// capacity inside the critical section.
func (e *Engine) admit(ctx context.Context, slotID uuid.UUID, req AllocationRequest, emergency, preferred bool) (*AllocationResult, error) {
	var result *AllocationResult

	err := e.locker.WithSlots(ctx, []uuid.UUID{slotID}, func(ctx context.Context) error {
		slot, err := e.slots.Get(ctx, slotID)
		if err != nil {
			return err
		}
		if !slot.IsActive {
			if preferred {
				return ErrSlotInactive
			}
			return ErrNoAvailableSlot
		}
		if !slot.HasCapacity(emergency) {
			return errSlotFull
		}

		result, err = e.createToken(ctx, slot, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// createToken builds the token at the next free position, persists it, and
// admits it into the slot. Runs inside the slot's critical section.
func (e *Engine) createToken(ctx context.Context, slot *Slot, req AllocationRequest) (*AllocationResult, error) {
	number, err := e.nextTokenNumber(ctx, slot.ID)
	if err != nil {
		return nil, err
	}

	token := newToken(slot, req.PatientID, req.PatientName, req.PhoneNumber, req.Type, number, req.Notes)
	if err := e.tokens.Add(ctx, token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	if err := slot.Admit(); err != nil {
		return nil, err
	}
	if err := e.slots.Update(ctx, slot); err != nil {
		return nil, fmt.Errorf("update slot: %w", err)
	}

	return &AllocationResult{Token: token, Slot: slot}, nil
}

// nextTokenNumber is 1 plus the count of the slot's tokens still holding
// capacity (everything but CANCELLED and NO_SHOW).
func (e *Engine) nextTokenNumber(ctx context.Context, slotID uuid.UUID) (int, error) {
	tokens, err := e.tokens.BySlot(ctx, slotID)
	if err != nil {
		return 0, fmt.Errorf("list slot tokens: %w", err)
	}
	n := 0
	for _, t := range tokens {
		if t.State.Active() {
			n++
		}
	}
	return n + 1, nil
}

// admitWithDisplacement frees emergency capacity by moving one allocated
// token out of the target slot, then admits the emergency. Exactly one
// displacement is attempted; if it cannot be done the allocation fails.
func (e *Engine) admitWithDisplacement(ctx context.Context, target *Slot, req AllocationRequest) (*AllocationResult, error) {
	// Candidate eligibility is decided before looking for an alternate slot
	// so the failure names the real obstacle; the locked phase re-picks the
	// victim from fresh state.
	tokens, err := e.tokens.BySlot(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("list slot tokens: %w", err)
	}
	eligible := false
	for _, t := range tokens {
		if t.State == StateAllocated {
			eligible = true
			break
		}
	}
	if !eligible {
		return nil, ErrNoDisplacementCandidate
	}

	alt, err := e.bestAvailableSlot(ctx, target.DoctorID, target.Date, false, target.ID)
	if err != nil {
		if errors.Is(err, ErrNoAvailableSlot) {
			return nil, ErrNoAlternativeSlot
		}
		return nil, err
	}

	var result *AllocationResult

	err = e.locker.WithSlots(ctx, []uuid.UUID{target.ID, alt.ID}, func(ctx context.Context) error {
		slot, err := e.slots.Get(ctx, target.ID)
		if err != nil {
			return err
		}

		// Capacity may have freed up while we were picking the alternate.
		if !slot.HasCapacity(true) {
			if err := e.displaceOne(ctx, slot, alt.ID); err != nil {
				return err
			}
		}

		result, err = e.createToken(ctx, slot, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// displaceOne moves the target slot's lowest-priority allocated token into
// the alternate slot and renumbers the donor queue. Checked-in tokens are
// never displaced; ties on priority go to the most recently admitted token
// (highest position) to minimize disruption. Runs with both slots locked.
func (e *Engine) displaceOne(ctx context.Context, slot *Slot, altID uuid.UUID) error {
	tokens, err := e.tokens.BySlot(ctx, slot.ID)
	if err != nil {
		return fmt.Errorf("list slot tokens: %w", err)
	}

	var victim *Token
	for _, t := range tokens {
		if t.State != StateAllocated {
			continue
		}
		if victim == nil ||
			t.Priority < victim.Priority ||
			(t.Priority == victim.Priority && t.TokenNumber > victim.TokenNumber) {
			victim = t
		}
	}
	if victim == nil {
		return ErrNoDisplacementCandidate
	}

	alt, err := e.slots.Get(ctx, altID)
	if err != nil {
		return err
	}
	if !alt.IsActive || !alt.HasCapacity(false) {
		return ErrNoAlternativeSlot
	}

	number, err := e.nextTokenNumber(ctx, alt.ID)
	if err != nil {
		return err
	}

	victim.SlotID = alt.ID
	victim.TokenNumber = number
	victim.EstimatedTime = alt.EstimatedTimeFor(number)
	victim.AppendNote("Reallocated from %s-%s to %s-%s",
		slot.StartTime, slot.EndTime, alt.StartTime, alt.EndTime)

	if err := e.tokens.Update(ctx, victim); err != nil {
		return fmt.Errorf("update displaced token: %w", err)
	}

	slot.Release()
	if err := alt.Admit(); err != nil {
		return err
	}
	if err := e.slots.Update(ctx, alt); err != nil {
		return fmt.Errorf("update alternate slot: %w", err)
	}
	if err := e.slots.Update(ctx, slot); err != nil {
		return fmt.Errorf("update slot: %w", err)
	}

	// Close the gap the displaced token left behind.
	return e.renumber(ctx, slot)
}

// Cancel transitions a token to CANCELLED, frees its slot capacity, and
// renumbers the remaining queue.
func (e *Engine) Cancel(ctx context.Context, tokenID uuid.UUID, reason string) (*Token, error) {
	var cancelled *Token

	err := e.withTokenSlot(ctx, tokenID, func(ctx context.Context, token *Token, slot *Slot) error {
		switch token.State {
		case StateCancelled:
			return ErrAlreadyCancelled
		case StateConsulted:
			return ErrCannotCancelCompleted
		}
		if err := token.Cancel(); err != nil {
			return err
		}
		if reason != "" {
			token.AppendNote("Cancelled: %s", reason)
		}
		if err := e.tokens.Update(ctx, token); err != nil {
			return fmt.Errorf("update token: %w", err)
		}

		cancelled = token
		return e.releaseAndRenumber(ctx, slot)
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// MarkNoShow is the no-show counterpart of Cancel: same capacity release and
// renumbering, NO_SHOW terminal state.
func (e *Engine) MarkNoShow(ctx context.Context, tokenID uuid.UUID) (*Token, error) {
	var marked *Token

	err := e.withTokenSlot(ctx, tokenID, func(ctx context.Context, token *Token, slot *Slot) error {
		if err := token.MarkNoShow(); err != nil {
			return err
		}
		if err := e.tokens.Update(ctx, token); err != nil {
			return fmt.Errorf("update token: %w", err)
		}

		marked = token
		return e.releaseAndRenumber(ctx, slot)
	})
	if err != nil {
		return nil, err
	}
	return marked, nil
}

// CheckIn marks the patient as arrived. Position and capacity are unchanged.
func (e *Engine) CheckIn(ctx context.Context, tokenID uuid.UUID) (*Token, error) {
	return e.transition(ctx, tokenID, (*Token).CheckIn)
}

// Complete marks the consultation as done.
func (e *Engine) Complete(ctx context.Context, tokenID uuid.UUID) (*Token, error) {
	return e.transition(ctx, tokenID, (*Token).Complete)
}

func (e *Engine) transition(ctx context.Context, tokenID uuid.UUID, op func(*Token) error) (*Token, error) {
	var updated *Token

	err := e.withTokenSlot(ctx, tokenID, func(ctx context.Context, token *Token, _ *Slot) error {
		if err := op(token); err != nil {
			return err
		}
		if err := e.tokens.Update(ctx, token); err != nil {
			return fmt.Errorf("update token: %w", err)
		}
		updated = token
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AddSlotDelay accumulates schedule slippage on a slot and refreshes every
// waiting token's estimated time. Positions are unchanged by a pure delay.
func (e *Engine) AddSlotDelay(ctx context.Context, slotID uuid.UUID, minutes int) (*Slot, error) {
	if minutes < 0 {
		return nil, ErrInvalidDelay
	}

	var delayed *Slot

	err := e.locker.WithSlots(ctx, []uuid.UUID{slotID}, func(ctx context.Context) error {
		slot, err := e.slots.Get(ctx, slotID)
		if err != nil {
			return err
		}
		if err := slot.AddDelay(minutes); err != nil {
			return err
		}
		if err := e.slots.Update(ctx, slot); err != nil {
			return fmt.Errorf("update slot: %w", err)
		}

		delayed = slot
		return e.renumber(ctx, slot)
	})
	if err != nil {
		return nil, err
	}
	return delayed, nil
}

// AllocationStats is a read-side aggregate over a doctor's day.
type AllocationStats struct {
	TotalSlots         int                `json:"totalSlots"`
	TotalCapacity      int                `json:"totalCapacity"`
	TotalAllocated     int                `json:"totalAllocated"`
	UtilizationPercent float64            `json:"utilizationPercentage"`
	TokensByType       map[TokenType]int  `json:"tokensByType"`
	TokensByState      map[TokenState]int `json:"tokensByState"`
}

// Stats aggregates slot capacity and token counts for a doctor, optionally
// restricted to one date. It mutates nothing.
func (e *Engine) Stats(ctx context.Context, doctorID, date string) (*AllocationStats, error) {
	slots, err := e.slots.ByProviderAndDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	stats := &AllocationStats{
		TotalSlots:    len(slots),
		TokensByType:  make(map[TokenType]int, len(TokenTypes)),
		TokensByState: make(map[TokenState]int, len(TokenStates)),
	}
	for _, tt := range TokenTypes {
		stats.TokensByType[tt] = 0
	}
	for _, ts := range TokenStates {
		stats.TokensByState[ts] = 0
	}

	for _, slot := range slots {
		stats.TotalCapacity += slot.MaxCapacity
		stats.TotalAllocated += slot.CurrentCapacity

		tokens, err := e.tokens.BySlot(ctx, slot.ID)
		if err != nil {
			return nil, fmt.Errorf("list slot tokens: %w", err)
		}
		for _, t := range tokens {
			stats.TokensByType[t.Type]++
			stats.TokensByState[t.State]++
		}
	}

	if stats.TotalCapacity > 0 {
		stats.UtilizationPercent = float64(stats.TotalAllocated) / float64(stats.TotalCapacity) * 100
	}
	return stats, nil
}

// releaseAndRenumber frees one unit of capacity and resequences the queue.
// The slot may be nil if it was removed at the repository level; the token
// transition still stands in that case.
func (e *Engine) releaseAndRenumber(ctx context.Context, slot *Slot) error {
	if slot == nil {
		return nil
	}
	slot.Release()
	if err := e.slots.Update(ctx, slot); err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	return e.renumber(ctx, slot)
}

// renumber resequences a slot's waiting tokens by their current relative
// order into a dense 1..N range and refreshes each estimated time. Runs
// inside the slot's critical section.
func (e *Engine) renumber(ctx context.Context, slot *Slot) error {
	tokens, err := e.tokens.BySlot(ctx, slot.ID)
	if err != nil {
		return fmt.Errorf("list slot tokens: %w", err)
	}

	var waiting []*Token
	for _, t := range tokens {
		if t.State.Waiting() {
			waiting = append(waiting, t)
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		return waiting[i].TokenNumber < waiting[j].TokenNumber
	})

	for i, t := range waiting {
		number := i + 1
		estimated := slot.EstimatedTimeFor(number)
		if t.TokenNumber == number && t.EstimatedTime == estimated {
			continue
		}
		t.TokenNumber = number
		t.EstimatedTime = estimated
		if err := e.tokens.Update(ctx, t); err != nil {
			return fmt.Errorf("update token: %w", err)
		}
	}
	return nil
}

// withTokenSlot runs fn with the token's slot locked, re-fetching the token
// inside the critical section. If the token moved slots between the read and
// the lock (emergency displacement), the lock is retaken on the new slot.
func (e *Engine) withTokenSlot(ctx context.Context, tokenID uuid.UUID, fn func(context.Context, *Token, *Slot) error) error {
	token, err := e.tokens.Get(ctx, tokenID)
	if err != nil {
		return err
	}

	for {
		slotID := token.SlotID
		moved := false

		err := e.locker.WithSlots(ctx, []uuid.UUID{slotID}, func(ctx context.Context) error {
			fresh, err := e.tokens.Get(ctx, tokenID)
			if err != nil {
				return err
			}
			if fresh.SlotID != slotID {
				token = fresh
				moved = true
				return nil
			}

			slot, err := e.slots.Get(ctx, fresh.SlotID)
			if err != nil {
				if !errors.Is(err, ErrSlotNotFound) {
					return err
				}
				slot = nil
			}
			return fn(ctx, fresh, slot)
		})
		if err != nil || !moved {
			return err
		}
	}
}
