package allocation

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemorySlotRepository is the reference SlotRepository: a mutex-guarded map.
// Reads return clones so callers cannot mutate stored state in place.
type MemorySlotRepository struct {
	mu    sync.RWMutex
	slots map[uuid.UUID]*Slot
}

func NewMemorySlotRepository() *MemorySlotRepository {
	return &MemorySlotRepository{slots: make(map[uuid.UUID]*Slot)}
}

func (r *MemorySlotRepository) Add(_ context.Context, slot *Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[slot.ID] = slot.Clone()
	return nil
}

func (r *MemorySlotRepository) Get(_ context.Context, id uuid.UUID) (*Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return slot.Clone(), nil
}

func (r *MemorySlotRepository) Update(_ context.Context, slot *Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[slot.ID]; !ok {
		return ErrSlotNotFound
	}
	r.slots[slot.ID] = slot.Clone()
	return nil
}

func (r *MemorySlotRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[id]; !ok {
		return ErrSlotNotFound
	}
	delete(r.slots, id)
	return nil
}

func (r *MemorySlotRepository) ByProviderAndDate(_ context.Context, doctorID, date string) ([]*Slot, error) {
	slots := r.filter(func(s *Slot) bool {
		return s.DoctorID == doctorID && (date == "" || s.Date == date)
	})
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].startMinutes() < slots[j].startMinutes()
	})
	return slots, nil
}

func (r *MemorySlotRepository) ByDate(_ context.Context, date string) ([]*Slot, error) {
	return r.filter(func(s *Slot) bool { return s.Date == date }), nil
}

func (r *MemorySlotRepository) Active(_ context.Context) ([]*Slot, error) {
	return r.filter(func(s *Slot) bool { return s.IsActive }), nil
}

func (r *MemorySlotRepository) All(_ context.Context) ([]*Slot, error) {
	return r.filter(func(*Slot) bool { return true }), nil
}

func (r *MemorySlotRepository) filter(keep func(*Slot) bool) []*Slot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Slot
	for _, s := range r.slots {
		if keep(s) {
			out = append(out, s.Clone())
		}
	}
	return out
}

// MemoryTokenRepository is the reference TokenRepository.
type MemoryTokenRepository struct {
	mu     sync.RWMutex
	tokens map[uuid.UUID]*Token
}

func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{tokens: make(map[uuid.UUID]*Token)}
}

func (r *MemoryTokenRepository) Add(_ context.Context, token *Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.ID] = token.Clone()
	return nil
}

func (r *MemoryTokenRepository) Get(_ context.Context, id uuid.UUID) (*Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.tokens[id]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return token.Clone(), nil
}

func (r *MemoryTokenRepository) Update(_ context.Context, token *Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token.ID]; !ok {
		return ErrTokenNotFound
	}
	r.tokens[token.ID] = token.Clone()
	return nil
}

func (r *MemoryTokenRepository) BySlot(_ context.Context, slotID uuid.UUID) ([]*Token, error) {
	return r.filter(func(t *Token) bool { return t.SlotID == slotID }), nil
}

func (r *MemoryTokenRepository) ByProvider(_ context.Context, doctorID string) ([]*Token, error) {
	return r.filter(func(t *Token) bool { return t.DoctorID == doctorID }), nil
}

func (r *MemoryTokenRepository) ByPatient(_ context.Context, patientID string) ([]*Token, error) {
	return r.filter(func(t *Token) bool { return t.PatientID == patientID }), nil
}

func (r *MemoryTokenRepository) ByState(_ context.Context, state TokenState) ([]*Token, error) {
	return r.filter(func(t *Token) bool { return t.State == state }), nil
}

func (r *MemoryTokenRepository) ByType(_ context.Context, tokenType TokenType) ([]*Token, error) {
	return r.filter(func(t *Token) bool { return t.Type == tokenType }), nil
}

func (r *MemoryTokenRepository) All(_ context.Context) ([]*Token, error) {
	return r.filter(func(*Token) bool { return true }), nil
}

func (r *MemoryTokenRepository) filter(keep func(*Token) bool) []*Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Token
	for _, t := range r.tokens {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}
