// Package lock serializes engine operations per slot. Every mutating engine
// operation runs inside WithSlots covering each slot it touches; locks are
// always acquired in ascending slot-id order so a two-slot operation
// (emergency displacement) cannot deadlock against another.
package lock

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var ErrSlotBusy = errors.New("slot lock not acquired")

// SlotLocker guards critical sections spanning one or more slots.
type SlotLocker interface {
	WithSlots(ctx context.Context, slotIDs []uuid.UUID, fn func(ctx context.Context) error) error
}

// MemoryLocker is the in-process SlotLocker: one mutex per slot id, created
// lazily, acquired in sorted order. Acquisition blocks rather than failing.
type MemoryLocker struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*sync.Mutex
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{byID: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *MemoryLocker) WithSlots(ctx context.Context, slotIDs []uuid.UUID, fn func(ctx context.Context) error) error {
	ids := sortedUnique(slotIDs)

	locks := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		locks = append(locks, l.mutexFor(id))
	}
	for _, m := range locks {
		m.Lock()
	}
	defer func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}()

	return fn(ctx)
}

func (l *MemoryLocker) mutexFor(id uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.byID[id]
	if !ok {
		m = &sync.Mutex{}
		l.byID[id] = m
	}
	return m
}

// sortedUnique orders slot ids into the fixed global acquisition order and
// drops duplicates so the same slot is never locked twice.
func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
