package allocation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/medoc-health/opd-token-allocation/internal/lock"
)

func newTestEngine(t *testing.T) (*Engine, *MemorySlotRepository, *MemoryTokenRepository) {
	t.Helper()
	slots := NewMemorySlotRepository()
	tokens := NewMemoryTokenRepository()
	return NewEngine(slots, tokens, lock.NewMemoryLocker()), slots, tokens
}

func addEngineSlot(t *testing.T, repo SlotRepository, doctorID, start, end string, capacity int) *Slot {
	t.Helper()
	slot, err := NewSlot(doctorID, "Dr. "+doctorID, "2025-01-30", start, end, capacity)
	if err != nil {
		t.Fatalf("NewSlot: %v", err)
	}
	if err := repo.Add(context.Background(), slot); err != nil {
		t.Fatalf("Add slot: %v", err)
	}
	return slot
}

func allocate(t *testing.T, e *Engine, slotID uuid.UUID, patientID string, tokenType TokenType) *AllocationResult {
	t.Helper()
	res, err := e.Allocate(context.Background(), AllocationRequest{
		DoctorID:        "DOC001",
		PatientID:       patientID,
		PatientName:     "Patient " + patientID,
		PhoneNumber:     "9876543210",
		Type:            tokenType,
		Date:            "2025-01-30",
		PreferredSlotID: slotID,
	})
	if err != nil {
		t.Fatalf("Allocate(%s, %s): %v", patientID, tokenType, err)
	}
	return res
}

func TestAllocateSequentialPositions(t *testing.T) {
	e, slots, _ := newTestEngine(t)
	slot := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)

	wantTimes := []string{"09:00", "09:15", "09:30", "09:45"}
	for i := 0; i < 4; i++ {
		res := allocate(t, e, slot.ID, fmt.Sprintf("P%03d", i+1), TypeWalkIn)
		if res.Token.TokenNumber != i+1 {
			t.Errorf("token %d: number = %d, want %d", i+1, res.Token.TokenNumber, i+1)
		}
		if res.Token.EstimatedTime != wantTimes[i] {
			t.Errorf("token %d: estimated = %s, want %s", i+1, res.Token.EstimatedTime, wantTimes[i])
		}
	}

	final, _ := slots.Get(context.Background(), slot.ID)
	if final.CurrentCapacity != 4 {
		t.Errorf("CurrentCapacity = %d, want 4", final.CurrentCapacity)
	}
}

func TestAllocateEmergencyUsesBuffer(t *testing.T) {
	e, slots, _ := newTestEngine(t)
	slot := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)

	for i := 0; i < 4; i++ {
		allocate(t, e, slot.ID, fmt.Sprintf("P%03d", i+1), TypeWalkIn)
	}

	res := allocate(t, e, slot.ID, "P005", TypeEmergency)
	if res.Token.TokenNumber != 5 {
		t.Errorf("TokenNumber = %d, want 5", res.Token.TokenNumber)
	}
	if res.Token.EstimatedTime != "10:00" {
		t.Errorf("EstimatedTime = %s, want 10:00", res.Token.EstimatedTime)
	}
	if res.Slot.CurrentCapacity != 5 {
		t.Errorf("CurrentCapacity = %d, want 5", res.Slot.CurrentCapacity)
	}
}

func TestAllocateCapacityFull(t *testing.T) {
	e, slots, _ := newTestEngine(t)
	slot := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)

	for i := 0; i < 4; i++ {
		allocate(t, e, slot.ID, fmt.Sprintf("P%03d", i+1), TypeWalkIn)
	}
	allocate(t, e, slot.ID, "P005", TypeEmergency)

	_, err := e.Allocate(context.Background(), AllocationRequest{
		DoctorID:        "DOC001",
		PatientID:       "P006",
		PatientName:     "Patient P006",
		Type:            TypeWalkIn,
		Date:            "2025-01-30",
		PreferredSlotID: slot.ID,
	})
	if !errors.Is(err, ErrCapacityFull) {
		t.Fatalf("err = %v, want ErrCapacityFull", err)
	}

	final, _ := slots.Get(context.Background(), slot.ID)
	if final.CurrentCapacity != 5 {
		t.Errorf("CurrentCapacity = %d, want 5 (unchanged)", final.CurrentCapacity)
	}
}

func TestAllocateEmergencyDisplacement(t *testing.T) {
	e, slots, tokens := newTestEngine(t)
	ctx := context.Background()
	slotA := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)
	slotB := addEngineSlot(t, slots, "DOC001", "10:00", "11:00", 4)

	var walkIns []*AllocationResult
	for i := 0; i < 4; i++ {
		walkIns = append(walkIns, allocate(t, e, slotA.ID, fmt.Sprintf("P%03d", i+1), TypeWalkIn))
	}
	firstEmergency := allocate(t, e, slotA.ID, "P005", TypeEmergency)

	// Slot A is at its ceiling; the next emergency must displace a walk-in.
	second := allocate(t, e, slotA.ID, "P006", TypeEmergency)

	if second.Slot.ID != slotA.ID {
		t.Fatalf("emergency landed in slot %s, want target slot", second.Slot.ID)
	}
	if second.Token.TokenNumber != 5 {
		t.Errorf("emergency TokenNumber = %d, want 5", second.Token.TokenNumber)
	}

	// The most recently admitted walk-in is the victim.
	victim, err := tokens.Get(ctx, walkIns[3].Token.ID)
	if err != nil {
		t.Fatalf("Get victim: %v", err)
	}
	if victim.SlotID != slotB.ID {
		t.Errorf("victim SlotID = %s, want alternate slot", victim.SlotID)
	}
	if victim.TokenNumber != 1 {
		t.Errorf("victim TokenNumber = %d, want 1", victim.TokenNumber)
	}
	if victim.EstimatedTime != "10:00" {
		t.Errorf("victim EstimatedTime = %s, want 10:00", victim.EstimatedTime)
	}
	if !strings.Contains(victim.Notes, "Reallocated from 09:00-10:00 to 10:00-11:00") {
		t.Errorf("victim Notes = %q, missing reallocation entry", victim.Notes)
	}

	// Donor queue closes the gap: walk-ins 1-3 keep their positions, the
	// first emergency drops from 5 to 4.
	for i := 0; i < 3; i++ {
		tok, _ := tokens.Get(ctx, walkIns[i].Token.ID)
		if tok.TokenNumber != i+1 {
			t.Errorf("walk-in %d: TokenNumber = %d, want %d", i+1, tok.TokenNumber, i+1)
		}
	}
	renumbered, _ := tokens.Get(ctx, firstEmergency.Token.ID)
	if renumbered.TokenNumber != 4 {
		t.Errorf("first emergency TokenNumber = %d, want 4", renumbered.TokenNumber)
	}
	if renumbered.EstimatedTime != "09:45" {
		t.Errorf("first emergency EstimatedTime = %s, want 09:45", renumbered.EstimatedTime)
	}

	a, _ := slots.Get(ctx, slotA.ID)
	b, _ := slots.Get(ctx, slotB.ID)
	if a.CurrentCapacity != 5 {
		t.Errorf("slot A CurrentCapacity = %d, want 5", a.CurrentCapacity)
	}
	if b.CurrentCapacity != 1 {
		t.Errorf("slot B CurrentCapacity = %d, want 1", b.CurrentCapacity)
	}
}

func TestAllocateDisplacementNoCandidate(t *testing.T) {
	e, slots, _ := newTestEngine(t)
	ctx := context.Background()
	slotA := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)
	addEngineSlot(t, slots, "DOC001", "10:00", "11:00", 4)

	for i := 0; i < 4; i++ {
		res := allocate(t, e, slotA.ID, fmt.Sprintf("P%03d", i+1), TypeWalkIn)
		if _, err := e.CheckIn(ctx, res.Token.ID); err != nil {
			t.Fatalf("CheckIn: %v", err)
		}
	}
	em := allocate(t, e, slotA.ID, "P005", TypeEmergency)
	if _, err := e.CheckIn(ctx, em.Token.ID); err != nil {
		t.Fatalf("CheckIn emergency: %v", err)
	}

	_, err := e.Allocate(ctx, AllocationRequest{
		DoctorID:        "DOC001",
		PatientID:       "P006",
		PatientName:     "Patient P006",
		Type:            TypeEmergency,
		Date:            "2025-01-30",
		PreferredSlotID: slotA.ID,
	})
	if !errors.Is(err, ErrNoDisplacementCandidate) {
		t.Fatalf("err = %v, want ErrNoDisplacementCandidate", err)
	}
	if !errors.Is(err, ErrReallocationImpossible) {
		t.Errorf("err = %v, does not wrap ErrReallocationImpossible", err)
	}
}

func TestAllocateDisplacementNoAlternative(t *testing.T) {
	e, slots, _ := newTestEngine(t)
	slot := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)

	for i := 0; i < 4; i++ {
		allocate(t, e, slot.ID, fmt.Sprintf("P%03d", i+1), TypeWalkIn)
	}
	allocate(t, e, slot.ID, "P005", TypeEmergency)

	_, err := e.Allocate(context.Background(), AllocationRequest{
		DoctorID:        "DOC001",
		PatientID:       "P006",
		PatientName:     "Patient P006",
		Type:            TypeEmergency,
		Date:            "2025-01-30",
		PreferredSlotID: slot.ID,
	})
	if !errors.Is(err, ErrNoAlternativeSlot) {
		t.Fatalf("err = %v, want ErrNoAlternativeSlot", err)
	}
}

func TestAllocateInvalidType(t *testing.T) {
	e, slots, _ := newTestEngine(t)
	slot := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)

	_, err := e.Allocate(context.Background(), AllocationRequest{
		DoctorID:        "DOC001",
		PatientID:       "P001",
		PatientName:     "Patient P001",
		Type:            TokenType("HOUSE_CALL"),
		Date:            "2025-01-30",
		PreferredSlotID: slot.ID,
	})
	if !errors.Is(err, ErrInvalidTokenType) {
		t.Fatalf("err = %v, want ErrInvalidTokenType", err)
	}
}

func TestAllocatePreferredSlotErrors(t *testing.T) {
	e, slots, _ := newTestEngine(t)
	ctx := context.Background()

	req := AllocationRequest{
		DoctorID:        "DOC001",
		PatientID:       "P001",
		PatientName:     "Patient P001",
		Type:            TypeWalkIn,
		Date:            "2025-01-30",
		PreferredSlotID: uuid.New(),
	}
	if _, err := e.Allocate(ctx, req); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("unknown slot: err = %v, want ErrSlotNotFound", err)
	}

	slot := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)
	slot.Deactivate()
	if err := slots.Update(ctx, slot); err != nil {
		t.Fatalf("Update: %v", err)
	}
	req.PreferredSlotID = slot.ID
	if _, err := e.Allocate(ctx, req); !errors.Is(err, ErrSlotInactive) {
		t.Errorf("inactive slot: err = %v, want ErrSlotInactive", err)
	}
}

func TestAllocateNoAvailableSlot(t *testing.T) {
	e, slots, _ := newTestEngine(t)
	ctx := context.Background()

	req := AllocationRequest{
		DoctorID:    "DOC001",
		PatientID:   "P001",
		PatientName: "Patient P001",
		Type:        TypeWalkIn,
		Date:        "2025-01-30",
	}
	if _, err := e.Allocate(ctx, req); !errors.Is(err, ErrNoAvailableSlot) {
		t.Errorf("no slots: err = %v, want ErrNoAvailableSlot", err)
	}

	slot := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 1)
	allocate(t, e, slot.ID, "P000", TypeWalkIn)
	if _, err := e.Allocate(ctx, req); !errors.Is(err, ErrNoAvailableSlot) {
		t.Errorf("all full: err = %v, want ErrNoAvailableSlot", err)
	}
}

func TestAllocatePicksLowestUtilization(t *testing.T) {
	e, slots, _ := newTestEngine(t)
	ctx := context.Background()
	slotA := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)
	slotB := addEngineSlot(t, slots, "DOC001", "10:00", "11:00", 4)

	allocate(t, e, slotA.ID, "P001", TypeWalkIn)

	res, err := e.Allocate(ctx, AllocationRequest{
		DoctorID:    "DOC001",
		PatientID:   "P002",
		PatientName: "Patient P002",
		Type:        TypeWalkIn,
		Date:        "2025-01-30",
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if res.Slot.ID != slotB.ID {
		t.Errorf("allocated into slot %s, want the emptier 10:00 slot", res.Slot.StartTime)
	}

	// Both slots now at 1/4: the tie goes to the earliest start.
	res, err = e.Allocate(ctx, AllocationRequest{
		DoctorID:    "DOC001",
		PatientID:   "P003",
		PatientName: "Patient P003",
		Type:        TypeWalkIn,
		Date:        "2025-01-30",
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if res.Slot.ID != slotA.ID {
		t.Errorf("tie-break allocated into %s, want the 09:00 slot", res.Slot.StartTime)
	}
}

func TestCancelRenumbersQueue(t *testing.T) {
	e, slots, tokens := newTestEngine(t)
	ctx := context.Background()
	slot := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)

	var results []*AllocationResult
	for i := 0; i < 4; i++ {
		results = append(results, allocate(t, e, slot.ID, fmt.Sprintf("P%03d", i+1), TypeWalkIn))
	}

	cancelled, err := e.Cancel(ctx, results[1].Token.ID, "patient request")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.State != StateCancelled {
		t.Errorf("State = %s, want CANCELLED", cancelled.State)
	}
	if !strings.Contains(cancelled.Notes, "[Cancelled: patient request]") {
		t.Errorf("Notes = %q, missing cancellation entry", cancelled.Notes)
	}

	// Remaining queue is dense 1..3 with refreshed estimates.
	wantNumbers := map[uuid.UUID]int{
		results[0].Token.ID: 1,
		results[2].Token.ID: 2,
		results[3].Token.ID: 3,
	}
	wantTimes := []string{"09:00", "09:15", "09:30"}
	for id, want := range wantNumbers {
		tok, _ := tokens.Get(ctx, id)
		if tok.TokenNumber != want {
			t.Errorf("token %s: number = %d, want %d", id, tok.TokenNumber, want)
		}
		if tok.EstimatedTime != wantTimes[want-1] {
			t.Errorf("token %s: estimated = %s, want %s", id, tok.EstimatedTime, wantTimes[want-1])
		}
	}

	final, _ := slots.Get(ctx, slot.ID)
	if final.CurrentCapacity != 3 {
		t.Errorf("CurrentCapacity = %d, want 3", final.CurrentCapacity)
	}

	if _, err := e.Cancel(ctx, results[1].Token.ID, ""); !errors.Is(err, ErrAlreadyCancelled) {
		t.Errorf("second Cancel = %v, want ErrAlreadyCancelled", err)
	}
}

func TestCancelCompletedConsultation(t *testing.T) {
	e, slots, _ := newTestEngine(t)
	ctx := context.Background()
	slot := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)
	res := allocate(t, e, slot.ID, "P001", TypeWalkIn)

	if _, err := e.CheckIn(ctx, res.Token.ID); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if _, err := e.Complete(ctx, res.Token.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := e.Cancel(ctx, res.Token.ID, ""); !errors.Is(err, ErrCannotCancelCompleted) {
		t.Fatalf("err = %v, want ErrCannotCancelCompleted", err)
	}
}

func TestMarkNoShowReleasesCapacity(t *testing.T) {
	e, slots, tokens := newTestEngine(t)
	ctx := context.Background()
	slot := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)

	first := allocate(t, e, slot.ID, "P001", TypeWalkIn)
	second := allocate(t, e, slot.ID, "P002", TypeWalkIn)

	marked, err := e.MarkNoShow(ctx, first.Token.ID)
	if err != nil {
		t.Fatalf("MarkNoShow: %v", err)
	}
	if marked.State != StateNoShow {
		t.Errorf("State = %s, want NO_SHOW", marked.State)
	}

	promoted, _ := tokens.Get(ctx, second.Token.ID)
	if promoted.TokenNumber != 1 || promoted.EstimatedTime != "09:00" {
		t.Errorf("promoted token = #%d at %s, want #1 at 09:00", promoted.TokenNumber, promoted.EstimatedTime)
	}
	final, _ := slots.Get(ctx, slot.ID)
	if final.CurrentCapacity != 1 {
		t.Errorf("CurrentCapacity = %d, want 1", final.CurrentCapacity)
	}
}

func TestCheckInCompletePersistsState(t *testing.T) {
	e, slots, tokens := newTestEngine(t)
	ctx := context.Background()
	slot := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)
	res := allocate(t, e, slot.ID, "P001", TypeWalkIn)

	if _, err := e.CheckIn(ctx, res.Token.ID); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	stored, _ := tokens.Get(ctx, res.Token.ID)
	if stored.State != StateCheckedIn || stored.CheckedInAt == nil {
		t.Fatalf("after check-in: state=%s checkedInAt=%v", stored.State, stored.CheckedInAt)
	}

	if _, err := e.Complete(ctx, res.Token.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	stored, _ = tokens.Get(ctx, res.Token.ID)
	if stored.State != StateConsulted || stored.ConsultedAt == nil {
		t.Fatalf("after complete: state=%s consultedAt=%v", stored.State, stored.ConsultedAt)
	}

	if _, err := e.CheckIn(ctx, res.Token.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("CheckIn on consulted = %v, want ErrInvalidTransition", err)
	}
}

func TestAddSlotDelayShiftsEstimates(t *testing.T) {
	e, slots, tokens := newTestEngine(t)
	ctx := context.Background()
	slot := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)

	var results []*AllocationResult
	for i := 0; i < 4; i++ {
		results = append(results, allocate(t, e, slot.ID, fmt.Sprintf("P%03d", i+1), TypeWalkIn))
	}

	delayed, err := e.AddSlotDelay(ctx, slot.ID, 20)
	if err != nil {
		t.Fatalf("AddSlotDelay: %v", err)
	}
	if delayed.DelayMinutes != 20 {
		t.Errorf("DelayMinutes = %d, want 20", delayed.DelayMinutes)
	}

	wantTimes := []string{"09:20", "09:35", "09:50", "10:05"}
	for i, res := range results {
		tok, _ := tokens.Get(ctx, res.Token.ID)
		if tok.TokenNumber != i+1 {
			t.Errorf("token %d: number changed to %d", i+1, tok.TokenNumber)
		}
		if tok.EstimatedTime != wantTimes[i] {
			t.Errorf("token %d: estimated = %s, want %s", i+1, tok.EstimatedTime, wantTimes[i])
		}
	}
}

func TestAddSlotDelayErrors(t *testing.T) {
	e, slots, _ := newTestEngine(t)
	ctx := context.Background()
	slot := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)

	if _, err := e.AddSlotDelay(ctx, slot.ID, -5); !errors.Is(err, ErrInvalidDelay) {
		t.Errorf("negative delay: err = %v, want ErrInvalidDelay", err)
	}
	if _, err := e.AddSlotDelay(ctx, uuid.New(), 10); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("unknown slot: err = %v, want ErrSlotNotFound", err)
	}
}

func TestStats(t *testing.T) {
	e, slots, _ := newTestEngine(t)
	ctx := context.Background()
	slotA := addEngineSlot(t, slots, "DOC001", "09:00", "10:00", 4)
	slotB := addEngineSlot(t, slots, "DOC001", "10:00", "11:00", 4)

	allocate(t, e, slotA.ID, "P001", TypeWalkIn)
	allocate(t, e, slotA.ID, "P002", TypeOnlineBooking)
	res := allocate(t, e, slotB.ID, "P003", TypeFollowUp)
	allocate(t, e, slotB.ID, "P004", TypeEmergency)
	if _, err := e.CheckIn(ctx, res.Token.ID); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	stats, err := e.Stats(ctx, "DOC001", "2025-01-30")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalSlots != 2 {
		t.Errorf("TotalSlots = %d, want 2", stats.TotalSlots)
	}
	if stats.TotalCapacity != 8 {
		t.Errorf("TotalCapacity = %d, want 8", stats.TotalCapacity)
	}
	if stats.TotalAllocated != 4 {
		t.Errorf("TotalAllocated = %d, want 4", stats.TotalAllocated)
	}
	if stats.UtilizationPercent != 50 {
		t.Errorf("UtilizationPercent = %v, want 50", stats.UtilizationPercent)
	}
	if got := stats.TokensByType[TypeEmergency]; got != 1 {
		t.Errorf("TokensByType[EMERGENCY] = %d, want 1", got)
	}
	if got, ok := stats.TokensByType[TypePaidPriority]; !ok || got != 0 {
		t.Errorf("TokensByType[PAID_PRIORITY] = %d (present=%v), want explicit 0", got, ok)
	}
	if got := stats.TokensByState[StateCheckedIn]; got != 1 {
		t.Errorf("TokensByState[CHECKED_IN] = %d, want 1", got)
	}
	if got := stats.TokensByState[StateAllocated]; got != 3 {
		t.Errorf("TokensByState[ALLOCATED] = %d, want 3", got)
	}

	empty, err := e.Stats(ctx, "DOC999", "2025-01-30")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if empty.TotalSlots != 0 || empty.UtilizationPercent != 0 {
		t.Errorf("empty stats = %+v, want zeroes", empty)
	}
}

func TestConcurrentAllocations(t *testing.T) {
	e, slots, tokens := newTestEngine(t)
	ctx := context.Background()
	slot := addEngineSlot(t, slots, "DOC001", "09:00", "14:00", 20)

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Allocate(ctx, AllocationRequest{
				DoctorID:        "DOC001",
				PatientID:       fmt.Sprintf("P%03d", i+1),
				PatientName:     fmt.Sprintf("Patient P%03d", i+1),
				Type:            TypeWalkIn,
				Date:            "2025-01-30",
				PreferredSlotID: slot.ID,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: %v", i, err)
		}
	}

	all, _ := tokens.BySlot(ctx, slot.ID)
	if len(all) != n {
		t.Fatalf("token count = %d, want %d", len(all), n)
	}
	seen := make(map[int]bool, n)
	for _, tok := range all {
		if tok.TokenNumber < 1 || tok.TokenNumber > n {
			t.Errorf("TokenNumber %d outside 1..%d", tok.TokenNumber, n)
		}
		if seen[tok.TokenNumber] {
			t.Errorf("duplicate TokenNumber %d", tok.TokenNumber)
		}
		seen[tok.TokenNumber] = true
	}

	final, _ := slots.Get(ctx, slot.ID)
	if final.CurrentCapacity != n {
		t.Errorf("CurrentCapacity = %d, want %d", final.CurrentCapacity, n)
	}
}
