// Command simulate drives the allocation engine through a full OPD day
// against the in-memory stores: schedule setup, online bookings, walk-ins,
// follow-ups, a paid-priority patient, a cancellation, an emergency arrival
// that exercises the buffer, a doctor delay, a no-show, check-ins, and a
// closing report.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/medoc-health/opd-token-allocation/internal/allocation"
	"github.com/medoc-health/opd-token-allocation/internal/lock"
)

type simulator struct {
	slots  *allocation.MemorySlotRepository
	tokens *allocation.MemoryTokenRepository
	engine *allocation.Engine
	date   string
}

func main() {
	log.SetFlags(log.LstdFlags)
	gofakeit.Seed(time.Now().UnixNano())

	slots := allocation.NewMemorySlotRepository()
	tokens := allocation.NewMemoryTokenRepository()

	sim := &simulator{
		slots:  slots,
		tokens: tokens,
		engine: allocation.NewEngine(slots, tokens, lock.NewMemoryLocker()),
		date:   time.Now().Format("2006-01-02"),
	}

	ctx := context.Background()

	sim.setupSchedules(ctx)
	sim.onlineBookings(ctx)
	sim.walkIns(ctx)
	sim.followUps(ctx)
	sim.priorityPatient(ctx)
	sim.cancellation(ctx)
	sim.emergency(ctx)
	sim.slotDelay(ctx)
	sim.noShow(ctx)
	sim.checkIns(ctx)
	sim.finalReport(ctx)
}

func (s *simulator) step(title string) {
	fmt.Println()
	fmt.Println("================================================================================")
	fmt.Println(title)
	fmt.Println("================================================================================")
}

type doctor struct {
	id    string
	name  string
	slots []slotSpec
}

type slotSpec struct {
	start, end string
	capacity   int
}

var doctors = []doctor{
	{"DOC001", "Dr. Sharma (Cardiologist)", []slotSpec{
		{"09:00", "10:00", 4}, {"10:00", "11:00", 4}, {"11:00", "12:00", 4},
	}},
	{"DOC002", "Dr. Patel (Orthopedic)", []slotSpec{
		{"09:00", "10:00", 5}, {"10:00", "11:00", 5}, {"14:00", "15:00", 5},
	}},
	{"DOC003", "Dr. Kumar (General Physician)", []slotSpec{
		{"09:00", "10:00", 6}, {"10:00", "11:00", 6}, {"11:00", "12:00", 6}, {"14:00", "15:00", 6},
	}},
}

func (s *simulator) setupSchedules(ctx context.Context) {
	s.step("STEP 1: Setting up 3 doctors with their time slots")

	for _, d := range doctors {
		for _, spec := range d.slots {
			slot, err := allocation.NewSlot(d.id, d.name, s.date, spec.start, spec.end, spec.capacity)
			if err != nil {
				fatal("create slot: %v", err)
			}
			if err := s.slots.Add(ctx, slot); err != nil {
				fatal("store slot: %v", err)
			}
			fmt.Printf("  %-32s %s-%s capacity=%d buffer=%d\n",
				d.name, spec.start, spec.end, spec.capacity, slot.EmergencyBuffer)
		}
	}
}

func (s *simulator) allocate(ctx context.Context, doctorID string, tokenType allocation.TokenType, notes string) {
	name := gofakeit.Name()
	result, err := s.engine.Allocate(ctx, allocation.AllocationRequest{
		DoctorID:    doctorID,
		PatientID:   fmt.Sprintf("P%03d", gofakeit.Number(100, 999)),
		PatientName: name,
		PhoneNumber: gofakeit.Phone(),
		Type:        tokenType,
		Date:        s.date,
		Notes:       notes,
	})
	if err != nil {
		fmt.Printf("  allocation failed for %s (%s): %v\n", name, tokenType, err)
		return
	}
	fmt.Printf("  %-24s token #%d at %s in %s-%s (%s)\n",
		name, result.Token.TokenNumber, result.Token.EstimatedTime,
		result.Slot.StartTime, result.Slot.EndTime, tokenType)
}

func (s *simulator) onlineBookings(ctx context.Context) {
	s.step("STEP 2: Processing online bookings (previous night)")
	for _, doctorID := range []string{"DOC001", "DOC001", "DOC002", "DOC002", "DOC003", "DOC003", "DOC003"} {
		s.allocate(ctx, doctorID, allocation.TypeOnlineBooking, "")
	}
}

func (s *simulator) walkIns(ctx context.Context) {
	s.step("STEP 3: Morning walk-ins")
	for _, doctorID := range []string{"DOC001", "DOC002", "DOC003", "DOC003", "DOC001"} {
		s.allocate(ctx, doctorID, allocation.TypeWalkIn, "")
	}
}

func (s *simulator) followUps(ctx context.Context) {
	s.step("STEP 4: Follow-up appointments")
	for _, doctorID := range []string{"DOC001", "DOC002"} {
		s.allocate(ctx, doctorID, allocation.TypeFollowUp, "Follow-up from previous visit")
	}
}

func (s *simulator) priorityPatient(ctx context.Context) {
	s.step("STEP 5: Paid priority patient")
	s.allocate(ctx, "DOC003", allocation.TypePaidPriority, "Priority consultation")
}

func (s *simulator) cancellation(ctx context.Context) {
	s.step("STEP 6: Patient cancellation")

	token := s.firstTokenInState(ctx, allocation.StateAllocated)
	if token == nil {
		fmt.Println("  nothing to cancel")
		return
	}

	fmt.Printf("  %s (token #%d) called to cancel\n", token.PatientName, token.TokenNumber)
	cancelled, err := s.engine.Cancel(ctx, token.ID, "Patient requested cancellation")
	if err != nil {
		fatal("cancel: %v", err)
	}

	slot, err := s.slots.Get(ctx, cancelled.SlotID)
	if err != nil {
		fatal("get slot: %v", err)
	}
	fmt.Printf("  cancellation processed, slot now %d/%d (%d standard seats free)\n",
		slot.CurrentCapacity, slot.MaxCapacity, slot.Available(false))
}

func (s *simulator) emergency(ctx context.Context) {
	s.step("STEP 7: EMERGENCY patient arrival")

	// Fill Dr. Sharma's first slot so the emergency has to use the buffer.
	first, err := s.slots.ByProviderAndDate(ctx, "DOC001", s.date)
	if err != nil || len(first) == 0 {
		fatal("list slots: %v", err)
	}
	target := first[0]
	for target.HasCapacity(false) {
		_, err := s.engine.Allocate(ctx, allocation.AllocationRequest{
			DoctorID:        "DOC001",
			PatientID:       fmt.Sprintf("P%03d", gofakeit.Number(100, 999)),
			PatientName:     gofakeit.Name(),
			PhoneNumber:     gofakeit.Phone(),
			Type:            allocation.TypeWalkIn,
			Date:            s.date,
			PreferredSlotID: target.ID,
		})
		if err != nil {
			fatal("fill slot: %v", err)
		}
		target, err = s.slots.Get(ctx, target.ID)
		if err != nil {
			fatal("get slot: %v", err)
		}
	}

	fmt.Println("  critical cardiac case, needs Dr. Sharma's first slot")
	result, err := s.engine.Allocate(ctx, allocation.AllocationRequest{
		DoctorID:        "DOC001",
		PatientID:       "P999",
		PatientName:     "Emergency - Cardiac Case",
		PhoneNumber:     gofakeit.Phone(),
		Type:            allocation.TypeEmergency,
		Date:            s.date,
		PreferredSlotID: target.ID,
		Notes:           "URGENT: chest pain, suspected cardiac event",
	})
	if err != nil {
		fmt.Printf("  emergency allocation failed: %v\n", err)
		return
	}
	fmt.Printf("  emergency token #%d at %s, slot load %d/%d+%d\n",
		result.Token.TokenNumber, result.Token.EstimatedTime,
		result.Slot.CurrentCapacity, result.Slot.MaxCapacity, result.Slot.EmergencyBuffer)
}

func (s *simulator) slotDelay(ctx context.Context) {
	s.step("STEP 8: Doctor running late, slot delay")

	slots, err := s.slots.ByProviderAndDate(ctx, "DOC002", s.date)
	if err != nil {
		fatal("list slots: %v", err)
	}
	var morning *allocation.Slot
	for _, slot := range slots {
		if slot.StartTime == "10:00" {
			morning = slot
			break
		}
	}
	if morning == nil {
		fmt.Println("  no 10:00 slot found")
		return
	}

	fmt.Printf("  Dr. Patel is 20 minutes late for the %s-%s slot\n", morning.StartTime, morning.EndTime)
	if _, err := s.engine.AddSlotDelay(ctx, morning.ID, 20); err != nil {
		fatal("add delay: %v", err)
	}

	tokens, err := s.tokens.BySlot(ctx, morning.ID)
	if err != nil {
		fatal("list tokens: %v", err)
	}
	for _, t := range tokens {
		fmt.Printf("  %-24s token #%d now at %s\n", t.PatientName, t.TokenNumber, t.EstimatedTime)
	}
}

func (s *simulator) noShow(ctx context.Context) {
	s.step("STEP 9: No-show patient")

	token := s.firstTokenInState(ctx, allocation.StateAllocated)
	if token == nil {
		fmt.Println("  nobody left to miss their slot")
		return
	}

	fmt.Printf("  %s (token #%d) never arrived\n", token.PatientName, token.TokenNumber)
	marked, err := s.engine.MarkNoShow(ctx, token.ID)
	if err != nil {
		fatal("mark no-show: %v", err)
	}

	slot, err := s.slots.Get(ctx, marked.SlotID)
	if err != nil {
		fatal("get slot: %v", err)
	}
	fmt.Printf("  marked as no-show, slot now %d/%d\n", slot.CurrentCapacity, slot.MaxCapacity)
}

func (s *simulator) checkIns(ctx context.Context) {
	s.step("STEP 10: Patient check-ins")

	waiting, err := s.tokens.ByState(ctx, allocation.StateAllocated)
	if err != nil {
		fatal("list tokens: %v", err)
	}
	if len(waiting) > 5 {
		waiting = waiting[:5]
	}
	for _, t := range waiting {
		checked, err := s.engine.CheckIn(ctx, t.ID)
		if err != nil {
			fmt.Printf("  check-in failed for %s: %v\n", t.PatientName, err)
			continue
		}
		fmt.Printf("  %-24s token #%d checked in at %s\n",
			checked.PatientName, checked.TokenNumber, checked.CheckedInAt.Format("15:04:05"))
	}
}

func (s *simulator) finalReport(ctx context.Context) {
	s.step("FINAL REPORT: OPD day summary")

	for _, d := range doctors {
		stats, err := s.engine.Stats(ctx, d.id, s.date)
		if err != nil {
			fatal("stats: %v", err)
		}
		fmt.Printf("\n  %s\n", d.name)
		fmt.Printf("    slots=%d capacity=%d allocated=%d utilization=%.1f%%\n",
			stats.TotalSlots, stats.TotalCapacity, stats.TotalAllocated, stats.UtilizationPercent)
		fmt.Printf("    by state:")
		for _, state := range allocation.TokenStates {
			fmt.Printf(" %s=%d", state, stats.TokensByState[state])
		}
		fmt.Println()
	}
}

func (s *simulator) firstTokenInState(ctx context.Context, state allocation.TokenState) *allocation.Token {
	tokens, err := s.tokens.ByState(ctx, state)
	if err != nil || len(tokens) == 0 {
		return nil
	}
	first := tokens[0]
	for _, t := range tokens[1:] {
		if t.CreatedAt.Before(first.CreatedAt) {
			first = t
		}
	}
	return first
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
