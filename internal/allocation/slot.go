package allocation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Slot is a capacity-bounded window of a doctor's time on a specific date.
// Capacity is mutated only by the engine; the time window and maxCapacity
// are fixed at creation.
type Slot struct {
	ID         uuid.UUID
	DoctorID   string
	DoctorName string
	Date       string // YYYY-MM-DD
	StartTime  string // HH:MM
	EndTime    string // HH:MM

	MaxCapacity     int
	CurrentCapacity int
	// EmergencyBuffer is extra headroom above MaxCapacity reserved for
	// emergency admissions: ceil(MaxCapacity * 0.2), computed once.
	EmergencyBuffer int

	DelayMinutes int
	IsActive     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSlot validates the time window and capacity and returns a fresh active
// slot with its emergency buffer computed.
func NewSlot(doctorID, doctorName, date, startTime, endTime string, maxCapacity int) (*Slot, error) {
	start, err := parseClock(startTime)
	if err != nil {
		return nil, err
	}
	end, err := parseClock(endTime)
	if err != nil {
		return nil, err
	}
	if end <= start {
		return nil, fmt.Errorf("slot end %s must be after start %s", endTime, startTime)
	}
	if maxCapacity <= 0 {
		return nil, errors.New("max capacity must be positive")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid date %q: want YYYY-MM-DD", date)
	}

	now := time.Now()
	return &Slot{
		ID:              uuid.New(),
		DoctorID:        doctorID,
		DoctorName:      doctorName,
		Date:            date,
		StartTime:       startTime,
		EndTime:         endTime,
		MaxCapacity:     maxCapacity,
		EmergencyBuffer: int(math.Ceil(float64(maxCapacity) * emergencyBufferFraction)),
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// HasCapacity reports whether one more admission fits. Emergencies may use
// the buffer above MaxCapacity.
func (s *Slot) HasCapacity(emergency bool) bool {
	return s.CurrentCapacity < s.ceiling(emergency)
}

// Available returns the number of remaining admissions for the urgency class.
func (s *Slot) Available(emergency bool) int {
	return s.ceiling(emergency) - s.CurrentCapacity
}

func (s *Slot) ceiling(emergency bool) int {
	if emergency {
		return s.MaxCapacity + s.EmergencyBuffer
	}
	return s.MaxCapacity
}

// Admit counts one more admission. Callers are expected to check HasCapacity
// first; exceeding the absolute ceiling is an invariant violation.
func (s *Slot) Admit() error {
	if s.CurrentCapacity >= s.MaxCapacity+s.EmergencyBuffer {
		return fmt.Errorf("%w: %d/%d+%d", ErrSlotOverCapacity,
			s.CurrentCapacity, s.MaxCapacity, s.EmergencyBuffer)
	}
	s.CurrentCapacity++
	s.touch()
	return nil
}

// Release frees one admission, flooring at zero.
func (s *Slot) Release() {
	if s.CurrentCapacity > 0 {
		s.CurrentCapacity--
		s.touch()
	}
}

// AddDelay accumulates schedule slippage. Delay never decreases.
func (s *Slot) AddDelay(minutes int) error {
	if minutes < 0 {
		return ErrInvalidDelay
	}
	s.DelayMinutes += minutes
	s.touch()
	return nil
}

func (s *Slot) Activate() {
	s.IsActive = true
	s.touch()
}

func (s *Slot) Deactivate() {
	s.IsActive = false
	s.touch()
}

// Utilization is CurrentCapacity over MaxCapacity as a percentage. It can
// exceed 100 while the emergency buffer is in use.
func (s *Slot) Utilization() float64 {
	return float64(s.CurrentCapacity) / float64(s.MaxCapacity) * 100
}

// EstimatedTimeFor computes the wall-clock service estimate for a queue
// position: slot start plus the queue ahead plus accumulated delay.
func (s *Slot) EstimatedTimeFor(position int) string {
	start, err := parseClock(s.StartTime)
	if err != nil {
		// Start times are validated at creation.
		return s.StartTime
	}
	return formatClock(start + (position-1)*AvgConsultationMinutes + s.DelayMinutes)
}

func (s *Slot) touch() {
	s.UpdatedAt = time.Now()
}

// Clone returns an independent copy for handing across the repository
// boundary.
func (s *Slot) Clone() *Slot {
	c := *s
	return &c
}

func (s *Slot) startMinutes() int {
	m, _ := parseClock(s.StartTime)
	return m
}
