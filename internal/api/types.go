package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medoc-health/opd-token-allocation/internal/allocation"
)

type AllocateTokenRequest struct {
	DoctorID        string `json:"doctorId"`
	PatientID       string `json:"patientId"`
	PatientName     string `json:"patientName"`
	PhoneNumber     string `json:"phoneNumber"`
	TokenType       string `json:"tokenType"`
	Date            string `json:"date"`
	PreferredSlotID string `json:"preferredSlotId,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

type CancelTokenRequest struct {
	Reason string `json:"reason"`
}

type CreateSlotRequest struct {
	DoctorID    string `json:"doctorId"`
	DoctorName  string `json:"doctorName"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	MaxCapacity int    `json:"maxCapacity"`
}

type BulkCreateSlotsRequest struct {
	Slots []CreateSlotRequest `json:"slots"`
}

type SlotDelayRequest struct {
	DelayMinutes *int `json:"delayMinutes"`
}

type SlotResponse struct {
	ID                 uuid.UUID `json:"id"`
	DoctorID           string    `json:"doctorId"`
	DoctorName         string    `json:"doctorName"`
	Date               string    `json:"date"`
	StartTime          string    `json:"startTime"`
	EndTime            string    `json:"endTime"`
	MaxCapacity        int       `json:"maxCapacity"`
	CurrentCapacity    int       `json:"currentCapacity"`
	EmergencyBuffer    int       `json:"emergencyBuffer"`
	AvailableSlots     int       `json:"availableSlots"`
	UtilizationPercent float64   `json:"utilizationPercentage"`
	DelayMinutes       int       `json:"delayMinutes"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type TokenResponse struct {
	ID            uuid.UUID  `json:"id"`
	DoctorID      string     `json:"doctorId"`
	SlotID        uuid.UUID  `json:"slotId"`
	PatientID     string     `json:"patientId"`
	PatientName   string     `json:"patientName"`
	PhoneNumber   string     `json:"phoneNumber"`
	TokenType     string     `json:"tokenType"`
	Priority      int        `json:"priority"`
	TokenNumber   int        `json:"tokenNumber"`
	EstimatedTime string     `json:"estimatedTime"`
	State         string     `json:"state"`
	Notes         string     `json:"notes"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	CheckedInAt   *time.Time `json:"checkedInAt,omitempty"`
	ConsultedAt   *time.Time `json:"consultedAt,omitempty"`
	CancelledAt   *time.Time `json:"cancelledAt,omitempty"`
}

func toSlotResponse(s *allocation.Slot) SlotResponse {
	return SlotResponse{
		ID:                 s.ID,
		DoctorID:           s.DoctorID,
		DoctorName:         s.DoctorName,
		Date:               s.Date,
		StartTime:          s.StartTime,
		EndTime:            s.EndTime,
		MaxCapacity:        s.MaxCapacity,
		CurrentCapacity:    s.CurrentCapacity,
		EmergencyBuffer:    s.EmergencyBuffer,
		AvailableSlots:     s.Available(false),
		UtilizationPercent: s.Utilization(),
		DelayMinutes:       s.DelayMinutes,
		IsActive:           s.IsActive,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func toTokenResponse(t *allocation.Token) TokenResponse {
	return TokenResponse{
		ID:            t.ID,
		DoctorID:      t.DoctorID,
		SlotID:        t.SlotID,
		PatientID:     t.PatientID,
		PatientName:   t.PatientName,
		PhoneNumber:   t.PhoneNumber,
		TokenType:     string(t.Type),
		Priority:      t.Priority,
		TokenNumber:   t.TokenNumber,
		EstimatedTime: t.EstimatedTime,
		State:         string(t.State),
		Notes:         t.Notes,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		CheckedInAt:   t.CheckedInAt,
		ConsultedAt:   t.ConsultedAt,
		CancelledAt:   t.CancelledAt,
	}
}

func toSlotResponses(slots []*allocation.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotResponse(s))
	}
	return out
}

func toTokenResponses(tokens []*allocation.Token) []TokenResponse {
	out := make([]TokenResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, toTokenResponse(t))
	}
	return out
}
