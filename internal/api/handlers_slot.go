package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medoc-health/opd-token-allocation/internal/allocation"
)

func (h *Handlers) createSlot(w http.ResponseWriter, r *http.Request) {
	var req CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	slot, ok := h.buildSlot(w, req)
	if !ok {
		return
	}
	if err := h.slots.Add(r.Context(), slot); err != nil {
		handleEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"slot": toSlotResponse(slot)})
}

func (h *Handlers) bulkCreateSlots(w http.ResponseWriter, r *http.Request) {
	var req BulkCreateSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if len(req.Slots) == 0 {
		writeError(w, http.StatusBadRequest, "missing_fields", "slots array must not be empty")
		return
	}

	created := make([]*allocation.Slot, 0, len(req.Slots))
	for _, sr := range req.Slots {
		slot, ok := h.buildSlot(w, sr)
		if !ok {
			return
		}
		created = append(created, slot)
	}
	for _, slot := range created {
		if err := h.slots.Add(r.Context(), slot); err != nil {
			handleEngineError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"slots": toSlotResponses(created),
		"count": len(created),
	})
}

func (h *Handlers) buildSlot(w http.ResponseWriter, req CreateSlotRequest) (*allocation.Slot, bool) {
	if req.DoctorID == "" || req.DoctorName == "" || req.Date == "" ||
		req.StartTime == "" || req.EndTime == "" || req.MaxCapacity == 0 {
		writeError(w, http.StatusBadRequest, "missing_fields",
			"doctorId, doctorName, date, startTime, endTime and maxCapacity are required")
		return nil, false
	}

	slot, err := allocation.NewSlot(req.DoctorID, req.DoctorName, req.Date, req.StartTime, req.EndTime, req.MaxCapacity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot", err.Error())
		return nil, false
	}
	return slot, true
}

func (h *Handlers) getSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "slotID")
	if !ok {
		return
	}

	slot, err := h.slots.Get(r.Context(), id)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	tokens, err := h.tokens.BySlot(r.Context(), id)
	if err != nil {
		handleEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"slot":       toSlotResponse(slot),
		"tokens":     toTokenResponses(tokens),
		"tokenCount": len(tokens),
	})
}

func (h *Handlers) slotsByDoctor(w http.ResponseWriter, r *http.Request) {
	slots, err := h.slots.ByProviderAndDate(r.Context(), chi.URLParam(r, "doctorID"), r.URL.Query().Get("date"))
	if err != nil {
		handleEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"slots": toSlotResponses(slots),
		"count": len(slots),
	})
}

func (h *Handlers) slotsByDate(w http.ResponseWriter, r *http.Request) {
	slots, err := h.slots.ByDate(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		handleEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"slots": toSlotResponses(slots),
		"count": len(slots),
	})
}

func (h *Handlers) delaySlot(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "slotID")
	if !ok {
		return
	}

	var req SlotDelayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.DelayMinutes == nil {
		writeError(w, http.StatusBadRequest, "missing_fields", "delayMinutes is required")
		return
	}

	slot, err := h.engine.AddSlotDelay(r.Context(), id, *req.DelayMinutes)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slot": toSlotResponse(slot)})
}

func (h *Handlers) activateSlot(w http.ResponseWriter, r *http.Request) {
	h.toggleSlot(w, r, (*allocation.Slot).Activate)
}

func (h *Handlers) deactivateSlot(w http.ResponseWriter, r *http.Request) {
	h.toggleSlot(w, r, (*allocation.Slot).Deactivate)
}

// toggleSlot flips isActive through the repository; activation state is
// independent of capacity and needs no engine involvement.
func (h *Handlers) toggleSlot(w http.ResponseWriter, r *http.Request, op func(*allocation.Slot)) {
	id, ok := parseID(w, r, "slotID")
	if !ok {
		return
	}

	slot, err := h.slots.Get(r.Context(), id)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	op(slot)
	if err := h.slots.Update(r.Context(), slot); err != nil {
		handleEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slot": toSlotResponse(slot)})
}
