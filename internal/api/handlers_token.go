package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medoc-health/opd-token-allocation/internal/allocation"
)

type Handlers struct {
	engine *allocation.Engine
	slots  allocation.SlotRepository
	tokens allocation.TokenRepository
}

func NewHandlers(engine *allocation.Engine, slots allocation.SlotRepository, tokens allocation.TokenRepository) *Handlers {
	return &Handlers{engine: engine, slots: slots, tokens: tokens}
}

func (h *Handlers) allocateToken(w http.ResponseWriter, r *http.Request) {
	var req AllocateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	if req.DoctorID == "" || req.PatientID == "" || req.PatientName == "" || req.TokenType == "" {
		writeError(w, http.StatusBadRequest, "missing_fields",
			"doctorId, patientId, patientName and tokenType are required")
		return
	}
	if req.Date == "" && req.PreferredSlotID == "" {
		writeError(w, http.StatusBadRequest, "missing_fields",
			"either date or preferredSlotId is required")
		return
	}

	preferred := uuid.Nil
	if req.PreferredSlotID != "" {
		id, err := uuid.Parse(req.PreferredSlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "preferredSlotId must be a valid UUID")
			return
		}
		preferred = id
	}

	result, err := h.engine.Allocate(r.Context(), allocation.AllocationRequest{
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		PatientName:     req.PatientName,
		PhoneNumber:     req.PhoneNumber,
		Type:            allocation.TokenType(req.TokenType),
		Date:            req.Date,
		PreferredSlotID: preferred,
		Notes:           req.Notes,
	})
	if err != nil {
		handleEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"token": toTokenResponse(result.Token),
		"slot":  toSlotResponse(result.Slot),
	})
}

func (h *Handlers) getToken(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tokenID")
	if !ok {
		return
	}

	token, err := h.tokens.Get(r.Context(), id)
	if err != nil {
		handleEngineError(w, err)
		return
	}

	resp := map[string]any{"token": toTokenResponse(token)}
	if slot, err := h.slots.Get(r.Context(), token.SlotID); err == nil {
		resp["slot"] = toSlotResponse(slot)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) checkInToken(w http.ResponseWriter, r *http.Request) {
	h.tokenTransition(w, r, h.engine.CheckIn)
}

func (h *Handlers) completeToken(w http.ResponseWriter, r *http.Request) {
	h.tokenTransition(w, r, h.engine.Complete)
}

func (h *Handlers) noShowToken(w http.ResponseWriter, r *http.Request) {
	h.tokenTransition(w, r, h.engine.MarkNoShow)
}

func (h *Handlers) tokenTransition(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) (*allocation.Token, error)) {
	id, ok := parseID(w, r, "tokenID")
	if !ok {
		return
	}

	token, err := op(r.Context(), id)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": toTokenResponse(token)})
}

func (h *Handlers) cancelToken(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tokenID")
	if !ok {
		return
	}

	var req CancelTokenRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	token, err := h.engine.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": toTokenResponse(token)})
}

func (h *Handlers) tokensByDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	date := r.URL.Query().Get("date")

	tokens, err := h.tokens.ByProvider(r.Context(), doctorID)
	if err != nil {
		handleEngineError(w, err)
		return
	}

	if date != "" {
		slots, err := h.slots.ByProviderAndDate(r.Context(), doctorID, date)
		if err != nil {
			handleEngineError(w, err)
			return
		}
		slotIDs := make(map[uuid.UUID]bool, len(slots))
		for _, s := range slots {
			slotIDs[s.ID] = true
		}
		filtered := tokens[:0]
		for _, t := range tokens {
			if slotIDs[t.SlotID] {
				filtered = append(filtered, t)
			}
		}
		tokens = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tokens": toTokenResponses(tokens),
		"count":  len(tokens),
	})
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
