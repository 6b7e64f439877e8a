package api

import (
	"errors"
	"net/http"

	"github.com/medoc-health/opd-token-allocation/internal/allocation"
	"github.com/medoc-health/opd-token-allocation/internal/lock"
)

// handleEngineError maps the engine's typed failures onto HTTP statuses.
// Matching is by error kind only; message text is never inspected.
func handleEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, allocation.ErrInvalidTokenType):
		writeError(w, http.StatusBadRequest, "invalid_token_type", err.Error())
	case errors.Is(err, allocation.ErrInvalidDelay):
		writeError(w, http.StatusBadRequest, "invalid_delay", err.Error())
	case errors.Is(err, allocation.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, allocation.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "token_not_found", err.Error())
	case errors.Is(err, allocation.ErrSlotInactive):
		writeError(w, http.StatusConflict, "slot_inactive", err.Error())
	case errors.Is(err, allocation.ErrNoAvailableSlot):
		writeError(w, http.StatusConflict, "no_available_slot", err.Error())
	case errors.Is(err, allocation.ErrCapacityFull):
		writeError(w, http.StatusConflict, "capacity_full", err.Error())
	case errors.Is(err, allocation.ErrReallocationImpossible):
		writeError(w, http.StatusConflict, "reallocation_impossible", err.Error())
	case errors.Is(err, allocation.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, "already_cancelled", err.Error())
	case errors.Is(err, allocation.ErrCannotCancelCompleted):
		writeError(w, http.StatusConflict, "cannot_cancel_completed", err.Error())
	case errors.Is(err, allocation.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, lock.ErrSlotBusy):
		writeError(w, http.StatusConflict, "slot_busy", "slot is being updated, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
