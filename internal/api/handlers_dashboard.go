package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medoc-health/opd-token-allocation/internal/allocation"
)

type doctorOverview struct {
	DoctorID          string         `json:"doctorId"`
	DoctorName        string         `json:"doctorName"`
	Slots             []SlotResponse `json:"slots"`
	TotalCapacity     int            `json:"totalCapacity"`
	AllocatedTokens   int            `json:"allocatedTokens"`
	AvailableCapacity int            `json:"availableCapacity"`
	Utilization       float64        `json:"utilization"`
}

// dashboardOverview aggregates the whole OPD, optionally restricted to one
// date. Read-only.
func (h *Handlers) dashboardOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date := r.URL.Query().Get("date")

	var (
		slots []*allocation.Slot
		err   error
	)
	if date != "" {
		slots, err = h.slots.ByDate(ctx, date)
	} else {
		slots, err = h.slots.All(ctx)
	}
	if err != nil {
		handleEngineError(w, err)
		return
	}

	tokens, err := h.tokens.All(ctx)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	if date != "" {
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

	overview := struct {
		TotalSlots        int `json:"totalSlots"`
		ActiveSlots       int `json:"activeSlots"`
		TotalCapacity     int `json:"totalCapacity"`
		AllocatedTokens   int `json:"allocatedTokens"`
		AvailableCapacity int `json:"availableCapacity"`
	}{TotalSlots: len(slots)}

	byDoctor := make(map[string]*doctorOverview)
	var doctorIDs []string

	for _, s := range slots {
		if s.IsActive {
			overview.ActiveSlots++
		}
		overview.TotalCapacity += s.MaxCapacity
		overview.AllocatedTokens += s.CurrentCapacity
		overview.AvailableCapacity += s.Available(false)

		d, ok := byDoctor[s.DoctorID]
		if !ok {
			d = &doctorOverview{DoctorID: s.DoctorID, DoctorName: s.DoctorName}
			byDoctor[s.DoctorID] = d
			doctorIDs = append(doctorIDs, s.DoctorID)
		}
		d.Slots = append(d.Slots, toSlotResponse(s))
		d.TotalCapacity += s.MaxCapacity
		d.AllocatedTokens += s.CurrentCapacity
		d.AvailableCapacity += s.Available(false)
	}

	sort.Strings(doctorIDs)
	utilizationByDoctor := make(map[string]float64, len(byDoctor))
	doctors := make([]*doctorOverview, 0, len(byDoctor))
	for _, id := range doctorIDs {
		d := byDoctor[id]
		if d.TotalCapacity > 0 {
			d.Utilization = float64(d.AllocatedTokens) / float64(d.TotalCapacity) * 100
		}
		utilizationByDoctor[id] = d.Utilization
		doctors = append(doctors, d)
	}

	var overallUtilization float64
	if overview.TotalCapacity > 0 {
		overallUtilization = float64(overview.AllocatedTokens) / float64(overview.TotalCapacity) * 100
	}

	byType := make(map[allocation.TokenType]int, len(allocation.TokenTypes))
	for _, tt := range allocation.TokenTypes {
		byType[tt] = 0
	}
	byState := make(map[allocation.TokenState]int, len(allocation.TokenStates))
	for _, ts := range allocation.TokenStates {
		byState[ts] = 0
	}
	for _, t := range tokens {
		byType[t.Type]++
		byState[t.State]++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":     orAll(date),
		"overview": overview,
		"utilization": map[string]any{
			"overall":  overallUtilization,
			"byDoctor": utilizationByDoctor,
		},
		"tokens": map[string]any{
			"total":   len(tokens),
			"byType":  byType,
			"byState": byState,
		},
		"doctors": doctors,
	})
}

func (h *Handlers) dashboardDoctor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doctorID := chi.URLParam(r, "doctorID")
	date := r.URL.Query().Get("date")

	stats, err := h.engine.Stats(ctx, doctorID, date)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	slots, err := h.slots.ByProviderAndDate(ctx, doctorID, date)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	tokens, err := h.tokens.ByProvider(ctx, doctorID)
	if err != nil {
		handleEngineError(w, err)
		return
	}

	// Most recent tokens last; show the trailing ten.
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt.Before(tokens[j].CreatedAt)
	})
	if len(tokens) > 10 {
		tokens = tokens[len(tokens)-10:]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doctorId":     doctorID,
		"date":         orAll(date),
		"stats":        stats,
		"slots":        toSlotResponses(slots),
		"recentTokens": toTokenResponses(tokens),
	})
}

// dashboardRealtime shows the live queue for every active slot: who is in
// with the doctor, who is up next.
func (h *Handlers) dashboardRealtime(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slots, err := h.slots.Active(ctx)
	if err != nil {
		handleEngineError(w, err)
		return
	}

	entries := make([]map[string]any, 0, len(slots))
	for _, slot := range slots {
		tokens, err := h.tokens.BySlot(ctx, slot.ID)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		queue := struct {
			Waiting   int `json:"waiting"`
			Consulted int `json:"consulted"`
			Cancelled int `json:"cancelled"`
			NoShow    int `json:"noShow"`
		}{}
		var current *allocation.Token
		var next []*allocation.Token
		for _, t := range tokens {
			switch t.State {
			case allocation.StateAllocated:
				queue.Waiting++
				next = append(next, t)
			case allocation.StateCheckedIn:
				queue.Waiting++
				if current == nil {
					current = t
				}
			case allocation.StateConsulted:
				queue.Consulted++
			case allocation.StateCancelled:
				queue.Cancelled++
			case allocation.StateNoShow:
				queue.NoShow++
			}
		}

		sort.Slice(next, func(i, j int) bool {
			return next[i].TokenNumber < next[j].TokenNumber
		})
		if len(next) > 5 {
			next = next[:5]
		}

		entry := map[string]any{
			"slot":       toSlotResponse(slot),
			"queue":      queue,
			"nextTokens": toTokenResponses(next),
		}
		if current != nil {
			entry["currentToken"] = toTokenResponse(current)
		}
		entries = append(entries, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"slots": entries,
		"count": len(entries),
	})
}

func orAll(date string) string {
	if date == "" {
		return "All"
	}
	return date
}
